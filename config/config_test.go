package config

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gotest.tools/assert"
)

const validConfig = `
initial_urls: ["https://example.com", "https://example.org/docs"]
barber_delay_seconds: [0.1, 0.2]
producer_delay_seconds: [0, 0.1]
keywords: ["go", "barber"]
max_customers: 4
max_queue_size: 2
enable_wakeup_from_stored_urls: true
new_customer_probability: 0.5
producer_interval: 0.25
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NilError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParse(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		cfg, err := Parse([]byte(validConfig))
		assert.NilError(t, err)
		assert.Equal(t, cfg.MaxQueueSize, 2)
		assert.Equal(t, cfg.MaxCustomers, 4)
		assert.DeepEqual(t, cfg.Keywords, []string{"go", "barber"})
		assert.Equal(t, cfg.ProducerIntervalDuration(), 250*time.Millisecond)
		lo, hi := cfg.BarberDelay()
		assert.Equal(t, lo, 100*time.Millisecond)
		assert.Equal(t, hi, 200*time.Millisecond)
		// Keys absent from the file keep their defaults
		assert.Equal(t, cfg.MaxStoredLinks, 1000)
		assert.Equal(t, cfg.Fetch.MaxRetries, 3)
	})

	t.Run("JSON", func(t *testing.T) {
		cfg, err := Parse([]byte(`{"max_queue_size": 7, "keywords": ["a"]}`))
		assert.NilError(t, err)
		assert.Equal(t, cfg.MaxQueueSize, 7)
	})

	t.Run("Invalid", func(t *testing.T) {
		cases := map[string]string{
			"ZeroCapacity":     "max_queue_size: 0",
			"NegativeInterval": "producer_interval: -1",
			"InvertedRange":    "barber_delay_seconds: [2, 1]",
			"ShortRange":       "producer_delay_seconds: [1]",
			"Probability":      "new_customer_probability: 1.5",
			"NegativeCap":      "max_customers: -3",
			"BadSeed":          `initial_urls: ["ftp://example.com"]`,
			"UnknownKey":       "max_queue: 3",
		}
		for name, doc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := Parse([]byte(doc))
				assert.Assert(t, err != nil, "expected %q to be rejected", doc)
			})
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("Main", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", validConfig)
		cfg, err := Load(path)
		assert.NilError(t, err)
		assert.Equal(t, cfg.MaxQueueSize, 2)
	})

	t.Run("FallbackToBackup", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", "max_queue_size: 0")
		writeFile(t, dir, "config_backup.yaml", "max_queue_size: 9")
		cfg, err := Load(path)
		assert.NilError(t, err)
		assert.Equal(t, cfg.MaxQueueSize, 9)
	})

	t.Run("BothInvalid", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", "max_queue_size: 0")
		_, err := Load(path)
		assert.ErrorContains(t, err, "both main and backup")
	})
}

func TestBackupPath(t *testing.T) {
	assert.Equal(t, BackupPath("/etc/shop/config.yaml"), "/etc/shop/config_backup.yaml")
	assert.Equal(t, BackupPath("config.json"), "config_backup.json")
}

func TestEdit(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", validConfig)

		cfg, err := Edit(path, "max_queue_size", "6")
		assert.NilError(t, err)
		assert.Equal(t, cfg.MaxQueueSize, 6)

		reloaded, err := Load(path)
		assert.NilError(t, err)
		assert.Equal(t, reloaded.MaxQueueSize, 6)
		assert.Equal(t, reloaded.MaxCustomers, 4)

		backup, err := Load(BackupPath(path))
		assert.NilError(t, err)
		assert.Equal(t, backup.MaxQueueSize, 2)
	})

	t.Run("Lists", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", validConfig)

		cfg, err := Edit(path, "keywords", `["alpha", "beta"]`)
		assert.NilError(t, err)
		assert.DeepEqual(t, cfg.Keywords, []string{"alpha", "beta"})

		cfg, err = Edit(path, "barber_delay_seconds", "[0.3, 0.4]")
		assert.NilError(t, err)
		assert.DeepEqual(t, cfg.BarberDelaySeconds, []float64{0.3, 0.4})
	})

	t.Run("InvalidValueLeavesFile", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", validConfig)

		_, err := Edit(path, "max_queue_size", "0")
		assert.Assert(t, err != nil)
		_, err = Edit(path, "max_queue_size", "many")
		assert.ErrorContains(t, err, "expects a int value")
		_, err = Edit(path, "barber_delay_seconds", "[1, 2, 3]")
		assert.Assert(t, err != nil)

		cfg, err := Load(path)
		assert.NilError(t, err)
		assert.Equal(t, cfg.MaxQueueSize, 2)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", validConfig)
		_, err := Edit(path, "chairs", "3")
		assert.Assert(t, errors.Cause(err) == ErrUnknownKey)
	})

	t.Run("MissingFileStartsFromDefaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		cfg, err := Edit(path, "max_customers", "0")
		assert.NilError(t, err)
		assert.Equal(t, cfg.MaxCustomers, 0)
		assert.Equal(t, cfg.MaxQueueSize, Default().MaxQueueSize)
	})
}

func TestClone(t *testing.T) {
	cfg := Default()
	cfg.InitialUrls = []string{"https://example.com"}
	clone := cfg.Clone()
	clone.InitialUrls[0] = "https://changed.example.com"
	clone.BarberDelaySeconds[0] = 42
	assert.Equal(t, cfg.InitialUrls[0], "https://example.com")
	assert.Equal(t, cfg.BarberDelaySeconds[0], 0.5)
}

func TestExplain(t *testing.T) {
	var buf bytes.Buffer
	Explain(&buf)
	for key := range EditableKeys() {
		assert.Assert(t, strings.Contains(buf.String(), key+":"), "missing %s", key)
	}
	assert.Equal(t, len(keyDocs), len(editableKeys))
}
