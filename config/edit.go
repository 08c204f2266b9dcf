package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/otiai10/copy"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v2"
)

var ErrUnknownKey = errors.New("unknown config key")

type editableKey struct {
	kind  string
	apply func(c *Config, raw string) error
}

var editableKeys = map[string]editableKey{
	"initial_urls": {"list_str", func(c *Config, raw string) error {
		return yaml.Unmarshal([]byte(raw), &c.InitialUrls)
	}},
	"barber_delay_seconds": {"list_float_pair", func(c *Config, raw string) error {
		return parsePair(raw, &c.BarberDelaySeconds)
	}},
	"producer_delay_seconds": {"list_float_pair", func(c *Config, raw string) error {
		return parsePair(raw, &c.ProducerDelaySeconds)
	}},
	"keywords": {"list_str", func(c *Config, raw string) error {
		return yaml.Unmarshal([]byte(raw), &c.Keywords)
	}},
	"max_customers": {"int", func(c *Config, raw string) (err error) {
		c.MaxCustomers, err = strconv.Atoi(raw)
		return
	}},
	"max_queue_size": {"int", func(c *Config, raw string) (err error) {
		c.MaxQueueSize, err = strconv.Atoi(raw)
		return
	}},
	"enable_wakeup_from_stored_urls": {"bool", func(c *Config, raw string) (err error) {
		c.EnableWakeupFromStoredUrls, err = strconv.ParseBool(raw)
		return
	}},
	"new_customer_probability": {"float", func(c *Config, raw string) (err error) {
		c.NewCustomerProbability, err = strconv.ParseFloat(raw, 64)
		return
	}},
	"producer_interval": {"float", func(c *Config, raw string) (err error) {
		c.ProducerInterval, err = strconv.ParseFloat(raw, 64)
		return
	}},
	"max_stored_links": {"int", func(c *Config, raw string) (err error) {
		c.MaxStoredLinks, err = strconv.Atoi(raw)
		return
	}},
	"fetch.timeout_seconds": {"float", func(c *Config, raw string) (err error) {
		c.Fetch.TimeoutSeconds, err = strconv.ParseFloat(raw, 64)
		return
	}},
	"fetch.max_retries": {"int", func(c *Config, raw string) (err error) {
		c.Fetch.MaxRetries, err = strconv.Atoi(raw)
		return
	}},
	"fetch.user_agent": {"string", func(c *Config, raw string) error {
		c.Fetch.UserAgent = raw
		return nil
	}},
}

func parsePair(raw string, dst *[]float64) error {
	var pair []float64
	if err := yaml.Unmarshal([]byte(raw), &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.Errorf("expected two values, got %d", len(pair))
	}
	*dst = pair
	return nil
}

// EditableKeys lists the keys accepted by Edit together with their value type.
func EditableKeys() map[string]string {
	out := make(map[string]string, len(editableKeys))
	for k, v := range editableKeys {
		out[k] = v.kind
	}
	return out
}

func sortedKeys() []string {
	keys := make([]string, 0, len(editableKeys))
	for k := range editableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Edit sets a single key in the config file at path. The new value must
// produce a valid configuration, otherwise the file is left untouched.
// The previous valid file is kept as the backup config.
func Edit(path, key, raw string) (Config, error) {
	ek, ok := editableKeys[key]
	if !ok {
		return Config{}, errors.Wrapf(ErrUnknownKey, "%q", key)
	}

	unlock, err := lockFile(path + ".lock")
	if err != nil {
		return Config{}, errors.Wrap(err, "locking config")
	}
	defer unlock()

	current, mainErr := loadFile(path)
	if mainErr != nil {
		current, err = Load(path)
		if err != nil {
			current = Default()
		}
	}

	updated := current.Clone()
	if err := ek.apply(&updated, strings.TrimSpace(raw)); err != nil {
		return Config{}, errors.Wrapf(err, "%s expects a %s value", key, ek.kind)
	}
	if err := updated.Validate(); err != nil {
		return Config{}, err
	}

	if mainErr == nil {
		if err := copy.Copy(path, BackupPath(path)); err != nil {
			return Config{}, errors.Wrap(err, "writing backup config")
		}
	}
	if err := Save(path, updated); err != nil {
		return Config{}, err
	}
	return updated, nil
}

// Save writes cfg to path, replacing the file atomically.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	tmp, err := ioutil.TempFile(filepath.Dir(path), ".config-*")
	if err != nil {
		return errors.Wrap(err, "writing config")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing config")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing config")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "writing config")
}

func lockFile(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
