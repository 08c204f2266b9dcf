package config

import (
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// BackupPath returns the fallback file used when the main config is
// missing or invalid: config.yaml -> config_backup.yaml.
func BackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_backup" + ext
}

// Load reads the configuration at path. If it cannot be read or does not
// validate, the backup file next to it is tried instead.
func Load(path string) (Config, error) {
	cfg, err := loadFile(path)
	if err == nil {
		return cfg, nil
	}
	log.WithError(err).WithField("path", path).Warn("Main config invalid, trying backup config")

	backup := BackupPath(path)
	cfg, backupErr := loadFile(backup)
	if backupErr != nil {
		return Config{}, errors.Errorf("both main and backup config files are invalid: %s: %v; %s: %v", path, err, backup, backupErr)
	}
	return cfg, nil
}

func loadFile(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) document on top of the defaults and
// validates the result. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
