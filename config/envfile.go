package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadEnvFile copies KEY=VALUE pairs from path into the process environment.
// Variables that are already set win over the file. A missing file is only
// an error when required is true.
func LoadEnvFile(path string, required bool) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("env file %s: set %s: %w", path, name, err)
		}
	}
	return nil
}
