package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxFileSize limits YAML input to prevent memory exhaustion.
const MaxFileSize = 1 << 20

var (
	errEmptyData   = errors.New("empty config data")
	errFileTooLong = errors.New("config exceeds maximum size")
)

// unmarshalStrict decodes data into v, rejecting unknown fields.
func unmarshalStrict(data []byte, v any) error {
	if len(data) == 0 {
		return errEmptyData
	}
	if len(data) > MaxFileSize {
		return fmt.Errorf("%w: %d bytes (max %d)", errFileTooLong, len(data), MaxFileSize)
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return err
	}
	return nil
}

// Marshal renders cfg as YAML, the format LoadConfig reads back.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}
