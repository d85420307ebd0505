package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables that override file settings.
const (
	EnvVersion       = "DOC2SCORM_VERSION"
	EnvMaxInputSize  = "DOC2SCORM_MAX_INPUT_SIZE"
	EnvTempDir       = "DOC2SCORM_TEMP_DIR"
	EnvRetainWorkDir = "DOC2SCORM_RETAIN_WORKDIR"
)

// ApplyEnv overrides settings from the environment through lookup
// (os.LookupEnv in production) and validates the result. Empty values
// are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvVersion); ok {
		c.Conversion.ScormVersion = v
	}
	if v, ok := get(EnvMaxInputSize); ok {
		c.Conversion.MaxInputSize = v
	}
	if v, ok := get(EnvTempDir); ok {
		c.Conversion.TempDir = v
	}
	if v, ok := get(EnvRetainWorkDir); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidValue, EnvRetainWorkDir, v)
		}
		c.Conversion.RetainWorkDir = b
	}
	return c.Validate()
}
