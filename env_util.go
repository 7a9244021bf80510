package sharednotes

import (
	"fmt"
	"os"
	"time"
)

// GetEnvOrDefault returns the value of the environment variable key,
// or defaultValue when it is unset or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}

// GetEnvDurationOrDefault parses the environment variable key as a
// time.Duration such as "5s", returning defaultValue when it is unset or empty.
func GetEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
