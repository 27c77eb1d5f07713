package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// envOrDefault returns the value of the environment variable name, or
// fallback when unset or empty.
func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// parseBrokers splits a comma-separated broker list, trimming whitespace
// and dropping empty items.
func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// parseIntEnv reads an integer environment variable with a default and an
// inclusive valid range.
func parseIntEnv(name string, fallback, minVal, maxVal int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: %q (must be an integer in [%d, %d])", name, s, minVal, maxVal)
	}
	return n, nil
}
