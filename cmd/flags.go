package cmd

import (
	"fmt"
	"strings"
)

// stringSlice accumulates repeated or comma-separated flag values.
type stringSlice []string

func (s *stringSlice) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *stringSlice) Type() string {
	return "stringSlice"
}

func (s *stringSlice) Set(value string) error {
	parts := strings.Split(value, ",")
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			*s = append(*s, trimmed)
		}
	}
	return nil
}
