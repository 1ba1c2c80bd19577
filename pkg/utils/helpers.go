package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses strings like "5m", returning fallback for empty or
// malformed input.
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

// ParseValue converts s to an int, float or bool when it looks like one and
// returns the trimmed string otherwise.
func ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)

	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// Assignment is one name=value pair from the command line.
type Assignment struct {
	Name  string
	Value interface{}
}

// ParseAssignments splits each "name=value" pair and runs the value through
// ParseValue. Order is preserved.
func ParseAssignments(pairs []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected name=value", pair)
		}
		out = append(out, Assignment{Name: name, Value: ParseValue(value)})
	}
	return out, nil
}
