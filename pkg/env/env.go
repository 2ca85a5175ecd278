// Package env reads process environments and dotenv files.
package env

import (
	"maps"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/relplan/relplan/internal/errors"
)

// Parse converts `KEY=value` pairs, as returned by os.Environ, into a map. Later pairs win.
func Parse(environ []string) map[string]string {
	parsed := make(map[string]string, len(environ))

	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}

		parsed[key] = value
	}

	return parsed
}

// ReadFile reads a dotenv file. A missing file is not an error.
func ReadFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err == nil {
		return vars, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}

	return nil, errors.New(err)
}

// Underlay returns env with every variable of defaults that env does not set.
func Underlay(env, defaults map[string]string) map[string]string {
	merged := maps.Clone(defaults)
	if merged == nil {
		merged = make(map[string]string, len(env))
	}

	maps.Copy(merged, env)

	return merged
}

// GetBool returns the value of key converted to a boolean, or fallback if the variable is unset or malformed.
func GetBool(env map[string]string, key string, fallback bool) bool {
	if strVal, ok := Lookup(env, key); ok {
		if val, err := strconv.ParseBool(strVal); err == nil {
			return val
		}
	}

	return fallback
}

// GetInt returns the value of key converted to an integer, or fallback.
func GetInt(env map[string]string, key string, fallback int) int {
	if strVal, ok := Lookup(env, key); ok {
		if val, err := strconv.Atoi(strVal); err == nil {
			return val
		}
	}

	return fallback
}

// Lookup behaves like os.LookupEnv over env, but trims spaces and treats blank values as unset.
func Lookup(env map[string]string, key string) (string, bool) {
	if key == "" {
		return "", false
	}

	val := strings.TrimSpace(env[key])

	return val, val != ""
}
