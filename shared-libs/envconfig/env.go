package envconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Get returns the value of the requested environment variable or the supplied fallback when empty.
func Get(name string, fallback string) string {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value
	}
	return fallback
}

// GetInt parses an integer variable, returning fallback when unset or unparsable.
func GetInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// GetList splits a comma-separated variable, dropping blank items. Unset or blank values
// return fallback.
func GetList(name string, fallback []string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(name), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// MustGet returns the value of the requested environment variable or panics if it's empty.
func MustGet(name string) string {
	value := os.Getenv(name)
	if value == "" {
		panic(fmt.Sprintf("expected env %s to be set", name))
	}
	return value
}

// LoadDotenv loads KEY=VALUE pairs from the given files into the process environment.
// Missing files are skipped; variables already set win over file values.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Validate validates a struct using validator tags.
func Validate(v any) error {
	return validate.Struct(v)
}
