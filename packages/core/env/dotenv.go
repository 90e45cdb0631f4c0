package env

import (
	"fmt"

	"github.com/joho/godotenv"
)

// LoadDotEnv parses env files into key-value pairs without touching the
// process environment. Later files override earlier ones.
func LoadDotEnv(paths ...string) (map[string]string, error) {
	vars, err := godotenv.Read(paths...)
	if err != nil {
		return nil, fmt.Errorf("cannot read env file: %w", err)
	}
	return vars, nil
}

// LoadAndExportDotEnv also exports the pairs to the process environment so
// that {{$VAR}} references see them. Variables already set are kept.
func LoadAndExportDotEnv(paths ...string) (map[string]string, error) {
	vars, err := LoadDotEnv(paths...)
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(paths...); err != nil {
		return nil, fmt.Errorf("cannot export env file: %w", err)
	}
	return vars, nil
}
