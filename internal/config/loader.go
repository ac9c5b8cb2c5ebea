package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the configuration.
//
// A .env file is loaded first when present; it never overrides variables
// already set in the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnvironment()
}

func fromEnvironment() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &Error{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &Error{
			Type:    ErrValidation,
			Message: describe(err),
			Err:     err,
		}
	}

	return &cfg, nil
}

// describe lists the offending fields as "Section.Field (rule)".
func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "configuration validation failed"
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ns := strings.TrimPrefix(fe.StructNamespace(), "Config.")
		parts = append(parts, fmt.Sprintf("%s (%s)", ns, fe.Tag()))
	}
	return "invalid configuration: " + strings.Join(parts, ", ")
}
