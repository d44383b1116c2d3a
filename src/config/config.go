package config

import (
	"errors"
	"io/fs"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the process-wide configuration. It is populated from the
// environment (and an optional .env file) when this package is initialized.
var Config StemConfig

func init() {
	err := Load()
	if err != nil {
		panic(err)
	}
}

// Load reads .env (if present) and the environment into Config.
func Load() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	var cfg StemConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return err
	}
	Config = cfg
	return nil
}

// Validate checks Config for values the website cannot run with. The CLI
// tools only need a subset, so this is not run on load.
func Validate() error {
	return validator.New().Struct(Config)
}

func Usage() string {
	var cfg StemConfig
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return desc
}
