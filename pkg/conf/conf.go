// Package conf contains utility functions for loading and parsing configuration files.
package conf

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

// APIConf describes the hosted backend the client talks to.
// URL and Key are mandatory at process start.
type APIConf struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

// PostgresConf describes a default configuration for the hosted postgres database.
type PostgresConf struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSL      string `mapstructure:"ssl"`
}

// StorageConf describes the object storage bucket uploads go to.
type StorageConf struct {
	Bucket string `mapstructure:"bucket"`
}

// ClientConf is the full configuration for a client process.
type ClientConf struct {
	API      APIConf      `mapstructure:"api"`
	Postgres PostgresConf `mapstructure:"postgres"`
	Storage  StorageConf  `mapstructure:"storage"`
}

// ErrMissingAPIConf is returned when the backend URL or public API key is absent.
var ErrMissingAPIConf = errors.New("missing backend url or api key")

// Load opens and parses a configuration file.
func Load(file string, conf interface{}) error {
	_, err := os.Stat(file)
	if err != nil {
		return err
	}

	viper.SetConfigFile(file)
	viper.SetConfigType("toml")

	err = viper.ReadInConfig()
	if err != nil {
		return err
	}

	err = viper.GetViper().Unmarshal(conf)
	if err != nil {
		return err
	}

	return nil
}

// APIFromEnv reads the backend URL and public API key from the environment.
// Used when no configuration file is supplied at launch.
func APIFromEnv() APIConf {
	return APIConf{
		URL: os.Getenv("FRAMEZ_API_URL"),
		Key: os.Getenv("FRAMEZ_API_KEY"),
	}
}

// Validate ensures the mandatory values are present.
func (c APIConf) Validate() error {
	if c.URL == "" || c.Key == "" {
		return ErrMissingAPIConf
	}

	return nil
}
