package config

import (
	"os"

	"github.com/go-yaml/yaml"

	"github.com/kagari-social/kagari/internal/domain"
)

// Load reads the YAML config file and fills derived fields.
func Load(path string) (domain.Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return domain.Config{}, err
	}
	defer file.Close()

	var config domain.Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return domain.Config{}, err
	}

	if config.Bind == "" {
		config.Bind = ":8000"
	}
	if config.UserAgent == "" {
		config.UserAgent = "kagari/1.0 (+https://" + config.FQDN + ")"
	}
	config.BaseURL = "https://" + config.FQDN

	return config, nil
}
