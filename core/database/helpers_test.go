package database

import coreconfig "github.com/m3rciful/shopbot/core/config"

func configFixture() coreconfig.DatabaseConfig {
	return coreconfig.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "bot",
		Password: "pw",
		Name:     "shop",
		SSLMode:  "disable",
	}
}
