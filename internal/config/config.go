package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server struct {
		Host         string
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		IdleTimeout  time.Duration
	}
	Database struct {
		Path string
	}
	Storage struct {
		// Root is the directory holding the flat JSON/XML event files.
		// The directory listing is the index; there is no manifest.
		Root string
	}
	Ingest struct {
		// IndexIncludeDB adds database rows to the aggregated index page,
		// which otherwise shows file-resident events only.
		IndexIncludeDB bool
		// BulkInsertDB makes a successful bulk upload also insert its
		// records into the database instead of keeping the file as the
		// sole persisted artifact.
		BulkInsertDB bool
	}
	Redis struct {
		Addr    string
		DB      int
		Channel string
	}
	LogLevel string
}

func Load() *Config {
	cfg := &Config{}

	// Server configuration
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Port = getEnv("SERVER_PORT", "8000")
	cfg.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", "10s")
	cfg.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", "10s")
	cfg.Server.IdleTimeout = getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s")

	// Storage configuration
	cfg.Database.Path = getEnv("DB_PATH", "./data/events.db")
	cfg.Storage.Root = getEnv("STORAGE_ROOT", "./data/uploads")

	// Ingestion behavior
	cfg.Ingest.IndexIncludeDB = getEnvAsBool("INDEX_INCLUDE_DB", false)
	cfg.Ingest.BulkInsertDB = getEnvAsBool("BULK_INSERT_DB", false)

	// Notifier configuration; empty REDIS_ADDR disables publishing
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)
	cfg.Redis.Channel = getEnv("REDIS_CHANNEL", "events_ingested")

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	return cfg
}

func (c *Config) ServerAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	val := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(val)
	if err != nil {
		return time.Duration(0)
	}
	return duration
}

func getEnvAsInt(key string, defaultValue int) int {
	val := getEnv(key, strconv.Itoa(defaultValue))
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvAsBool(key string, defaultValue bool) bool {
	val := getEnv(key, strconv.FormatBool(defaultValue))
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return boolVal
}
