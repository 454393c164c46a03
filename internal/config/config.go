// Package config loads application configuration from the environment.
// A .env file in the working directory is read first when present;
// variables already set in the process environment win.
package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration of the HTTP server.
type Config struct {
	Env         string // application environment (dev, test, prod)
	Port        string // HTTP port to listen on
	DBUser      string
	DBPass      string // optional
	DBHost      string
	DBPort      string
	DBName      string
	AutoMigrate bool   // apply embedded migrations on startup
	JWTSecret   string // HS256 key for bearer tokens issued by the identity service

	Sweep        SweepConfig
	Availability AvailabilityCacheConfig
	Queue        QueueConfig
}

// Load reads the environment and returns a Config.  Missing required
// variables stop the process.
func Load() Config {
	loadDotEnv()
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		AutoMigrate:  envBool("DB_AUTO_MIGRATE", false),
		JWTSecret:    must("JWT_SECRET"),
		Sweep:        LoadSweepConfig(),
		Availability: LoadAvailabilityCacheConfig(),
		Queue:        LoadQueueConfig(),
	}
}

// DBConfig is the subset of Config the admin CLI needs.
type DBConfig struct {
	User, Pass, Host, Port, Name string
}

// LoadDB reads only the database settings.
func LoadDB() DBConfig {
	loadDotEnv()
	return DBConfig{
		User: must("DB_USER"),
		Pass: os.Getenv("DB_PASS"),
		Host: must("DB_HOST"),
		Port: must("DB_PORT"),
		Name: must("DB_NAME"),
	}
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: reading .env: %v", err)
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// JWTSecret reads only the token signing key.
func JWTSecret() string {
	loadDotEnv()
	return must("JWT_SECRET")
}
