// Package config loads typed configuration from environment variables.
//
// It is a thin layer over github.com/caarlos0/env with .env support from
// github.com/joho/godotenv. Every package that needs configuration declares
// its own struct with `env` tags and a NewFromConfig constructor; the binary
// loads those structs with Load or MustLoad.
package config
