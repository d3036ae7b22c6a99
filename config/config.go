package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file when present. Deployed
// environments set real env vars, so a missing file is not an error.
func LoadEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}
