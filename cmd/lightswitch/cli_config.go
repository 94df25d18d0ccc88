package main

import (
	"os"

	"github.com/joho/godotenv"
	configpkg "github.com/minhyannv/lightswitch-go/pkg/config"
)

// loadConfig reads .env (if present), the optional settings file and the
// process environment.
func loadConfig() (configpkg.Config, error) {
	_ = godotenv.Load()
	return configpkg.Load(os.Getenv)
}

func missingCredentialsHelp() string {
	return "set AZURE_OPENAI_KEY and AZURE_OPENAI_ENDPOINT (or OPENAI_API_KEY and OPENAI_BASE_URL) in the environment or a .env file"
}
