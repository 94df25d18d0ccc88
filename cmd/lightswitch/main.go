// Package main provides an interactive chat that lets the model switch room lights.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/minhyannv/lightswitch-go/pkg/agent"
	configpkg "github.com/minhyannv/lightswitch-go/pkg/config"
	loggerpkg "github.com/minhyannv/lightswitch-go/pkg/logger"
)

// main is the program entry point.
func main() {
	config, err := loadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	appLogger := loggerpkg.NewWriterLogger(os.Stderr, config.Verbose)
	app, err := agent.New(context.Background(), config, agent.WithLogger(appLogger))
	if err != nil {
		if errors.Is(err, configpkg.ErrMissingCredentials) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v: %s\n", err, missingCredentialsHelp())
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if err := runREPL(app, replOptions{
		Verbose: config.Verbose,
		Logger:  appLogger,
	}, os.Stdin, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
