package main

import (
	"os"

	"go-query-coordinator/cmd/coordinatorctl/cmd"
	"go-query-coordinator/internal/config"
	"go-query-coordinator/internal/model"
)

func main() {
	_ = config.ConfigureLogging(model.LoggingConfig{Level: "warn", Format: "text"})
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
