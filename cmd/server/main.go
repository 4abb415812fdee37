package main

import (
	"log/slog"
	"os"

	"github.com/ZenonWrites/BlockchainEvoting/internal/server/app"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	application, err := app.New(version, buildDate, logger)
	if err != nil {
		logger.Error("failed to init server", "err", err)
		os.Exit(1)
	}
	if err := application.Run(); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}
