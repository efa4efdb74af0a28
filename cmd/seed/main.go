// Command seed wipes and repopulates the database with deterministic
// development fixtures.
package main

import (
	"os"

	"github.com/emberly-app/emberly/internal/config"
	"github.com/emberly-app/emberly/internal/db"
	"github.com/emberly-app/emberly/internal/logger"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database); err != nil {
		logger.Error("failed to seed data", "err", err)
		os.Exit(1)
	}
	logger.Info("seed complete")
}
