package main

import (
	"rewards_system/internal/config" // Custom import path (Config)
	"rewards_system/internal/db"     // Custom import path (Database)
	"rewards_system/internal/logger" // Logger setup

	"github.com/sirupsen/logrus" // Logging
)

// Main entry point for migration
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger.Setup(cfg)

	gdb, err := db.Open(cfg) // MySQL or Postgres, per DB_DRIVER
	if err != nil {
		logrus.Fatal(err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatal(err)
	}
}
