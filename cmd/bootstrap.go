package main

import (
	"fmt"

	"nutrition/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

// bootstrap loads config, builds the logger and opens a migrated database.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build logger: %w", err)
	}
	db, err := config.OpenDB(cfg.DB, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, err
	}
	if err := config.Migrate(db); err != nil {
		_ = log.Sync()
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}
