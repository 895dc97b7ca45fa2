package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, log, _, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		log.Info("schema up to date", zap.String("driver", cfg.DB.Driver))
		return nil
	},
}
