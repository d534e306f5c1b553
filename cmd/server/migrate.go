package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bethelevents/assessor/internal/config"
	dbstore "github.com/bethelevents/assessor/internal/db"
)

func newMigrateCmd(cfgFile func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(cfgFile())
			if err != nil {
				return err
			}
			config.SetupLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			applied, err := migrate(cmd.Context(), afero.NewOsFs(), cfg.DB)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintf(out, "%s is up to date\n", cfg.DB.Path)
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(out, "applied %s\n", name)
			}
			fmt.Fprintf(out, "migrated %s\n", cfg.DB.Path)
			return nil
		},
	}
}

func migrate(ctx context.Context, fs afero.Fs, cfg config.DB) ([]string, error) {
	if cfg.Driver != "sqlite" {
		return nil, fmt.Errorf("migrate needs db.driver sqlite, got %q", cfg.Driver)
	}
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	sqlDB, err := dbstore.OpenDB(cfg.Path)
	if err != nil {
		return nil, err
	}
	applied, err := dbstore.RunMigrations(ctx, sqlDB, fs, cfg.MigrationsDir)
	if cerr := sqlDB.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close sqlite: %w", cerr)
	}
	return applied, err
}
