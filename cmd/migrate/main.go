package main

import (
	"fmt"
	"os"

	"scifig/adapters/db/postgres/migrations"
	"scifig/internal/config"
	"scifig/internal/logging"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	var databaseURL string

	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the analysis store schema",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (overrides DATABASE_URL)")

	open := func() (*migrations.Migrator, *sqlx.DB, error) {
		_ = godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		if databaseURL == "" {
			databaseURL = cfg.Database.URL
		}
		if databaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required")
		}
		db, err := sqlx.Connect("postgres", databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return migrations.NewMigrator(db.DB, logging.New(cfg.Log)), db, nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := m.Up(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}, &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they have been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			status, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range status {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s_%s\t%s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
