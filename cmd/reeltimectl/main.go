// Command reeltimectl runs maintenance tasks against the reservation
// database: schema migrations, the reminder job and availability checks.
package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/iliyamo/reeltime/internal/config"
	"github.com/iliyamo/reeltime/internal/database"
	"github.com/iliyamo/reeltime/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "reeltimectl",
	Short:         "ReelTime maintenance CLI",
	Long:          `Apply migrations, queue reminders and inspect remaining seats from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(migrateCmd(), remindersCmd(), remainingCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env loads .env and the process environment the same way the server does.
func env() config.Config {
	config.LoadDotEnv()
	cfg := config.Load()
	logger.Init(cfg.Env)
	return cfg
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	db, err := database.Open(database.Options{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MultiStatements: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
