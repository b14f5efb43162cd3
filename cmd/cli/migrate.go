package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/netinventory/internal/db"
	"github.com/anstrom/netinventory/internal/logging"
	"github.com/anstrom/netinventory/internal/metrics"
)

// migrateCmd groups the schema migration commands.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply or inspect the embedded PostgreSQL migrations. The server applies
pending migrations on start; these commands are for running them ahead of time
or checking what a database has.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}

// withMigrator connects to the configured database and runs fn with a migrator.
func withMigrator(ctx context.Context, fn func(*db.Migrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := db.Connect(ctx, &cfg.Database, metrics.Noop{})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", closeErr)
		}
	}()
	return fn(db.NewMigrator(database.DB, logging.Default()))
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd.Context(), func(m *db.Migrator) error {
		applied, err := m.Up(cmd.Context())
		out := cmd.OutOrStdout()
		for _, name := range applied {
			fmt.Fprintf(out, "Applied %s\n", name)
		}
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(out, "Database schema is up to date.")
		}
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd.Context(), func(m *db.Migrator) error {
		statuses, err := m.Status(cmd.Context())
		if err != nil {
			return err
		}
		printMigrations(cmd.OutOrStdout(), statuses)
		return nil
	})
}

func printMigrations(w io.Writer, statuses []db.MigrationStatus) {
	table := tablewriter.NewWriter(w)
	table.Header("Migration", "Applied", "Applied At", "Modified")
	for _, st := range statuses {
		appliedAt := "-"
		if st.Applied {
			appliedAt = st.AppliedAt.Local().Format(timeLayout)
		}
		_ = table.Append([]string{
			st.Name,
			fmt.Sprint(st.Applied),
			appliedAt,
			fmt.Sprint(st.Modified),
		})
	}
	_ = table.Render()
}
