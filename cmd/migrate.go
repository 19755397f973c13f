package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kbforge/harvester/internal/logging"
	"github.com/kbforge/harvester/internal/metadata/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the artifacts table and indexes in Postgres",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if provider := viper.GetString("metadata.provider"); provider != "postgres" {
			return fmt.Errorf("migrate requires metadata.provider=postgres, got %q", provider)
		}
		repo, err := postgres.NewRepository(cmd.Context(), postgres.Config{
			DSN:      viper.GetString("metadata.postgres.dsn"),
			Table:    viper.GetString("metadata.postgres.table"),
			MaxConns: viper.GetInt32("metadata.postgres.max_conns"),
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = repo.Close()
		}()
		if err := repo.Migrate(cmd.Context()); err != nil {
			return err
		}
		logging.L.Info("Migration complete",
			zap.String("table", viper.GetString("metadata.postgres.table")),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
