package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/infra/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica as migrations pendentes no banco de leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Store.DatabaseURL == "" {
			return eris.New("migrate: store.database_url (ou DATABASE_URL) não configurado")
		}

		pool, err := database.NewPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate")
		}

		names, _ := database.MigrationNames()
		zap.L().Info("migrations aplicadas", zap.Strings("migrations", names))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
