package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/config"
	"github.com/xavierca1/diag-leads/internal/geo"
)

var (
	cfg        *config.Config
	resolver   *geo.Resolver
	tablesPath string
)

var rootCmd = &cobra.Command{
	Use:   "leadgeo",
	Short: "Ferramentas de telefone e geografia dos leads",
	Long:  "Resolve DDD/DDI, valida e formata telefones, agrega a distribuição geográfica de uma lista e aplica as migrations do banco de leads.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		path := cfg.Geo.TablesPath
		if tablesPath != "" {
			path = tablesPath
		}
		r, err := geo.Open(path, cfg.Geo.HomeCallingCode)
		if err != nil {
			return err
		}
		resolver = r
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tablesPath, "tables", "", "arquivo YAML com as tabelas de DDD/DDI (padrão: embutidas)")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
