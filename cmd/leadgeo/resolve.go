package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/geo"
)

type resolvedPhone struct {
	Phone   string            `json:"phone"`
	E164    string            `json:"e164,omitempty"`
	Valid   bool              `json:"valid_domestic"`
	Profile entity.GeoProfile `json:"profile"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <telefone>...",
	Short: "Resolve o perfil geográfico de cada telefone (JSON)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := make([]resolvedPhone, 0, len(args))
		for _, phone := range args {
			out = append(out, resolvedPhone{
				Phone:   phone,
				E164:    geo.NormalizeE164(phone, cfg.Geo.DefaultRegion),
				Valid:   resolver.IsValidDomesticNumber(phone),
				Profile: resolver.Resolve(phone),
			})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

var formatCmd = &cobra.Command{
	Use:   "format <telefone>...",
	Short: "Formata telefones nacionais como (DD) NNNNN-NNNN",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, phone := range args {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), resolver.FormatDomestic(phone)); err != nil {
				return err
			}
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <telefone>...",
	Short: "Confere se cada telefone é um número nacional válido",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		invalid := 0
		for _, phone := range args {
			verdict := "válido"
			if !resolver.IsValidDomesticNumber(phone) {
				verdict = "inválido"
				invalid++
			}
			fmt.Fprintf(tw, "%s\t%s\n", phone, verdict)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if invalid > 0 {
			return fmt.Errorf("%d de %d telefones inválidos", invalid, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd, formatCmd, validateCmd)
}
