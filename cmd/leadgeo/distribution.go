package main

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var distributionCmd = &cobra.Command{
	Use:   "distribution <arquivo>",
	Short: "Agrega estado/país/região/continente de uma lista de telefones",
	Long:  "Lê um telefone por linha, ou a primeira coluna de um CSV. Use - para ler da entrada padrão.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrapf(err, "abrir %s", args[0])
			}
			defer f.Close()
			in = f
		}

		phones, err := readPhones(in)
		if err != nil {
			return err
		}
		zap.L().Debug("telefones lidos", zap.Int("total", len(phones)))

		return writeJSON(cmd.OutOrStdout(), resolver.Distribution(phones))
	},
}

// readPhones pega a primeira coluna de cada registro; linhas vazias são ignoradas.
func readPhones(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var phones []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ler lista de telefones")
		}
		if len(record) == 0 {
			continue
		}
		if phone := strings.TrimSpace(record[0]); phone != "" {
			phones = append(phones, phone)
		}
	}
	return phones, nil
}

func init() {
	rootCmd.AddCommand(distributionCmd)
}
