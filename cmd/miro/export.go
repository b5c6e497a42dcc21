package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"miro-api/internal/logger"
	"miro-api/internal/workbook"
)

func newExportCmd() *cobra.Command {
	var (
		templatePath   string
		validatorsPath string
		dataPath       string
		outDir         string
		rows           int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the data-entry workbook of a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := loadTemplate(templatePath)
			if err != nil {
				return err
			}

			var validators []workbook.Validator
			if validatorsPath != "" {
				if validators, err = loadValidators(validatorsPath); err != nil {
					return err
				}
			}

			var data workbook.RowData
			if dataPath != "" {
				if err := decodeFile(dataPath, &data); err != nil {
					return err
				}
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			out := filepath.Join(outDir, workbook.FileName(tpl))
			f, err := os.Create(out)
			if err != nil {
				return err
			}

			b := workbook.NewBuilder(locale())
			if rows > 0 {
				b.Rows = rows
			}
			err = b.WriteTo(f, workbook.BuildInput{
				Template:     tpl.WithValidatorTypes(validators),
				Validators:   validators,
				PreviousData: data,
			})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(out)
				return err
			}

			logger.Get().Info("workbook written", zap.String("path", out), zap.Int("fields", len(tpl.Fields)))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&templatePath, "template", "", "Template definition (YAML or JSON)")
	cmd.Flags().StringVar(&validatorsPath, "validators", "", "Validator definitions (YAML or JSON)")
	cmd.Flags().StringVar(&dataPath, "data", "", "Previously loaded data, one list per field")
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Output directory")
	cmd.Flags().IntVar(&rows, "rows", workbook.DefaultEntryRows, "Number of data-entry rows")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}
