package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"miro-api/internal/workbook"
)

func newIngestCmd() *cobra.Command {
	var (
		templatePath   string
		validatorsPath string
	)

	cmd := &cobra.Command{
		Use:   "ingest <file.xlsx>",
		Short: "Print the records of a filled workbook as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := loadTemplate(templatePath)
			if err != nil {
				return err
			}
			if validatorsPath != "" {
				validators, err := loadValidators(validatorsPath)
				if err != nil {
					return err
				}
				tpl = tpl.WithValidatorTypes(validators)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := workbook.NewIngestor(locale()).Ingest(f, tpl.FieldTypes())
			if err != nil {
				return err
			}
			if records == nil {
				records = []workbook.Record{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}

	cmd.Flags().StringVar(&templatePath, "template", "", "Template definition (YAML or JSON)")
	cmd.Flags().StringVar(&validatorsPath, "validators", "", "Validator definitions, to apply the datatypes they force")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}
