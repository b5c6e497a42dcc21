package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"miro-api/internal/logger"
	"miro-api/internal/workbook"
)

var (
	dateLayout string
	logLevel   string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "miro",
		Short: "Template workbooks for MIRÓ from the command line",
		Long: `Build data-entry workbooks from template definitions and read filled
workbooks back into records, without going through the web service.

Definitions are YAML or JSON files shaped like the backend documents.

Examples:
  miro export --template matricula.yaml --validators sedes.yaml -o out/
  miro ingest matricula.xlsx --template matricula.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logLevel, "console")
		},
	}

	root.PersistentFlags().StringVar(&dateLayout, "date-layout", workbook.DefaultDateLocale().DisplayLayout, "Go layout of dates typed by users")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")

	root.AddCommand(newExportCmd(), newIngestCmd())
	return root
}

func locale() workbook.DateLocale {
	return workbook.DefaultDateLocale().WithLayout(dateLayout)
}

// decodeFile reads a YAML or JSON document into out.
func decodeFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func loadTemplate(path string) (workbook.Template, error) {
	var t workbook.Template
	if err := decodeFile(path, &t); err != nil {
		return t, err
	}
	for _, f := range t.Fields {
		if err := f.Validate(); err != nil {
			return t, err
		}
	}
	return t, nil
}

// loadValidators accepts either a list of validators or a single one.
func loadValidators(path string) ([]workbook.Validator, error) {
	var list []workbook.Validator
	if err := decodeFile(path, &list); err != nil {
		var one workbook.Validator
		if err2 := decodeFile(path, &one); err2 != nil {
			return nil, err
		}
		list = []workbook.Validator{one}
	}
	for _, v := range list {
		if err := v.Check(); err != nil {
			return nil, err
		}
	}
	return list, nil
}
