package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data for other teams",
}

var exportFinanceCmd = &cobra.Command{
	Use:   "finance",
	Short: "Write forwarded requests to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		app, err := newApp(ctx, cfg, appOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		out := exportOut
		if out == "" {
			out = "forwarded-" + time.Now().UTC().Format("20060102") + ".xlsx"
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}

		rows, err := app.Exporter.Export(ctx, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(out)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d forwarded requests to %s\n", rows, out)
		return nil
	},
}

func init() {
	exportFinanceCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file, defaults to forwarded-YYYYMMDD.xlsx")

	exportCmd.AddCommand(exportFinanceCmd)
	rootCmd.AddCommand(exportCmd)
}
