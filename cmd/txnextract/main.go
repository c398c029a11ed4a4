package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerscan/statement-tools/internal/config"
	"github.com/ledgerscan/statement-tools/internal/logger"
	"github.com/ledgerscan/statement-tools/internal/report"
	"github.com/ledgerscan/statement-tools/internal/txnlog"
)

var (
	cfgFile  string
	asJSON   bool
	logLevel string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "txnextract [file]",
		Short:         "Extract TYPE/AMT/ID transaction records from a text file or stdin",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runExtract,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is ./statement-tools.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as a JSON array instead of the report")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	log := logger.NewWithLevel(cfg.Log.Level)

	var (
		in   io.Reader = cmd.InOrStdin()
		name           = "stdin"
	)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			log.Error().Err(err).Str("file", args[0]).Msg("Cannot open input")
			return err
		}
		defer f.Close()
		in, name = f, args[0]
	}

	records, err := txnlog.NewExtractor(log).ExtractReader(in)
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("Cannot extract records")
		return err
	}
	log.Debug().Str("file", name).Int("records", len(records)).Msg("Extraction complete")

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return report.Write(out, records)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
