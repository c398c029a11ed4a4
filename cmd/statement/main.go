package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/ledgerscan/statement-tools/internal/archive"
	"github.com/ledgerscan/statement-tools/internal/config"
	"github.com/ledgerscan/statement-tools/internal/logger"
	"github.com/ledgerscan/statement-tools/internal/statement"
	"github.com/ledgerscan/statement-tools/internal/storage"
	"github.com/ledgerscan/statement-tools/internal/textsource"
	"github.com/ledgerscan/statement-tools/internal/textsource/tesseract"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "statement",
		Short:         "Analyze bank statements with Gemini",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is ./statement-tools.yaml)")
	root.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().Duration("timeout", 5*time.Minute, "Overall timeout for one command")
	root.PersistentFlags().Bool("no-ocr", false, "Disable OCR; images are sent to the model inline")

	analyze := &cobra.Command{
		Use:   "analyze <file-or-gs-uri>",
		Short: "Extract fields and insights from a statement and write them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyze.Flags().StringP("out", "o", "output.json", "Output path, local or gs://bucket/object")
	analyze.Flags().Bool("test", false, "Write a sample result without calling any external service")
	analyze.Flags().String("model", "", "Gemini model name (overrides config)")

	text := &cobra.Command{
		Use:   "text <file-or-gs-uri>",
		Short: "Print the statement text that would be sent to the model",
		Args:  cobra.ExactArgs(1),
		RunE:  runText,
	}

	archiveInit := &cobra.Command{
		Use:   "archive-init",
		Short: "Create the BigQuery run archive table if it does not exist",
		Args:  cobra.NoArgs,
		RunE:  runArchiveInit,
	}

	root.AddCommand(analyze, text, archiveInit)
	return root
}

// setup loads and validates the configuration and returns a context carrying
// the logger and the configured deadline.
func setup(cmd *cobra.Command) (context.Context, context.CancelFunc, *config.Config, zerolog.Logger, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, zerolog.Nop(), err
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	ctx = logger.WithContext(ctx, log)
	return ctx, cancel, cfg, log, nil
}

func newTextSource(cfg *config.Config) *textsource.Source {
	if !cfg.OCR.Enabled {
		return textsource.NewSource(textsource.PDFExtractor{}, nil)
	}
	return textsource.NewSource(textsource.PDFExtractor{}, tesseract.New(cfg.OCR.Language, cfg.OCR.MinHeight))
}

func gcpOptions(cfg *config.Config) []option.ClientOption {
	if cfg.GCP.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.GCP.CredentialsFile)}
}

func newRecorder(ctx context.Context, cfg *config.Config) (archive.Recorder, error) {
	if !cfg.Archive.Enabled() {
		return archive.NopRecorder{}, nil
	}
	return archive.NewBigQueryRecorder(ctx, cfg.Archive.Project, cfg.Archive.Dataset, cfg.Archive.Table, gcpOptions(cfg)...)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel, cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	src := args[0]
	outPath, _ := cmd.Flags().GetString("out")
	testMode, _ := cmd.Flags().GetBool("test")
	store := storage.NewService(cfg.GCP.CredentialsFile)

	var res *statement.Result
	if testMode {
		log.Info().Str("source", src).Msg("Test mode, writing sample result")
		res = statement.MockResult(src)
	} else {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		model, err := statement.NewGeminiModel(ctx, cfg.Gemini)
		if err != nil {
			return err
		}
		recorder, err := newRecorder(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close archive recorder")
			}
		}()

		analyzer := statement.NewAnalyzer(statement.Options{
			Store:            store,
			Source:           newTextSource(cfg),
			Model:            model,
			ModelName:        model.Name(),
			Prompts:          statement.LoadPrompts(log, cfg.Prompts.ExtractionFile, cfg.Prompts.InsightsFile),
			BalanceTolerance: cfg.Statement.BalanceTolerance,
			Recorder:         recorder,
		})
		res, err = analyzer.Analyze(ctx, src)
		if err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := store.Write(ctx, outPath, append(data, '\n')); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote: %s\n", outPath)
	fmt.Fprintln(out, res.SummaryLine(cfg.Statement.Currency))
	return nil
}

func runText(cmd *cobra.Command, args []string) error {
	ctx, cancel, cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	store := storage.NewService(cfg.GCP.CredentialsFile)
	data, err := store.Fetch(ctx, args[0])
	if err != nil {
		return err
	}

	text, err := newTextSource(cfg).Read(ctx, textsource.Document{Name: storage.FilenameFromURI(args[0]), Data: data})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if text.Method == textsource.MethodInline {
		fmt.Fprintf(out, "No text found; the document would be sent inline as %s.\n", text.MIMEType)
		return nil
	}
	fmt.Fprintln(out, text.Content)
	return nil
}

func runArchiveInit(cmd *cobra.Command, _ []string) error {
	ctx, cancel, cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	if !cfg.Archive.Enabled() {
		return errors.New("archive.project is not set")
	}
	rec, err := archive.NewBigQueryRecorder(ctx, cfg.Archive.Project, cfg.Archive.Dataset, cfg.Archive.Table, gcpOptions(cfg)...)
	if err != nil {
		return err
	}
	defer rec.Close()

	if err := rec.EnsureTable(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Archive table %s.%s.%s is ready\n", cfg.Archive.Project, cfg.Archive.Dataset, cfg.Archive.Table)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
