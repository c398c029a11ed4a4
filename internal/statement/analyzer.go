// Package statement analyzes bank statements: it reads the document text,
// asks a generative model for structured fields and insights, then masks,
// normalizes and quality-checks the reply.
package statement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerscan/statement-tools/internal/archive"
	"github.com/ledgerscan/statement-tools/internal/logger"
	"github.com/ledgerscan/statement-tools/internal/storage"
	"github.com/ledgerscan/statement-tools/internal/textsource"
)

// Analyzer wires the pipeline steps to their collaborators.
type Analyzer struct {
	store     storage.Store
	source    *textsource.Source
	model     Model
	modelName string
	prompts   Prompts
	tolerance decimal.Decimal
	recorder  archive.Recorder
	now       func() time.Time
}

type Options struct {
	Store  storage.Store
	Source *textsource.Source
	Model  Model
	// ModelName is recorded in the run archive.
	ModelName        string
	Prompts          Prompts
	BalanceTolerance float64
	// Recorder defaults to archive.NopRecorder.
	Recorder archive.Recorder
}

func NewAnalyzer(opts Options) *Analyzer {
	a := &Analyzer{
		store:     opts.Store,
		source:    opts.Source,
		model:     opts.Model,
		modelName: opts.ModelName,
		prompts:   opts.Prompts,
		tolerance: decimal.NewFromFloat(opts.BalanceTolerance),
		recorder:  opts.Recorder,
		now:       time.Now,
	}
	if a.source == nil {
		a.source = textsource.NewSource(nil, nil)
	}
	if a.recorder == nil {
		a.recorder = archive.NopRecorder{}
	}
	if a.prompts.Extraction == "" {
		a.prompts.Extraction = DefaultExtractionPrompt
	}
	if a.prompts.Insights == "" {
		a.prompts.Insights = DefaultInsightsPrompt
	}
	return a
}

// Pipeline returns the standard six-step analysis pipeline.
func (a *Analyzer) Pipeline() *Pipeline {
	return NewPipeline(
		&LoadDocumentStep{Store: a.store},
		&ReadTextStep{Source: a.source},
		&ExtractFieldsStep{Model: a.model, Prompt: a.prompts.Extraction},
		&NormalizeStep{Tolerance: a.tolerance},
		&InsightsStep{Model: a.model, Prompt: a.prompts.Insights},
		&QualityStep{},
	)
}

// Analyze runs the pipeline for one document and archives the outcome.
// Archive failures are logged and do not fail the analysis.
func (a *Analyzer) Analyze(ctx context.Context, source string) (*Result, error) {
	state := &State{RunID: uuid.NewString(), Source: source}

	log := logger.FromContext(ctx).With().Str("run_id", state.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	row := &archive.RunRow{
		RunID:     state.RunID,
		Source:    source,
		StartedTS: a.now(),
		Model:     a.modelName,
	}

	log.Info().Str("source", source).Msg("Starting statement analysis")
	runErr := a.Pipeline().Execute(ctx, state)

	row.ChecksumSHA256 = state.Checksum
	row.TextMethod = string(state.Text.Method)
	row.TransactionCount = int64(len(state.Fields.Transactions))
	row.TokensUsed = int64(state.TokensUsed)
	row.Warnings = state.Warnings
	row.Finish(a.now(), runErr)

	// The archive write must not be cut short by an expired run deadline.
	if err := a.recorder.Record(context.WithoutCancel(ctx), row); err != nil {
		log.Error().Err(err).Msg("Failed to archive analysis run")
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("Statement analysis failed")
		return nil, runErr
	}

	log.Info().
		Int("transactions", len(state.Fields.Transactions)).
		Int("warnings", len(state.Quality.Warnings)).
		Int32("tokens_used", state.TokensUsed).
		Msg("Statement analysis complete")
	return state.Result(), nil
}
