package statement

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerscan/statement-tools/internal/logger"
	"github.com/ledgerscan/statement-tools/internal/storage"
	"github.com/ledgerscan/statement-tools/internal/textsource"
)

// ErrUnsupportedDocument is returned for inputs that are neither PDF, image nor text.
var ErrUnsupportedDocument = textsource.ErrUnsupportedDocument

// Step represents a single step in the analysis pipeline.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps.
type State struct {
	RunID  string
	Source string

	Document textsource.Document
	Checksum string
	Text     textsource.Text

	RawModelOutput map[string]interface{}
	RawText        string
	Fields         Fields
	Insights       []string
	Quality        Quality

	Warnings   []string
	TokensUsed int32
	Truncated  bool
}

func (s *State) warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// Result assembles the output document from the state.
func (s *State) Result() *Result {
	insights := s.Insights
	if insights == nil {
		insights = []string{}
	}
	fields := s.Fields
	if fields.Transactions == nil {
		fields.Transactions = []Transaction{}
	}
	return &Result{
		RunID:    s.RunID,
		Source:   s.Source,
		Fields:   fields,
		Insights: insights,
		Quality:  s.Quality,
		RawText:  s.RawText,
	}
}

// Step 1: LoadDocumentStep fetches the document bytes from disk or GCS.
type LoadDocumentStep struct {
	Store storage.Store
}

func (s *LoadDocumentStep) Name() string { return "load_document" }

func (s *LoadDocumentStep) Execute(ctx context.Context, state *State) error {
	data, err := s.Store.Fetch(ctx, state.Source)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	state.Document = textsource.Document{Name: storage.FilenameFromURI(state.Source), Data: data}
	state.Checksum = hex.EncodeToString(sum[:])

	log := logger.FromContext(ctx)
	log.Info().
		Str("document", state.Document.Name).
		Int("bytes", len(data)).
		Str("checksum_sha256", state.Checksum).
		Msg("Loaded statement")
	return nil
}

// Step 2: ReadTextStep obtains the statement text, or decides to send the
// document inline.
type ReadTextStep struct {
	Source *textsource.Source
}

func (s *ReadTextStep) Name() string { return "read_text" }

func (s *ReadTextStep) Execute(ctx context.Context, state *State) error {
	text, err := s.Source.Read(ctx, state.Document)
	if err != nil {
		return err
	}
	state.Text = text
	log := logger.FromContext(ctx)
	log.Info().
		Str("text_method", string(text.Method)).
		Int("chars", len(text.Content)).
		Msg("Statement text ready")
	return nil
}

// Step 3: ExtractFieldsStep asks the model for the structured fields. A reply
// that is not JSON is kept as raw text and reported as a warning.
type ExtractFieldsStep struct {
	Model  Model
	Prompt string
}

func (s *ExtractFieldsStep) Name() string { return "extract_fields" }

func (s *ExtractFieldsStep) Execute(ctx context.Context, state *State) error {
	parts := []Part{{Text: s.Prompt}}
	if state.Text.Method == textsource.MethodInline {
		parts = append([]Part{{Data: state.Document.Data, MIMEType: state.Text.MIMEType}}, parts...)
	} else {
		parts = append(parts, Part{Text: "Here is the statement text:\n" + state.Text.Content})
	}

	gen, err := s.Model.Generate(ctx, parts)
	if err != nil {
		return err
	}
	state.TokensUsed += gen.TotalTokens
	if gen.Truncated {
		state.Truncated = true
	}

	raw, err := decodeObject(CleanModelJSON(gen.Text))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Extraction reply is not a JSON object")
		state.RawText = gen.Text
		state.RawModelOutput = map[string]interface{}{}
		state.warn(WarnUnexpectedJSON)
		return nil
	}
	state.RawModelOutput = raw
	return nil
}

// Step 4: NormalizeStep converts the raw reply into typed fields, masks the
// account number, normalizes amounts, checks balances and flags duplicates.
type NormalizeStep struct {
	Tolerance decimal.Decimal
}

func (s *NormalizeStep) Name() string { return "normalize" }

func (s *NormalizeStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	fields, warnings := transformModelOutput(state.RawModelOutput)
	for _, w := range warnings {
		log.Debug().Str("warning", w).Msg("Normalization issue")
		state.warn(w)
	}

	if ValidateBalances(&fields.Summary, s.Tolerance) {
		log.Warn().
			Str("opening", fields.Summary.OpeningBalance.String()).
			Str("closing", fields.Summary.ClosingBalance.String()).
			Msg("Balance mismatch")
		state.warn(WarnBalanceMismatch)
	}

	if n := DetectDuplicates(fields.Transactions); n > 0 {
		state.Quality.DuplicatesDetected = true
		state.warn(WarnDuplicates)
		log.Warn().Int("duplicates", n).Msg("Duplicate transactions detected")
	}

	state.Fields = fields
	return nil
}

// Step 5: InsightsStep asks the model for commentary on the final fields.
type InsightsStep struct {
	Model  Model
	Prompt string
}

func (s *InsightsStep) Name() string { return "insights" }

func (s *InsightsStep) Execute(ctx context.Context, state *State) error {
	payload, err := json.Marshal(struct {
		Fields Fields `json:"fields"`
	}{state.Fields})
	if err != nil {
		return fmt.Errorf("InsightsStep: encoding fields: %w", err)
	}

	gen, err := s.Model.Generate(ctx, []Part{{
		Text: s.Prompt + "\n\nHere is the extracted JSON:\n" + string(payload),
	}})
	if err != nil {
		return err
	}
	state.TokensUsed += gen.TotalTokens
	if gen.Truncated {
		state.Truncated = true
	}
	state.Insights = parseInsights(gen.Text)
	return nil
}

// parseInsights accepts {"insights": [...]} or a bare array of strings.
// Anything else becomes a single insight holding the reply text.
func parseInsights(text string) []string {
	clean := CleanModelJSON(text)

	var obj struct {
		Insights []interface{} `json:"insights"`
	}
	if err := json.Unmarshal([]byte(clean), &obj); err == nil && obj.Insights != nil {
		return stringsOf(obj.Insights)
	}
	var arr []interface{}
	if err := json.Unmarshal([]byte(clean), &arr); err == nil {
		return stringsOf(arr)
	}
	return []string{strings.TrimSpace(text)}
}

func stringsOf(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, v)
		case nil:
		default:
			b, _ := json.Marshal(v)
			out = append(out, string(b))
		}
	}
	return out
}

// Step 6: QualityStep records the quality metadata for the run.
type QualityStep struct{}

func (s *QualityStep) Name() string { return "quality" }

func (s *QualityStep) Execute(ctx context.Context, state *State) error {
	if len(state.Fields.Transactions) == 0 {
		state.warn(WarnNoTransactions)
	}
	if state.Truncated {
		state.warn(WarnTruncated)
	}

	warnings := state.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	state.Quality.Warnings = warnings
	state.Quality.GeminiExtractionUsed = true
	state.Quality.OCRConfidence = state.Text.Confidence
	state.Quality.TextMethod = string(state.Text.Method)
	state.Quality.TokensUsed = state.TokensUsed
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially, stopping at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d (%s) not started: %w", i+1, step.Name(), err)
		}
		log.Debug().Int("step", i+1).Str("name", step.Name()).Msg("Running pipeline step")
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

func decodeObject(s string) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("decodeObject: null document")
	}
	return out, nil
}
