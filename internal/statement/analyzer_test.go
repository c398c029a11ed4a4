package statement

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerscan/statement-tools/internal/archive"
	"github.com/ledgerscan/statement-tools/internal/textsource"
)

type mockStore struct {
	FetchFunc func(ctx context.Context, uri string) ([]byte, error)
	WriteFunc func(ctx context.Context, uri string, data []byte) error
}

func (m *mockStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, uri)
	}
	return nil, errors.New("not found")
}

func (m *mockStore) Write(ctx context.Context, uri string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, uri, data)
	}
	return nil
}

type mockModel struct {
	GenerateFunc func(ctx context.Context, parts []Part) (Generation, error)
	calls        [][]Part
}

func (m *mockModel) Generate(ctx context.Context, parts []Part) (Generation, error) {
	m.calls = append(m.calls, parts)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, parts)
	}
	return Generation{}, nil
}

type mockRecorder struct {
	RecordFunc func(ctx context.Context, row *archive.RunRow) error
	rows       []*archive.RunRow
}

func (m *mockRecorder) Record(ctx context.Context, row *archive.RunRow) error {
	m.rows = append(m.rows, row)
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, row)
	}
	return nil
}

func (m *mockRecorder) Close() error { return nil }

type pdfStub struct {
	text string
	err  error
}

func (p pdfStub) ExtractText(context.Context, []byte) (string, error) {
	return p.text, p.err
}

const extractionReply = "```json\n" + `{
  "fields": {
    "account_info": {
      "bank_name": "HDFC Bank",
      "account_holder_name": "BARATH R",
      "account_number": "50100123451234",
      "statement_month": "October",
      "statement_year": 2025,
      "account_type": "savings"
    },
    "summary": {
      "opening_balance": "15,000.00",
      "closing_balance": "17,350.00",
      "total_credits": 9000,
      "total_debits": 6650,
      "average_daily_balance": 16200,
      "overdraft_count": 0,
      "nsf_count": 0
    },
    "transactions": [
      {"date": "2025-10-01", "description": "Salary UPI", "amount": 9000, "balance": 24000, "category": "Income"},
      {"date": "2025-10-03", "description": "ATM Withdrawal", "amount": -2000, "balance": 22000, "category": "ATM Cash"}
    ]
  }
}` + "\n```"

const statementText = "HDFC Bank statement October 2025\n01/10/2025 Salary UPI 9,000.00 24,000.00\n"

// replies returns a model that answers the extraction call and the insights
// call with the given texts.
func replies(extraction, insights string) *mockModel {
	m := &mockModel{}
	m.GenerateFunc = func(_ context.Context, parts []Part) (Generation, error) {
		if len(m.calls) == 1 {
			return Generation{Text: extraction, TotalTokens: 1200}, nil
		}
		return Generation{Text: insights, TotalTokens: 300}, nil
	}
	return m
}

func textStore(data string) *mockStore {
	return &mockStore{FetchFunc: func(context.Context, string) ([]byte, error) {
		return []byte(data), nil
	}}
}

func TestAnalyze_TextStatement(t *testing.T) {
	model := replies(extractionReply, `{"insights": ["Salary credited on 1 Oct."]}`)
	rec := &mockRecorder{}
	a := NewAnalyzer(Options{
		Store:            textStore(statementText),
		Model:            model,
		ModelName:        "gemini-2.5-flash",
		BalanceTolerance: 1,
		Recorder:         rec,
	})

	res, err := a.Analyze(context.Background(), "statements/oct.txt")
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "statements/oct.txt", res.Source)
	assert.Equal(t, "****1234", res.Fields.AccountInfo.MaskedAccountNumber)
	assert.Equal(t, "15000", res.Fields.Summary.OpeningBalance.String())
	assert.Len(t, res.Fields.Transactions, 2)
	assert.Equal(t, []string{"Salary credited on 1 Oct."}, res.Insights)

	q := res.Quality
	assert.Empty(t, q.Warnings)
	assert.NotNil(t, q.Warnings)
	assert.True(t, q.GeminiExtractionUsed)
	assert.False(t, q.DuplicatesDetected)
	assert.Nil(t, q.OCRConfidence)
	assert.Equal(t, "plain", q.TextMethod)
	assert.Equal(t, int32(1500), q.TokensUsed)

	require.Len(t, model.calls, 2)
	extract := model.calls[0]
	require.Len(t, extract, 2)
	assert.Equal(t, DefaultExtractionPrompt, extract[0].Text)
	assert.Equal(t, "Here is the statement text:\n"+statementText, extract[1].Text)

	insights := model.calls[1]
	require.Len(t, insights, 1)
	assert.True(t, strings.HasPrefix(insights[0].Text, DefaultInsightsPrompt))
	assert.Contains(t, insights[0].Text, `"masked_account_number":"****1234"`)
	assert.NotContains(t, insights[0].Text, "50100123451234")

	require.Len(t, rec.rows, 1)
	row := rec.rows[0]
	assert.Equal(t, res.RunID, row.RunID)
	assert.Equal(t, archive.StatusSuccess, row.Status)
	assert.Empty(t, row.ErrorMessage)
	assert.Equal(t, "gemini-2.5-flash", row.Model)
	assert.Equal(t, "plain", row.TextMethod)
	assert.Equal(t, int64(2), row.TransactionCount)
	assert.Equal(t, int64(1500), row.TokensUsed)
	assert.Len(t, row.ChecksumSHA256, 64)
	assert.True(t, row.FinishedTS.Valid)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "50100123451234")
}

func TestAnalyze_ScannedPDFGoesInline(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%scan\n")
	model := replies(extractionReply, `["Steady salary."]`)
	a := NewAnalyzer(Options{
		Store:  textStore(string(pdf)),
		Source: textsource.NewSource(pdfStub{text: "  "}, nil),
		Model:  model,
	})

	res, err := a.Analyze(context.Background(), "gs://bucket/oct.pdf")
	require.NoError(t, err)
	assert.Equal(t, "inline", res.Quality.TextMethod)
	assert.Equal(t, []string{"Steady salary."}, res.Insights)

	extract := model.calls[0]
	require.Len(t, extract, 2)
	assert.Equal(t, pdf, extract[0].Data)
	assert.Equal(t, "application/pdf", extract[0].MIMEType)
	assert.Equal(t, DefaultExtractionPrompt, extract[1].Text)
}

func TestAnalyze_QualityWarnings(t *testing.T) {
	reply := `{"fields": {
	  "summary": {"opening_balance": 100, "closing_balance": 500, "total_credits": 50, "total_debits": 0},
	  "transactions": [
	    {"date": "2025-10-01", "description": "Swiggy", "amount": -350},
	    {"date": "2025-10-01", "description": "SWIGGY", "amount": -350}
	  ]
	}}`
	model := &mockModel{}
	model.GenerateFunc = func(context.Context, []Part) (Generation, error) {
		if len(model.calls) == 1 {
			return Generation{Text: reply, Truncated: true}, nil
		}
		return Generation{Text: "Spending is mostly food."}, nil
	}
	a := NewAnalyzer(Options{Store: textStore(statementText), Model: model, BalanceTolerance: 1})

	res, err := a.Analyze(context.Background(), "oct.txt")
	require.NoError(t, err)

	assert.True(t, res.Fields.Summary.BalanceMismatchWarning)
	assert.True(t, res.Quality.DuplicatesDetected)
	assert.Equal(t, []string{WarnBalanceMismatch, WarnDuplicates, WarnTruncated}, res.Quality.Warnings)
	assert.Equal(t, []string{"Spending is mostly food."}, res.Insights)
}

func TestAnalyze_UnparseableReply(t *testing.T) {
	model := replies("I could not read this statement.", `{"insights": []}`)
	a := NewAnalyzer(Options{Store: textStore(statementText), Model: model})

	res, err := a.Analyze(context.Background(), "oct.txt")
	require.NoError(t, err)

	assert.Equal(t, "I could not read this statement.", res.RawText)
	assert.Equal(t, []string{WarnUnexpectedJSON, WarnNoTransactions}, res.Quality.Warnings)
	assert.NotNil(t, res.Fields.Transactions)
	assert.Empty(t, res.Fields.Transactions)
	assert.Equal(t, []string{}, res.Insights)
}

func TestAnalyze_Failure(t *testing.T) {
	t.Run("fetch error", func(t *testing.T) {
		rec := &mockRecorder{}
		model := &mockModel{}
		a := NewAnalyzer(Options{Store: &mockStore{}, Model: model, Recorder: rec})

		res, err := a.Analyze(context.Background(), "missing.pdf")
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Contains(t, err.Error(), "pipeline step 1 (load_document) failed")
		assert.Empty(t, model.calls)

		require.Len(t, rec.rows, 1)
		assert.Equal(t, archive.StatusFailed, rec.rows[0].Status)
		assert.Contains(t, rec.rows[0].ErrorMessage, "not found")
	})

	t.Run("unsupported document", func(t *testing.T) {
		a := NewAnalyzer(Options{Store: textStore("\x00\x01\x02\x03binary"), Model: &mockModel{}})

		_, err := a.Analyze(context.Background(), "blob.bin")
		assert.ErrorIs(t, err, ErrUnsupportedDocument)
	})

	t.Run("model error", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		model := &mockModel{GenerateFunc: func(context.Context, []Part) (Generation, error) {
			return Generation{}, boom
		}}
		a := NewAnalyzer(Options{Store: textStore(statementText), Model: model})

		_, err := a.Analyze(context.Background(), "oct.txt")
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "extract_fields")
	})

	t.Run("archive error does not fail the run", func(t *testing.T) {
		rec := &mockRecorder{RecordFunc: func(context.Context, *archive.RunRow) error {
			return errors.New("bigquery unavailable")
		}}
		a := NewAnalyzer(Options{
			Store:    textStore(statementText),
			Model:    replies(extractionReply, `[]`),
			Recorder: rec,
		})

		res, err := a.Analyze(context.Background(), "oct.txt")
		require.NoError(t, err)
		assert.NotNil(t, res)
		assert.Len(t, rec.rows, 1)
	})
}

func TestAnalyze_ArchiveOutlivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var recordErr error
	rec := &mockRecorder{RecordFunc: func(ctx context.Context, _ *archive.RunRow) error {
		recordErr = ctx.Err()
		return nil
	}}
	store := &mockStore{FetchFunc: func(context.Context, string) ([]byte, error) {
		cancel()
		return []byte(statementText), nil
	}}
	a := NewAnalyzer(Options{Store: store, Model: &mockModel{}, Recorder: rec})

	_, err := a.Analyze(ctx, "oct.txt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, recordErr)
	require.Len(t, rec.rows, 1)
	assert.Equal(t, archive.StatusFailed, rec.rows[0].Status)
}

func TestPipeline_StopsAtFirstError(t *testing.T) {
	var ran []string
	step := func(name string, err error) Step {
		return &funcStep{name: name, fn: func(context.Context, *State) error {
			ran = append(ran, name)
			return err
		}}
	}

	p := NewPipeline(step("a", nil), step("b", errors.New("bad")), step("c", nil))
	err := p.Execute(context.Background(), &State{})
	require.Error(t, err)
	assert.Equal(t, "pipeline step 2 (b) failed: bad", err.Error())
	assert.Equal(t, []string{"a", "b"}, ran)
}

type funcStep struct {
	name string
	fn   func(context.Context, *State) error
}

func (s *funcStep) Name() string                                  { return s.name }
func (s *funcStep) Execute(ctx context.Context, state *State) error { return s.fn(ctx, state) }

func TestRunRowFinish(t *testing.T) {
	row := &archive.RunRow{}
	row.Finish(time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC), errors.New(strings.Repeat("x", 2500)))
	assert.Equal(t, archive.StatusFailed, row.Status)
	assert.Len(t, row.ErrorMessage, 2000)
}
