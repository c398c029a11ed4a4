// Package archive records one row per statement analysis run in BigQuery.
package archive

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/ledgerscan/statement-tools/internal/logger"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"

	maxErrorMessageLen = 2000
)

type RunRow struct {
	RunID          string `bigquery:"run_id"`          // REQUIRED
	Source         string `bigquery:"source"`          // REQUIRED
	ChecksumSHA256 string `bigquery:"checksum_sha256"` // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // REQUIRED
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	Model            string   `bigquery:"model"`
	TextMethod       string   `bigquery:"text_method"`
	TransactionCount int64    `bigquery:"transaction_count"`
	TokensUsed       int64    `bigquery:"tokens_used"`
	Warnings         []string `bigquery:"warnings"` // REPEATED
}

// Finish stamps the row with its end time and outcome. Error messages are
// cut to 2000 bytes.
func (r *RunRow) Finish(at time.Time, runErr error) {
	r.FinishedTS = bigquery.NullTimestamp{Timestamp: at, Valid: true}
	if runErr == nil {
		r.Status = StatusSuccess
		r.ErrorMessage = ""
		return
	}
	r.Status = StatusFailed
	r.ErrorMessage = truncate(runErr.Error(), maxErrorMessageLen)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Recorder persists run rows.
type Recorder interface {
	Record(ctx context.Context, row *RunRow) error
	Close() error
}

// rowPutter is the part of *bigquery.Inserter the recorder needs.
type rowPutter interface {
	Put(ctx context.Context, src interface{}) error
}

// BigQueryRecorder streams rows into project.dataset.table. It holds a
// shared client for the lifetime of the process.
type BigQueryRecorder struct {
	client   *bigquery.Client
	inserter rowPutter
	table    string
}

// CreateTableDDL returns the statement that creates the run table. It is
// safe to run repeatedly.
func CreateTableDDL(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s`"+` (
			run_id            STRING NOT NULL,
			source            STRING NOT NULL,
			checksum_sha256   STRING,
			started_ts        TIMESTAMP NOT NULL,
			finished_ts       TIMESTAMP,
			status            STRING NOT NULL,
			error_message     STRING,
			model             STRING,
			text_method       STRING,
			transaction_count INT64,
			tokens_used       INT64,
			warnings          ARRAY<STRING>
		)
		PARTITION BY DATE(started_ts)
	`, table)
}

func NewBigQueryRecorder(ctx context.Context, projectID, datasetID, tableID string, opts ...option.ClientOption) (*BigQueryRecorder, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRecorder: creating client: %w", err)
	}
	return &BigQueryRecorder{
		client:   client,
		inserter: client.Dataset(datasetID).Table(tableID).Inserter(),
		table:    fmt.Sprintf("%s.%s.%s", projectID, datasetID, tableID),
	}, nil
}

func (r *BigQueryRecorder) Record(ctx context.Context, row *RunRow) error {
	row.ErrorMessage = truncate(row.ErrorMessage, maxErrorMessageLen)
	if err := r.inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("BigQueryRecorder.Record: inserting run %s: %w", row.RunID, err)
	}
	log := logger.FromContext(ctx)
	log.Debug().
		Str("run_id", row.RunID).
		Str("table", r.table).
		Str("status", row.Status).
		Msg("Archived analysis run")
	return nil
}

// EnsureTable creates the run table when it does not exist yet.
func (r *BigQueryRecorder) EnsureTable(ctx context.Context) error {
	job, err := r.client.Query(CreateTableDDL(r.table)).Run(ctx)
	if err != nil {
		return fmt.Errorf("BigQueryRecorder.EnsureTable: running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("BigQueryRecorder.EnsureTable: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("BigQueryRecorder.EnsureTable: job error: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("table", r.table).Msg("Archive table ready")
	return nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRecorder) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// NopRecorder discards rows. It is used when archiving is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *RunRow) error { return nil }
func (NopRecorder) Close() error                          { return nil }

var (
	_ Recorder = (*BigQueryRecorder)(nil)
	_ Recorder = NopRecorder{}
)
