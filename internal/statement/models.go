package statement

// AccountInfo identifies the statement holder. The account number is only
// ever kept in masked form.
type AccountInfo struct {
	BankName            string `json:"bank_name"`
	AccountHolderName   string `json:"account_holder_name"`
	MaskedAccountNumber string `json:"masked_account_number"`
	StatementMonth      string `json:"statement_month"`
	StatementYear       int    `json:"statement_year,omitempty"`
	AccountType         string `json:"account_type"`
}

type Summary struct {
	OpeningBalance      Amount `json:"opening_balance"`
	ClosingBalance      Amount `json:"closing_balance"`
	TotalCredits        Amount `json:"total_credits"`
	TotalDebits         Amount `json:"total_debits"`
	AverageDailyBalance Amount `json:"average_daily_balance"`
	OverdraftCount      int    `json:"overdraft_count"`
	NSFCount            int    `json:"nsf_count"`

	BalanceMismatchWarning bool `json:"balance_mismatch_warning,omitempty"`
}

// Transaction is one statement line. Amount is signed: money in is positive.
type Transaction struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	Balance     Amount `json:"balance"`
	Category    string `json:"category"`
}

type Fields struct {
	AccountInfo  AccountInfo   `json:"account_info"`
	Summary      Summary       `json:"summary"`
	Transactions []Transaction `json:"transactions"`
}

type Quality struct {
	OCRConfidence        *float64 `json:"ocr_confidence"`
	Warnings             []string `json:"warnings"`
	DuplicatesDetected   bool     `json:"duplicates_detected"`
	GeminiExtractionUsed bool     `json:"gemini_extraction_used"`
	TextMethod           string   `json:"text_method,omitempty"`
	TokensUsed           int32    `json:"tokens_used,omitempty"`
}

// Result is the document written by the analyzer.
type Result struct {
	RunID    string   `json:"run_id"`
	Source   string   `json:"source"`
	Fields   Fields   `json:"fields"`
	Insights []string `json:"insights"`
	Quality  Quality  `json:"quality"`
	// RawText holds the model reply when it could not be parsed as JSON.
	RawText string `json:"raw_text,omitempty"`
}

// Quality warning messages.
const (
	WarnNoTransactions  = "No transactions extracted."
	WarnUnexpectedJSON  = "Unexpected JSON structure from Gemini."
	WarnDuplicates      = "Duplicate transactions detected."
	WarnBalanceMismatch = "Closing balance does not match opening balance plus credits minus debits."
	WarnTruncated       = "Gemini output truncated due to token limit."
)
