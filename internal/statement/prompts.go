package statement

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultExtractionPrompt asks for the three-section JSON document that
// transformModelOutput understands.
const DefaultExtractionPrompt = `Return ONLY valid JSON with keys:
{
  "fields": {
    "account_info": {
      "bank_name": "",
      "account_holder_name": "",
      "masked_account_number": "",
      "statement_month": "",
      "statement_year": "",
      "account_type": ""
    },
    "summary": {
      "opening_balance": 0.0,
      "closing_balance": 0.0,
      "total_credits": 0.0,
      "total_debits": 0.0,
      "average_daily_balance": 0.0,
      "overdraft_count": 0,
      "nsf_count": 0
    },
    "transactions": [
      {
        "date": "YYYY-MM-DD",
        "description": "",
        "amount": 0.0,
        "balance": 0.0,
        "category": ""
      }
    ]
  }
}
- Mask account numbers except last 4 digits.
- Normalize currency symbols.
- Dates should follow YYYY-MM-DD format.
- Amounts are positive for money in and negative for money out.
Do NOT wrap the response in code fences.
`

const DefaultInsightsPrompt = `Given the extracted JSON (fields + summary + transactions), return a JSON object:
{"insights": ["...", "...", "..."]}
Focus on:
- Monthly income pattern
- Spending categories
- Overdrafts or low balance events
- Salary detection
- UPI or ATM spending patterns
Return ONLY JSON (no explanation).
`

type Prompts struct {
	Extraction string
	Insights   string
}

// LoadPrompts reads instruction overrides from disk. A missing or empty file
// falls back to the built-in prompt.
func LoadPrompts(log zerolog.Logger, extractionFile, insightsFile string) Prompts {
	return Prompts{
		Extraction: readPrompt(log, extractionFile, DefaultExtractionPrompt),
		Insights:   readPrompt(log, insightsFile, DefaultInsightsPrompt),
	}
}

func readPrompt(log zerolog.Logger, path, fallback string) string {
	if path == "" {
		return fallback
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Debug().Str("path", path).Msg("Prompt file not readable, using built-in prompt")
		return fallback
	}
	if strings.TrimSpace(string(b)) == "" {
		return fallback
	}
	log.Info().Str("path", path).Msg("Loaded prompt override")
	return string(b)
}
