package statement

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var summaryAmountKeys = []string{
	"opening_balance",
	"closing_balance",
	"total_credits",
	"total_debits",
	"average_daily_balance",
}

// transformModelOutput converts the decoded extraction reply into typed
// fields. Problems with individual values are reported as warnings and the
// affected value is left empty; the transform itself never fails.
func transformModelOutput(raw map[string]interface{}) (Fields, []string) {
	var warnings []string
	fields := Fields{Transactions: []Transaction{}}

	root := raw
	if inner, ok := raw["fields"].(map[string]interface{}); ok {
		root = inner
	} else if _, ok := raw["fields"]; ok {
		return fields, []string{WarnUnexpectedJSON}
	}

	if v, ok := root["account_info"]; ok && v != nil {
		obj, ok := v.(map[string]interface{})
		if !ok {
			warnings = append(warnings, fmt.Sprintf("account_info has type %T, want object", v))
		} else {
			info, errs := transformAccountInfo(obj)
			fields.AccountInfo = info
			warnings = appendErrs(warnings, errs)
		}
	}

	if v, ok := root["summary"]; ok && v != nil {
		obj, ok := v.(map[string]interface{})
		if !ok {
			warnings = append(warnings, fmt.Sprintf("summary has type %T, want object", v))
		} else {
			summary, errs := transformSummary(obj)
			fields.Summary = summary
			warnings = appendErrs(warnings, errs)
		}
	}

	if v, ok := root["transactions"]; ok && v != nil {
		items, ok := v.([]interface{})
		if !ok {
			warnings = append(warnings, fmt.Sprintf("transactions has type %T, want array", v))
		} else {
			for i, item := range items {
				obj, ok := item.(map[string]interface{})
				if !ok {
					warnings = append(warnings, fmt.Sprintf("transaction %d has type %T, want object", i, item))
					continue
				}
				tx, errs := transformTransaction(obj)
				for _, err := range errs {
					warnings = append(warnings, fmt.Sprintf("transaction %d: %v", i, err))
				}
				fields.Transactions = append(fields.Transactions, tx)
			}
		}
	}

	return fields, warnings
}

func transformAccountInfo(obj map[string]interface{}) (AccountInfo, []error) {
	var errs []error
	str := func(key string) string {
		s, err := getStringField(obj, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("account_info: %w", err))
		}
		return s
	}

	info := AccountInfo{
		BankName:          str("bank_name"),
		AccountHolderName: str("account_holder_name"),
		StatementMonth:    str("statement_month"),
		AccountType:       str("account_type"),
	}

	// A raw account number always wins over whatever masking the model did.
	if full := str("account_number"); full != "" {
		info.MaskedAccountNumber = MaskAccountNumber(full)
	} else if masked := str("masked_account_number"); masked != "" {
		info.MaskedAccountNumber = MaskAccountNumber(masked)
	}

	year, err := getIntField(obj, "statement_year")
	if err != nil {
		errs = append(errs, fmt.Errorf("account_info: %w", err))
	}
	info.StatementYear = year

	return info, errs
}

func transformSummary(obj map[string]interface{}) (Summary, []error) {
	var errs []error
	amounts := make(map[string]Amount, len(summaryAmountKeys))
	for _, key := range summaryAmountKeys {
		a, err := normalizeAmount(obj[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("summary.%s: %w", key, err))
		}
		amounts[key] = a
	}

	overdrafts, err := getIntField(obj, "overdraft_count")
	if err != nil {
		errs = append(errs, fmt.Errorf("summary: %w", err))
	}
	nsf, err := getIntField(obj, "nsf_count")
	if err != nil {
		errs = append(errs, fmt.Errorf("summary: %w", err))
	}

	return Summary{
		OpeningBalance:      amounts["opening_balance"],
		ClosingBalance:      amounts["closing_balance"],
		TotalCredits:        amounts["total_credits"],
		TotalDebits:         amounts["total_debits"],
		AverageDailyBalance: amounts["average_daily_balance"],
		OverdraftCount:      overdrafts,
		NSFCount:            nsf,
	}, errs
}

func transformTransaction(obj map[string]interface{}) (Transaction, []error) {
	var errs []error
	str := func(key string) string {
		s, err := getStringField(obj, key)
		if err != nil {
			errs = append(errs, err)
		}
		return s
	}

	tx := Transaction{
		Date:        str("date"),
		Description: str("description"),
		Category:    str("category"),
	}

	var err error
	if tx.Amount, err = normalizeAmount(obj["amount"]); err != nil {
		errs = append(errs, fmt.Errorf("amount: %w", err))
	}
	if tx.Balance, err = normalizeAmount(obj["balance"]); err != nil {
		errs = append(errs, fmt.Errorf("balance: %w", err))
	}
	return tx, errs
}

// getStringField returns a trimmed string, "" for missing or null values.
func getStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case json.Number:
		return val.String(), nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

// getIntField accepts numbers and numeric strings; missing or null is 0.
func getIntField(m map[string]interface{}, key string) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return int(f), nil
	case float64:
		return int(val), nil
	case int:
		return val, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("field %q: %q is not an integer", key, val)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

func appendErrs(warnings []string, errs []error) []string {
	for _, err := range errs {
		warnings = append(warnings, err.Error())
	}
	return warnings
}
