package statement

// MockResult returns a fixed sample analysis. It makes no external calls and
// backs the CLI's --test mode.
func MockResult(source string) *Result {
	return &Result{
		RunID:  "mock",
		Source: source,
		Fields: Fields{
			AccountInfo: AccountInfo{
				BankName:            "HDFC Bank",
				AccountHolderName:   "BARATH R",
				MaskedAccountNumber: "****1234",
				StatementMonth:      "October",
				StatementYear:       2025,
				AccountType:         "savings",
			},
			Summary: Summary{
				OpeningBalance:      NewAmount("15000"),
				ClosingBalance:      NewAmount("17350"),
				TotalCredits:        NewAmount("9000"),
				TotalDebits:         NewAmount("6650"),
				AverageDailyBalance: NewAmount("16200"),
				OverdraftCount:      0,
				NSFCount:            0,
			},
			Transactions: []Transaction{
				{Date: "2025-10-01", Description: "Salary UPI", Amount: NewAmount("9000"), Balance: NewAmount("24000"), Category: "Income"},
				{Date: "2025-10-03", Description: "ATM Withdrawal", Amount: NewAmount("-2000"), Balance: NewAmount("22000"), Category: "ATM Cash"},
				{Date: "2025-10-12", Description: "Swiggy", Amount: NewAmount("-350"), Balance: NewAmount("21650"), Category: "Food"},
			},
		},
		Insights: []string{
			"Account maintained > ₹15,000 average balance in Oct.",
			"Incoming salary detected on 1 Oct; consider auto-sweep to FD.",
			"Cash withdrawals low; UPI preferred.",
		},
		Quality: Quality{
			Warnings:             []string{},
			DuplicatesDetected:   false,
			GeminiExtractionUsed: false,
		},
	}
}
