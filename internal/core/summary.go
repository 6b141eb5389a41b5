package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID ID
	Name       string
	Amount     Amount
}

// DailyBucket holds the revenue and expense totals of one calendar day.
type DailyBucket struct {
	Date     Date
	Income   Amount
	Expenses Amount
}

// LabeledTransaction is a transaction with its account and category
// references resolved to display names.
type LabeledTransaction struct {
	Transaction
	Account  string
	Category string
}

// Summary is the dashboard view derived from one loaded snapshot.
type Summary struct {
	InitialBalance Amount
	Income         Amount
	Expenses       Amount
	Balance        Amount
	AccountCount   int
	Daily          []DailyBucket
	ByCategory     []CategoryAmount
	Recent         []LabeledTransaction
}
