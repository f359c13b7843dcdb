package model

import "time"

// TransactionType は取引の種別を表す。
type TransactionType string

const (
	// TransactionTypeIncome は収入。
	TransactionTypeIncome TransactionType = "INCOME"
	// TransactionTypeExpense は支出。
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// TransactionDateLayout は取引日のJSON表現。
const TransactionDateLayout = "2006-01-02"

// FinancialTransaction はユーザーごとの収支記録を表す。
// Amount は通貨の最小単位（円、セント等）で保持する。
type FinancialTransaction struct {
	ID              string
	UserID          string
	Amount          int64
	Type            TransactionType
	Category        string
	Description     string
	TransactionDate time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TransactionInput は取引登録リクエストの入力。
type TransactionInput struct {
	Amount          int64  `json:"amount"`
	Type            string `json:"type"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	TransactionDate string `json:"transactionDate"`
}
