package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	Cash Account = "Cash"
	Bank Account = "Bank"
	Card Account = "Card"
)

// BaseCurrency is the only currency that contributes to numeric totals.
// Transactions in other currencies are listed but never summed; there is
// no conversion.
const BaseCurrency = "USD"

// MaxImageURLs caps the number of attachments per transaction.
const MaxImageURLs = 5

type (
	TransactionType string

	Account string

	// Transaction is one financial event. Amount is always a positive
	// magnitude; direction is encoded by Type alone. Records are immutable
	// once created except via a full-replace edit that keeps the ID.
	Transaction struct {
		ID          string          `json:"id"`
		Date        time.Time       `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Account     Account         `json:"account"`
		Currency    string          `json:"currency"`
		ImageURLs   []string        `json:"imageUrls,omitempty"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrInvalidDate     = errors.New("date cannot be zero")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrTooManyImages   = errors.New("too many image attachments")

	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrInvalidSort        = errors.New("invalid sort specification")
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense, Transfer:
		return nil
	default:
		return ErrInvalidType
	}
}

func (a Account) Validate() error {
	switch a {
	case Cash, Bank, Card:
		return nil
	default:
		return ErrInvalidAccount
	}
}

// Validate checks the store-boundary invariants. The aggregation functions
// assume their input already passed this check.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Account.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Currency)) < 3 {
		return ErrInvalidCurrency
	}
	if len(t.ImageURLs) > MaxImageURLs {
		return ErrTooManyImages
	}
	return nil
}
