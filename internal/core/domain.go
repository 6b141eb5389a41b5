package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Revenue TransactionType = "revenue"
	Expense TransactionType = "expense"
)

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// ID identifies a server-owned record.
	ID int64

	User struct {
		ID       ID     `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
		IsActive bool   `json:"is_active"`
	}

	Account struct {
		ID             ID     `json:"id"`
		Name           string `json:"name"`
		InitialBalance Amount `json:"initial_balance"`
	}

	Category struct {
		ID   ID     `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID          ID              `json:"id"`
		Amount      Amount          `json:"amount"`
		Type        TransactionType `json:"transaction_type"`
		Description string          `json:"description,omitempty"`
		Source      string          `json:"source,omitempty"`
		Date        Date            `json:"date"`
		AccountID   *ID             `json:"account_id"`
		CategoryID  *ID             `json:"category_id"`
	}
)

// Form values submitted through the create/edit dialogs. They carry every
// field except the server-assigned id.
type (
	AccountInput struct {
		Name           string `json:"name"`
		InitialBalance Amount `json:"initial_balance"`
	}

	CategoryInput struct {
		Name string `json:"name"`
	}

	TransactionInput struct {
		Amount      Amount          `json:"amount"`
		Type        TransactionType `json:"transaction_type"`
		Description string          `json:"description,omitempty"`
		Source      string          `json:"source,omitempty"`
		Date        Date            `json:"date"`
		AccountID   *ID             `json:"account_id"`
		CategoryID  *ID             `json:"category_id"`
	}

	// UserPatch is a partial profile update; nil fields are left unchanged.
	UserPatch struct {
		Email    *string `json:"email,omitempty"`
		Username *string `json:"username,omitempty"`
		Password *string `json:"password,omitempty"`
	}

	Credentials struct {
		Username string
		Password string
	}

	Registration struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
)

var (
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyUsername     = errors.New("empty username")
	ErrEmptyPassword     = errors.New("empty password")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrNegativeAmount    = errors.New("amount must be a non-negative magnitude")
	ErrInvalidDate       = errors.New("invalid date")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
)

func (t TransactionType) Valid() bool {
	return t == Revenue || t == Expense
}

// Signed returns the transaction's contribution to a balance: +amount for
// revenue, -amount otherwise.
func (t Transaction) Signed() Amount {
	if t.Type == Revenue {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Input returns the editable fields of t, used to pre-populate an edit form.
func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		Amount:      t.Amount,
		Type:        t.Type,
		Description: t.Description,
		Source:      t.Source,
		Date:        t.Date,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
	}
}

func (a Account) Input() AccountInput {
	return AccountInput{Name: a.Name, InitialBalance: a.InitialBalance}
}

func (c Category) Input() CategoryInput {
	return CategoryInput{Name: c.Name}
}

func (in AccountInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (in CategoryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (in TransactionInput) Validate() error {
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	if in.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if len(in.Description) > 200 {
		return ErrDescriptionLength
	}
	return nil
}

func (r Registration) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(r.Username) == "" {
		return ErrEmptyUsername
	}
	if r.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return ErrEmptyUsername
	}
	if c.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// Ref returns a pointer to id, for the nullable references on transactions.
func Ref(id ID) *ID {
	return &id
}

// Date is a calendar day without a time zone.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date. Timestamps are accepted and truncated to
// their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
