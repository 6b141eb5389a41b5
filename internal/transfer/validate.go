package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"flowfinance/internal/core"
)

// RecordError reports the first invalid record of an import file.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() []error {
	return []error{ErrMalformedFile, e.Err}
}

// importRecord mirrors the accepted fields of an import entry. Required
// fields are pointers so that absence can be told apart from zero values.
type importRecord struct {
	Amount      *core.Amount          `json:"amount"`
	Type        *core.TransactionType `json:"transaction_type"`
	Description *string               `json:"description"`
	Source      *string               `json:"source"`
	Date        *core.Date            `json:"date"`
	AccountID   *core.ID              `json:"account_id"`
	CategoryID  *core.ID              `json:"category_id"`
}

// ValidateImport decodes an import file and checks every record. It returns
// the records as creation inputs, or a *RecordError naming the first bad one.
func ValidateImport(r io.Reader) ([]core.TransactionInput, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of transactions: %w", ErrMalformedFile, err)
	}

	inputs := make([]core.TransactionInput, 0, len(raw))
	for i, msg := range raw {
		in, err := decodeRecord(msg)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func decodeRecord(msg json.RawMessage) (core.TransactionInput, error) {
	var rec importRecord
	if err := json.Unmarshal(msg, &rec); err != nil {
		return core.TransactionInput{}, err
	}
	switch {
	case rec.Amount == nil:
		return core.TransactionInput{}, errors.New("missing amount")
	case rec.Type == nil:
		return core.TransactionInput{}, errors.New("missing transaction_type")
	case rec.Date == nil:
		return core.TransactionInput{}, errors.New("missing date")
	}

	in := core.TransactionInput{
		Amount:     *rec.Amount,
		Type:       *rec.Type,
		Date:       *rec.Date,
		AccountID:  rec.AccountID,
		CategoryID: rec.CategoryID,
	}
	if rec.Description != nil {
		in.Description = *rec.Description
	}
	if rec.Source != nil {
		in.Source = *rec.Source
	}
	if err := in.Validate(); err != nil {
		return core.TransactionInput{}, err
	}
	return in, nil
}
