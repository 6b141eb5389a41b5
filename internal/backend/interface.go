// Package backend assembles the infrastructure a Flow Finance process runs
// on: token persistence, the optional change-event broker, and the
// spreadsheet mirror.
package backend

import (
	"context"

	"flowfinance/internal/amqp"
	"flowfinance/internal/resource"
	"flowfinance/internal/sheets"
	"flowfinance/internal/storage"
)

// CleanupFunc releases resources held by a Result.
type CleanupFunc func() error

// Result contains the created infrastructure and its cleanup function.
type Result struct {
	Tokens storage.TokenStore
	// Events is nil when no broker is configured or it could not be reached.
	Events  *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the change publisher for resource controllers, or nil
// when events are disabled.
func (r *Result) Publisher() resource.Publisher {
	if r.Events == nil {
		return nil
	}
	return r.Events
}

// Factory creates infrastructure based on configuration
type Factory interface {
	// Create opens the token store and, when configured, the broker.
	Create(ctx context.Context, config Config) (*Result, error)
	// CreateMirror returns the Google Sheets mirror when a spreadsheet is
	// configured and an in-memory one otherwise.
	CreateMirror(ctx context.Context, config Config) (sheets.TransactionMirror, error)
}

// Config holds configuration for infrastructure creation
type Config struct {
	TokenStore  StoreType
	TokenDBPath string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// StoreType selects where the credential token is persisted
type StoreType string

const (
	SQLiteStore StoreType = "sqlite"
	MemoryStore StoreType = "memory"
)

// String implements fmt.Stringer
func (st StoreType) String() string {
	return string(st)
}

// IsValid returns true if the store type is valid
func (st StoreType) IsValid() bool {
	switch st {
	case SQLiteStore, MemoryStore:
		return true
	default:
		return false
	}
}
