package backend

import (
	"context"
	"errors"
	"fmt"

	"flowfinance/internal/amqp"
	"flowfinance/internal/log"
	"flowfinance/internal/sheets"
	gsheet "flowfinance/internal/sheets/google"
	"flowfinance/internal/sheets/memory"
	"flowfinance/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	tokens, err := f.createTokenStore(config)
	if err != nil {
		return nil, err
	}

	events := f.connectEvents(config)

	f.logger.Info("Initialized backend",
		"token_store", config.TokenStore.String(),
		"amqp_enabled", events != nil)

	return &Result{
		Tokens: tokens,
		Events: events,
		Cleanup: func() error {
			var errs []error
			if events != nil {
				errs = append(errs, events.Close())
			}
			errs = append(errs, tokens.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createTokenStore(config Config) (storage.TokenStore, error) {
	switch config.TokenStore {
	case SQLiteStore:
		store, err := storage.NewSQLiteTokenStore(config.TokenDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite token store: %w", err)
		}
		return store, nil
	case MemoryStore:
		return storage.NewMemoryTokenStore(), nil
	default:
		return nil, fmt.Errorf("unsupported token store: %s", config.TokenStore)
	}
}

// connectEvents dials the broker when one is configured. A broker that
// cannot be reached disables events instead of failing the process.
func (f *DefaultFactory) connectEvents(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err.Error())
		return nil
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.TransactionMirror, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("No spreadsheet configured, mirroring in memory")
		return memory.New(), nil
	}

	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets mirror", "sheet", config.GoogleSheetName)
	return cli, nil
}
