package backend

import (
	"fmt"

	"flowfinance/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	storeType := StoreType(appConfig.TokenStore)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid token store in config: %s", appConfig.TokenStore)
	}

	return Config{
		TokenStore:  storeType,
		TokenDBPath: appConfig.TokenDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.TokenStore.IsValid() {
		return fmt.Errorf("invalid token store: %s", c.TokenStore)
	}

	if c.TokenStore == SQLiteStore && c.TokenDBPath == "" {
		return fmt.Errorf("token database path is required for sqlite token store")
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			return fmt.Errorf("Google Sheet name is required for the sheets mirror")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return fmt.Errorf("either GoogleServiceAccountJSON or GoogleServiceAccountFile must be provided for the sheets mirror")
		}
	}

	return nil
}

// StoreTypes returns all valid token store types
func StoreTypes() []StoreType {
	return []StoreType{SQLiteStore, MemoryStore}
}
