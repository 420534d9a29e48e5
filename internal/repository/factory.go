package store

import (
	"fmt"

	"github.com/xiaot623/gogo/callcontrol/internal/config"
)

// Open returns the store selected by cfg.StoreDriver.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "", "file":
		return NewFileStore(cfg.ConversationDir)
	case "sqlite":
		return NewSQLiteStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
