package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mixbah/pdfi/internal/config"
	"github.com/mixbah/pdfi/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrInvalidID = errors.New("invalid document id")
	ErrNotFound  = errors.New("document not found")
)

type DocumentStore interface {
	InsertDocument(ctx context.Context, doc models.ProcessedDocument) (string, error)
	ListDocuments(ctx context.Context, skip int, limit int) ([]models.DocumentRecord, error)
	CountDocuments(ctx context.Context) (int64, error)
	GetDocument(ctx context.Context, id string) (models.DocumentRecord, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
}

type LogStore interface {
	InsertLog(ctx context.Context, entry models.ActivityLog) error
	ListLogs(ctx context.Context, limit int, action string) ([]models.ActivityLog, error)
	DeleteLogs(ctx context.Context, before time.Time) (int64, error)
}

// Store is one backing database. DeleteLogs with a zero time removes every
// entry.
type Store interface {
	DocumentStore
	LogStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Opener returns the function the Provider uses to open the configured store
// on first use.
func Opener(cfg config.Config) func(ctx context.Context) (Store, error) {
	return func(ctx context.Context) (Store, error) {
		switch cfg.DBDriver {
		case config.DriverMongo:
			return OpenMongo(ctx, cfg.DBDSN, cfg.DBName)
		case config.DriverPostgres, config.DriverSQLite:
			db, err := Connect(cfg.DBDriver, cfg.DBDSN)
			if err != nil {
				return nil, err
			}
			if err := Migrate(db); err != nil {
				return nil, err
			}
			return NewGormStore(db)
		default:
			return nil, fmt.Errorf("db driver %q is not supported", cfg.DBDriver)
		}
	}
}

func Connect(driver string, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is empty")
	}

	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("db driver %q is not supported", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}

	if err := db.AutoMigrate(&models.ProcessedDocument{}, &models.ActivityLog{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}
