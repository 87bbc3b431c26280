package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/thereayou/voxus-chat/internal/models"
)

const sqlitePrefix = "sqlite://"

// Connect opens the database named by dsn. A "sqlite://path" DSN selects the
// embedded driver; anything else is handed to postgres.
func Connect(dsn string, log *zap.Logger) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return OpenSQLite(strings.TrimPrefix(dsn, sqlitePrefix), log)
	}
	return Open(postgres.Open(dsn), log)
}

// OpenSQLite opens an embedded database. Use "file:name?mode=memory&cache=shared"
// for a throwaway in-memory store.
func OpenSQLite(path string, log *zap.Logger) (*Database, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	d, err := Open(sqlite.Open(path+sep+"_pragma=foreign_keys(1)"), log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway; a single connection avoids SQLITE_BUSY
	// between a transaction and a concurrent reader.
	sqlDB.SetMaxOpenConns(1)
	return d, nil
}

func Open(dialector gorm.Dialector, log *zap.Logger) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.Attachment{},
		&models.Group{},
		&models.GroupMember{},
		&models.Reaction{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return NewDatabase(db, log), nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
