package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Database is the shared store handle. It implements the conversation store,
// the membership oracle and the reaction ledger consumed by the delivery router.
type Database struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewDatabase(db *gorm.DB, log *zap.Logger) *Database {
	if log == nil {
		log = zap.NewNop()
	}
	return &Database{db: db, log: log}
}
