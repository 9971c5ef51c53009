package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection opens a connection pool using GORM and brings the persisted
// structure in line with the expected shape. A reconciliation failure is
// returned to the caller, which must treat it as fatal: the system cannot run
// against a structure it cannot evolve.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Reconcile(db); err != nil {
		return nil, err
	}

	return db, nil
}
