package models

import (
	"bitbucket.org/mmdatafocus/tickets_backend/config"
)

func AutoMigrate() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Event{},
		&Purchase{},
		&Listing{},
		&Sale{},
		&Invoice{},
		&Ticket{},
		&PosAccount{},
		&SyncRun{},
		&SyncError{},
	)
}
