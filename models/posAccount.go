package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"gorm.io/gorm/clause"
)

// PosAccount tracks per-account delivery metadata for the connected seller
// accounts ("season sites"). Refreshed best-effort after listing passes.
type PosAccount struct {
	ID            int              `gorm:"primary_key" json:"id"`
	Email         string           `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Status        PosAccountStatus `gorm:"size:16;default:UNKNOWN" json:"status"`
	LastCheckedAt *time.Time       `json:"last_checked_at"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// TouchPosAccount upserts the account row keyed by email, stamping the
// check time and latest reported status.
func TouchPosAccount(ctx context.Context, email string, status PosAccountStatus) error {
	now := time.Now()
	account := PosAccount{
		Email:         email,
		Status:        status,
		LastCheckedAt: &now,
	}
	return config.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "last_checked_at"}),
		}).
		Create(&account).Error
}
