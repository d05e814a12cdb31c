package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
)

// SyncRun records one reconciliation pass over a POS batch.
type SyncRun struct {
	ID            uint       `gorm:"primary_key" json:"id"`
	BatchType     string     `gorm:"size:16;not null;index" json:"batch_type"`
	Status        string     `gorm:"size:16;default:PENDING" json:"status"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`
	RecordsSynced int        `json:"records_synced"`
	Created       int        `json:"created"`
	Updated       int        `json:"updated"`
	Linked        int        `json:"linked"`
	ErrorCount    int        `json:"error_count"`
	TriggeredBy   string     `gorm:"size:32" json:"triggered_by"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SyncError is one per-record failure inside a run. Records carrying a
// retryable error are picked up again on the next pass.
type SyncError struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"not null;index" json:"sync_run_id"`
	EntityType  string    `gorm:"size:32;not null" json:"entity_type"`
	ExternalId  string    `gorm:"size:64" json:"external_id"`
	ErrorCode   string    `gorm:"size:64" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:mediumblob" json:"-"`
	Retryable   bool      `json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func StartSyncRun(ctx context.Context, batchType string, triggeredBy string) (*SyncRun, error) {
	now := time.Now()
	run := SyncRun{
		BatchType:   batchType,
		Status:      SyncRunStatusRunning,
		StartedAt:   &now,
		TriggeredBy: triggeredBy,
	}
	if err := config.GetDB().WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func FinishSyncRun(ctx context.Context, run *SyncRun, synced, created, updated, linked, errorCount int) error {
	finishedAt := time.Now()
	status := SyncRunStatusSuccess
	if errorCount > 0 && synced == 0 {
		status = SyncRunStatusFailed
	} else if errorCount > 0 {
		status = SyncRunStatusPartial
	}

	var durationMs int64
	if run.StartedAt != nil {
		durationMs = finishedAt.Sub(*run.StartedAt).Milliseconds()
	}

	return config.GetDB().WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"status":         status,
		"finished_at":    finishedAt,
		"duration_ms":    durationMs,
		"records_synced": synced,
		"created":        created,
		"updated":        updated,
		"linked":         linked,
		"error_count":    errorCount,
	}).Error
}

func FailSyncRun(ctx context.Context, run *SyncRun, cause error) error {
	finishedAt := time.Now()
	var durationMs int64
	if run.StartedAt != nil {
		durationMs = finishedAt.Sub(*run.StartedAt).Milliseconds()
	}
	return config.GetDB().WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"status":      SyncRunStatusFailed,
		"finished_at": finishedAt,
		"duration_ms": durationMs,
	}).Error
}

func CreateSyncError(ctx context.Context, runId uint, entityType string, externalId string, code string, message string, payload []byte, retryable bool) error {
	record := SyncError{
		SyncRunId:   runId,
		EntityType:  entityType,
		ExternalId:  externalId,
		ErrorCode:   code,
		Message:     message,
		PayloadJSON: payload,
		Retryable:   retryable,
	}
	return config.GetDB().WithContext(ctx).Create(&record).Error
}

func GetSyncRuns(ctx context.Context, batchType string, limit int) ([]*SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	db := config.GetDB().WithContext(ctx)
	if batchType != "" {
		db = db.Where("batch_type = ?", batchType)
	}
	var runs []*SyncRun
	if err := db.Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func GetSyncRunWithErrors(ctx context.Context, id uint) (*SyncRun, []*SyncError, error) {
	var run SyncRun
	if err := config.GetDB().WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, nil, err
	}
	var errs []*SyncError
	if err := config.GetDB().WithContext(ctx).
		Where("sync_run_id = ?", id).
		Order("id").
		Find(&errs).Error; err != nil {
		return nil, nil, err
	}
	return &run, errs, nil
}
