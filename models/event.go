package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"bitbucket.org/mmdatafocus/tickets_backend/utils"
	"gorm.io/gorm"
)

// Event is the canonical representation of a real-world happening.
// At most one row per distinct tm_event_id and per distinct pos_production_id.
type Event struct {
	ID              int        `gorm:"primary_key" json:"id"`
	PosProductionId *string    `gorm:"size:64;uniqueIndex" json:"pos_production_id"`
	TmEventId       *string    `gorm:"size:64;uniqueIndex" json:"tm_event_id"`
	EventName       string     `gorm:"size:255;not null" json:"event_name"`
	ArtistName      *string    `gorm:"size:255" json:"artist_name"`
	Venue           *string    `gorm:"size:255" json:"venue"`
	EventDate       *time.Time `json:"event_date"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewEvent struct {
	PosProductionId *string    `json:"pos_production_id"`
	TmEventId       *string    `json:"tm_event_id"`
	EventName       string     `json:"event_name" binding:"required"`
	ArtistName      *string    `json:"artist_name"`
	Venue           *string    `json:"venue"`
	EventDate       *time.Time `json:"event_date"`
}

func CreateEvent(ctx context.Context, input *NewEvent) (*Event, error) {
	if input.EventName == "" {
		return nil, errors.New("event name is required")
	}

	event := Event{
		PosProductionId: input.PosProductionId,
		TmEventId:       input.TmEventId,
		EventName:       input.EventName,
		ArtistName:      input.ArtistName,
		Venue:           input.Venue,
		EventDate:       input.EventDate,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func GetEvent(ctx context.Context, id int) (*Event, error) {
	return utils.FetchSingleModel[Event](ctx, id)
}

func GetEventByPosProductionId(ctx context.Context, posProductionId string) (*Event, error) {
	var event Event
	err := config.GetDB().WithContext(ctx).
		Where("pos_production_id = ?", posProductionId).
		Take(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func GetEventByTmEventId(ctx context.Context, tmEventId string) (*Event, error) {
	var event Event
	err := config.GetDB().WithContext(ctx).
		Where("tm_event_id = ?", tmEventId).
		Take(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetEventsOnDay returns all events whose date falls on the same calendar
// day as the given time (inclusive day bounds, venue-naive).
func GetEventsOnDay(ctx context.Context, day time.Time) ([]*Event, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), day.Location())

	var events []*Event
	err := config.GetDB().WithContext(ctx).
		Where("event_date >= ? AND event_date <= ?", start, end).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// SearchEventsByTerm returns up to limit events whose name or artist
// contains the term, case-insensitively.
func SearchEventsByTerm(ctx context.Context, term string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = config.SearchLimit
	}
	like := "%" + term + "%"
	var events []*Event
	err := config.GetDB().WithContext(ctx).
		Where("LOWER(event_name) LIKE LOWER(?) OR LOWER(artist_name) LIKE LOWER(?)", like, like).
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// BackfillEventPosProductionId sets pos_production_id on an event that does
// not have one yet. The WHERE guard keeps an existing value from ever being
// overwritten, even under concurrent passes.
func BackfillEventPosProductionId(ctx context.Context, eventId int, posProductionId string) (bool, error) {
	if posProductionId == "" {
		return false, nil
	}
	result := config.GetDB().WithContext(ctx).
		Model(&Event{}).
		Where("id = ? AND pos_production_id IS NULL", eventId).
		Update("pos_production_id", posProductionId)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
