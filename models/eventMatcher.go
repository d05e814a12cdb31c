package models

import (
	"context"
	"regexp"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"github.com/agnivade/levenshtein"
)

// EventMatchInput describes an incoming event sighting from any source.
type EventMatchInput struct {
	PosProductionId *string    `json:"pos_production_id"`
	TmEventId       *string    `json:"tm_event_id"`
	EventName       string     `json:"event_name"`
	ArtistName      *string    `json:"artist_name"`
	Venue           *string    `json:"venue"`
	EventDate       *time.Time `json:"event_date"`
}

type EventMatchResult struct {
	Found      bool    `json:"found"`
	Event      *Event  `json:"event"`
	MatchType  string  `json:"match_type"`
	Confidence float64 `json:"confidence"`
}

type matchCandidate struct {
	event      *Event
	matchType  string
	confidence float64
}

type matchStrategy func(ctx context.Context, input EventMatchInput) (*matchCandidate, error)

const (
	nameDateAcceptThreshold = 0.7
	fuzzyInnerThreshold     = 0.6
	fuzzyOuterThreshold     = 0.8
)

// FindOrCreateEvent resolves an incoming description to exactly one
// canonical event. Strategies run cheapest/most-certain first and the first
// hit wins. "No match" is a normal result, not an error; only storage
// failures propagate. A new event is created only when no strategy matched
// AND a durable tm event id was supplied.
func FindOrCreateEvent(ctx context.Context, input EventMatchInput, createIfNotFound bool) (*EventMatchResult, error) {
	strategies := []matchStrategy{
		matchByPosProductionId,
		matchByTmEventId,
		matchByNameAndDate,
		matchByFuzzyName,
	}

	for _, strategy := range strategies {
		candidate, err := strategy(ctx, input)
		if err != nil {
			return nil, err
		}
		if candidate != nil {
			return &EventMatchResult{
				Found:      true,
				Event:      candidate.event,
				MatchType:  candidate.matchType,
				Confidence: candidate.confidence,
			}, nil
		}
	}

	if createIfNotFound && hasDurableTmEventId(input) {
		event, err := CreateEvent(ctx, &NewEvent{
			PosProductionId: input.PosProductionId,
			TmEventId:       input.TmEventId,
			EventName:       input.EventName,
			ArtistName:      input.ArtistName,
			Venue:           input.Venue,
			EventDate:       input.EventDate,
		})
		if err != nil {
			return nil, err
		}
		return &EventMatchResult{
			Found:      true,
			Event:      event,
			MatchType:  MatchTypeCreated,
			Confidence: 1.0,
		}, nil
	}

	if createIfNotFound {
		// POS-only sightings without a durable key must not mint events;
		// they would duplicate once the real id shows up.
		config.LogInfo(config.GetLogger(), "models", "FindOrCreateEvent",
			"declined to create event without tm event id", input.EventName)
	}
	return &EventMatchResult{Found: false, Event: nil, MatchType: MatchTypeNone}, nil
}

func hasDurableTmEventId(input EventMatchInput) bool {
	if input.TmEventId == nil {
		return false
	}
	id := strings.TrimSpace(*input.TmEventId)
	return id != "" && id != "0"
}

func matchByPosProductionId(ctx context.Context, input EventMatchInput) (*matchCandidate, error) {
	if input.PosProductionId == nil || strings.TrimSpace(*input.PosProductionId) == "" {
		return nil, nil
	}
	event, err := GetEventByPosProductionId(ctx, strings.TrimSpace(*input.PosProductionId))
	if err != nil || event == nil {
		return nil, err
	}
	return &matchCandidate{event: event, matchType: MatchTypePosProductionId, confidence: 1.0}, nil
}

func matchByTmEventId(ctx context.Context, input EventMatchInput) (*matchCandidate, error) {
	if !hasDurableTmEventId(input) {
		return nil, nil
	}
	event, err := GetEventByTmEventId(ctx, strings.TrimSpace(*input.TmEventId))
	if err != nil || event == nil {
		return nil, err
	}
	return &matchCandidate{event: event, matchType: MatchTypeTmEventId, confidence: 1.0}, nil
}

// matchByNameAndDate scores same-day events on name and venue:
// max(wholeName, coreName) * 0.6 + venue * 0.4. Venue similarity defaults
// to 1.0 when the input carries no venue.
func matchByNameAndDate(ctx context.Context, input EventMatchInput) (*matchCandidate, error) {
	if input.EventDate == nil || input.EventName == "" {
		return nil, nil
	}

	candidates, err := GetEventsOnDay(ctx, *input.EventDate)
	if err != nil {
		return nil, err
	}

	inputCore := ExtractCoreName(input.EventName)

	var best *Event
	bestScore := 0.0
	for _, event := range candidates {
		nameScore := StringSimilarity(input.EventName, event.EventName)
		coreScore := StringSimilarity(inputCore, ExtractCoreName(event.EventName))
		if coreScore > nameScore {
			nameScore = coreScore
		}

		venueScore := 1.0
		if input.Venue != nil && strings.TrimSpace(*input.Venue) != "" {
			eventVenue := ""
			if event.Venue != nil {
				eventVenue = *event.Venue
			}
			venueScore = StringSimilarity(*input.Venue, eventVenue)
		}

		score := nameScore*0.6 + venueScore*0.4
		if score > bestScore {
			bestScore = score
			best = event
		}
	}

	if best == nil || bestScore <= nameDateAcceptThreshold {
		return nil, nil
	}

	// Opportunistic backfill: a confident name+date match is allowed to fill
	// in a missing pos production id, never to overwrite one.
	if input.PosProductionId != nil && best.PosProductionId == nil {
		if _, err := BackfillEventPosProductionId(ctx, best.ID, strings.TrimSpace(*input.PosProductionId)); err != nil {
			config.LogError(config.GetLogger(), "models", "matchByNameAndDate", "backfill pos production id", best.ID, err)
		}
	}

	return &matchCandidate{event: best, matchType: MatchTypeNameDate, confidence: bestScore}, nil
}

// matchByFuzzyName is the riskiest strategy: no date constraint, just a
// bounded substring search plus similarity scoring. The inner helper keeps
// its own looser threshold; this orchestrating gate only accepts a clearly
// better score.
func matchByFuzzyName(ctx context.Context, input EventMatchInput) (*matchCandidate, error) {
	if input.EventName == "" {
		return nil, nil
	}

	event, score, err := findBestFuzzyNameMatch(ctx, input)
	if err != nil {
		return nil, err
	}
	if event == nil || score <= fuzzyOuterThreshold {
		return nil, nil
	}
	return &matchCandidate{event: event, matchType: MatchTypeFuzzyName, confidence: score}, nil
}

func findBestFuzzyNameMatch(ctx context.Context, input EventMatchInput) (*Event, float64, error) {
	term := ExtractCoreName(input.EventName)
	if term == "" {
		term = normalizeName(input.EventName)
	}
	if term == "" {
		return nil, 0, nil
	}

	candidates, err := SearchEventsByTerm(ctx, term, config.SearchLimit)
	if err != nil {
		return nil, 0, err
	}

	artist := ""
	if input.ArtistName != nil {
		artist = *input.ArtistName
	}

	var best *Event
	bestScore := 0.0
	for _, event := range candidates {
		score := StringSimilarity(input.EventName, event.EventName)
		if artist != "" && event.ArtistName != nil {
			if artistScore := StringSimilarity(artist, *event.ArtistName); artistScore > score {
				score = artistScore
			}
		}
		if score > bestScore {
			bestScore = score
			best = event
		}
	}

	if best == nil || bestScore <= fuzzyInnerThreshold {
		return nil, 0, nil
	}
	return best, bestScore, nil
}

/* string similarity */

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = nonWordPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StringSimilarity returns a 0..1 score: 1.0 for identical normalized
// strings, the length ratio for containment either direction, otherwise
// 1 - levenshtein/maxLen.
func StringSimilarity(a string, b string) float64 {
	a = normalizeName(a)
	b = normalizeName(b)

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		shorter, longer := len(a), len(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}

	distance := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// Tour/marketing vocabulary stripped from event names when deriving the
// core act name. Multi-word phrases must come before their single words.
var coreNameStopPhrases = []string{
	"world tour",
	"in concert",
	"tour",
	"concert",
	"live",
	"presents",
	"the",
	"2024",
	"2025",
	"2026",
	"2027",
}

// ExtractCoreName reduces an event title to the act it names:
// "Bruno Mars - The Romantic Tour" -> "bruno mars",
// "BTS World Tour 2026" -> "bts".
func ExtractCoreName(name string) string {
	if idx := strings.Index(name, " - "); idx >= 0 {
		name = name[:idx]
	}
	name = normalizeName(name)
	if name == "" {
		return ""
	}

	for {
		stripped := false
		for _, phrase := range coreNameStopPhrases {
			if name == phrase {
				return ""
			}
			if strings.HasPrefix(name, phrase+" ") {
				name = strings.TrimSpace(name[len(phrase):])
				stripped = true
			}
			if strings.HasSuffix(name, " "+phrase) {
				name = strings.TrimSpace(name[:len(name)-len(phrase)])
				stripped = true
			}
		}
		if !stripped {
			return name
		}
	}
}
