package models

import (
	"sort"
	"strconv"
	"strings"
)

// ParseSeatRange converts a seat descriptor ("12", "1-4", "1-3,5,7-9") into
// the sorted, deduplicated seat numbers it denotes. Unparsable tokens are
// dropped; an empty result is the caller's signal that the descriptor as a
// whole could not be parsed.
func ParseSeatRange(text string) []int {
	seen := make(map[int]bool)

	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if start, end, ok := splitRangeToken(token); ok {
			for seat := start; seat <= end; seat++ {
				seen[seat] = true
			}
			continue
		}

		if seat, err := strconv.Atoi(token); err == nil {
			seen[seat] = true
		}
	}

	seats := make([]int, 0, len(seen))
	for seat := range seen {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	return seats
}

func splitRangeToken(token string) (int, int, bool) {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if end < start {
		return 0, 0, false
	}
	return start, end, true
}

// GenerateSeatNumbers builds the inclusive range directly from integer
// bounds, for sources that supply bounds rather than text.
func GenerateSeatNumbers(start int, end int) []int {
	if end < start {
		return []int{}
	}
	seats := make([]int, 0, end-start+1)
	for seat := start; seat <= end; seat++ {
		seats = append(seats, seat)
	}
	return seats
}

// SeatsContain reports whether the outer seat set numerically contains
// every seat of the inner set (inclusive-bounds containment, not equality).
// Both sets must be non-empty.
func SeatsContain(outer []int, inner []int) bool {
	if len(outer) == 0 || len(inner) == 0 {
		return false
	}
	return inner[0] >= outer[0] && inner[len(inner)-1] <= outer[len(outer)-1]
}
