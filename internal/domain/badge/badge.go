// Package badge models XP-threshold badges.
package badge

import (
	"context"
	"sort"
	"time"
)

// Badge is earned once a learner's xp_total reaches XPRequired.
type Badge struct {
	ID          string
	Name        string
	Description string
	XPRequired  int
}

// Held is a badge owned by a learner.
type Held struct {
	Badge
	EarnedAt time.Time
}

// Eligible returns badges from all that xp qualifies for and that are not in
// held, ordered by threshold.
func Eligible(all []Badge, held []string, xp int) []Badge {
	owned := make(map[string]struct{}, len(held))
	for _, id := range held {
		owned[id] = struct{}{}
	}
	var out []Badge
	for _, b := range all {
		if b.XPRequired > xp {
			continue
		}
		if _, ok := owned[b.ID]; ok {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].XPRequired < out[j].XPRequired })
	return out
}

// Repository persists badges.
type Repository interface {
	ListAll(ctx context.Context) ([]Badge, error)
	ListHeld(ctx context.Context, learnerID string) ([]Held, error)

	// Award grants the badge; awarded=false if the learner already held it.
	Award(ctx context.Context, learnerID, badgeID string, now time.Time) (awarded bool, err error)
}
