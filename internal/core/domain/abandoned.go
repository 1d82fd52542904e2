package domain

import (
	"slices"
	"time"
)

type AbandonedCart struct {
	ID        int64
	CreatedAt time.Time
	UserID    string
	Cart      Cart
}

// LatestPerUser keeps the most recent record of every user, ordered by user id.
func LatestPerUser(records []AbandonedCart) []AbandonedCart {
	latest := make(map[string]AbandonedCart, len(records))
	for _, r := range records {
		cur, ok := latest[r.UserID]
		if !ok || newer(r, cur) {
			latest[r.UserID] = r
		}
	}

	out := make([]AbandonedCart, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b AbandonedCart) int {
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})
	return out
}

func newer(a, b AbandonedCart) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
