package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/reefspotter/backend/internal/types"
)

func tagged(name, tag string) *types.Species {
	s := &types.Species{ID: uuid.New(), Name: name}
	if tag != "" {
		s.Location = &tag
	}
	return s
}

func TestProgressPercentage(t *testing.T) {
	a := tagged("a", "GBR")
	b := tagged("b", "GBR")
	c := tagged("c", "GBR")
	d := tagged("d", "") // untagged, always in view

	cases := []struct {
		name     string
		filtered []*types.Species
		unlocked []uuid.UUID
		want     int
	}{
		{
			name:     "empty_catalog_is_zero",
			filtered: nil,
			unlocked: []uuid.UUID{uuid.New()},
			want:     0,
		},
		{
			name:     "nothing_unlocked",
			filtered: []*types.Species{a, b, c, d},
			unlocked: nil,
			want:     0,
		},
		{
			name:     "two_of_four_including_untagged",
			filtered: []*types.Species{a, b, c, d},
			unlocked: []uuid.UUID{a.ID, d.ID},
			want:     50,
		},
		{
			name:     "rounds_to_nearest",
			filtered: []*types.Species{a, b, c},
			unlocked: []uuid.UUID{a.ID},
			want:     33,
		},
		{
			name:     "rounds_up",
			filtered: []*types.Species{a, b, c},
			unlocked: []uuid.UUID{a.ID, b.ID},
			want:     67,
		},
		{
			name:     "all_unlocked",
			filtered: []*types.Species{a, b},
			unlocked: []uuid.UUID{a.ID, b.ID},
			want:     100,
		},
		{
			name:     "unlocks_outside_view_do_not_count",
			filtered: []*types.Species{a, b},
			unlocked: []uuid.UUID{c.ID, d.ID},
			want:     0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := make(map[uuid.UUID]bool, len(tc.unlocked))
			for _, id := range tc.unlocked {
				set[id] = true
			}
			got := ProgressPercentage(tc.filtered, set)
			if got != tc.want {
				t.Fatalf("ProgressPercentage()=%d, want %d", got, tc.want)
			}
		})
	}
}
