package services

import (
  "math"
  "github.com/google/uuid"
  "github.com/reefspotter/backend/internal/types"
)

// ProgressPercentage is a pure function of the filtered catalog and the
// caller's unlock set: round(100 * unlocked-in-view / view size). An empty
// view is 0% rather than a division by zero.
func ProgressPercentage(filtered []*types.Species, unlocked map[uuid.UUID]bool) int {
  if len(filtered) == 0 {
    return 0
  }
  hit := 0
  for _, s := range filtered {
    if unlocked[s.ID] {
      hit++
    }
  }
  return int(math.Round(100 * float64(hit) / float64(len(filtered))))
}
