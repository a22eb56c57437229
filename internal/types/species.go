package types

import (
  "time"
  "github.com/google/uuid"
)

// FilterTag is the closed set of catalog filters the UI can ask for.
type FilterTag string

const (
  FilterAll FilterTag = "All Species"
  FilterGBR FilterTag = "GBR"
  FilterGSR FilterTag = "GSR"
)

func ParseFilterTag(raw string) (FilterTag, bool) {
  switch raw {
  case "", string(FilterAll):
    return FilterAll, true
  case string(FilterGBR):
    return FilterGBR, true
  case string(FilterGSR):
    return FilterGSR, true
  default:
    return FilterAll, false
  }
}

type Species struct {
  ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
  Name              string          `gorm:"not null;column:name" json:"name"`
  ScientificName    string          `gorm:"uniqueIndex;not null;column:scientific_name" json:"scientific_name"`
  ImageURL          string          `gorm:"column:image_url" json:"image_url"`
  Location          *string         `gorm:"column:location" json:"location"`
  CreatedAt         time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (Species) TableName() string {
  return "species"
}

// MatchesFilter keeps species without a location tag visible under every
// filter. That inclusive default is intentional.
func (s *Species) MatchesFilter(tag FilterTag) bool {
  if tag == FilterAll {
    return true
  }
  if s.Location == nil || *s.Location == "" {
    return true
  }
  return FilterTag(*s.Location) == tag
}
