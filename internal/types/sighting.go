package types

import (
  "time"
  "github.com/google/uuid"
)

// Sighting is one persisted unlock. Membership of the remote unlock set is
// the existence of the (user_id, species_id) row; the composite unique index
// is what makes gateway inserts idempotent.
type Sighting struct {
  ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
  UserID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sighting_user_species;column:user_id" json:"user_id"`
  SpeciesID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sighting_user_species;column:species_id" json:"species_id"`
  CreatedAt         time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (Sighting) TableName() string {
  return "sighting"
}
