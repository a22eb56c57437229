package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/types"
)

// SightingRepo is the gateway onto the persisted unlock table. Both writes
// are idempotent: Add is insert-if-absent keyed on (user_id, species_id),
// Remove treats an already-missing row as success. Retried or re-ordered
// calls can never produce a duplicate pair or a spurious error.
type SightingRepo interface {
  Add(ctx context.Context, tx *gorm.DB, userID, speciesID uuid.UUID) error
  Remove(ctx context.Context, tx *gorm.DB, userID, speciesID uuid.UUID) error
  ListSpeciesIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
}

type sightingRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewSightingRepo(db *gorm.DB, baseLog *logger.Logger) SightingRepo {
  repoLog := baseLog.With("repo", "SightingRepo")
  return &sightingRepo{db: db, log: repoLog}
}

func (r *sightingRepo) Add(ctx context.Context, tx *gorm.DB, userID, speciesID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  row := types.Sighting{
    ID:        uuid.New(),
    UserID:    userID,
    SpeciesID: speciesID,
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "user_id"}, {Name: "species_id"}},
      DoNothing: true,
    }).
    Create(&row).Error
}

func (r *sightingRepo) Remove(ctx context.Context, tx *gorm.DB, userID, speciesID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Where("user_id = ? AND species_id = ?", userID, speciesID).
    Delete(&types.Sighting{}).Error
}

func (r *sightingRepo) ListSpeciesIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var ids []uuid.UUID
  if err := transaction.WithContext(ctx).
    Model(&types.Sighting{}).
    Where("user_id = ?", userID).
    Pluck("species_id", &ids).Error; err != nil {
    return nil, err
  }
  return ids, nil
}
