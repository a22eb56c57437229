package repos

import (
  "context"
  "fmt"
  "os"
  "github.com/google/uuid"
  "gopkg.in/yaml.v3"
  "gorm.io/gorm"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/types"
)

type SpeciesRepo interface {
  GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Species, error)
  Count(ctx context.Context, tx *gorm.DB) (int64, error)
  Create(ctx context.Context, tx *gorm.DB, rows []*types.Species) ([]*types.Species, error)
  SeedFromFile(ctx context.Context, path string) (int, error)
}

type speciesRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewSpeciesRepo(db *gorm.DB, baseLog *logger.Logger) SpeciesRepo {
  repoLog := baseLog.With("repo", "SpeciesRepo")
  return &speciesRepo{db: db, log: repoLog}
}

func (sr *speciesRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Species, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var results []*types.Species
  if err := transaction.WithContext(ctx).
    Order("name ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (sr *speciesRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.Species{}).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}

func (sr *speciesRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Species) ([]*types.Species, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }

  if len(rows) == 0 {
    return []*types.Species{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
    return nil, err
  }
  return rows, nil
}

type seedSpecies struct {
  Name           string  `yaml:"name"`
  ScientificName string  `yaml:"scientific_name"`
  ImageURL       string  `yaml:"image_url"`
  Location       *string `yaml:"location"`
}

// SeedFromFile loads the species catalog from a YAML file once. The table is
// immutable at runtime, so a non-empty table means seeding already happened.
func (sr *speciesRepo) SeedFromFile(ctx context.Context, path string) (int, error) {
  count, err := sr.Count(ctx, nil)
  if err != nil {
    return 0, fmt.Errorf("Failed to count species rows: %w", err)
  }
  if count > 0 {
    sr.log.Debug("Species table already seeded, skipping", "rows", count)
    return 0, nil
  }

  raw, err := os.ReadFile(path)
  if err != nil {
    return 0, fmt.Errorf("Failed to read species seed file: %w", err)
  }

  var entries []seedSpecies
  if err := yaml.Unmarshal(raw, &entries); err != nil {
    return 0, fmt.Errorf("Failed to parse species seed file: %w", err)
  }

  rows := make([]*types.Species, 0, len(entries))
  for _, e := range entries {
    if e.Name == "" || e.ScientificName == "" {
      sr.log.Warn("Skipping seed entry with missing name", "entry", e.Name)
      continue
    }
    rows = append(rows, &types.Species{
      ID:             uuid.New(),
      Name:           e.Name,
      ScientificName: e.ScientificName,
      ImageURL:       e.ImageURL,
      Location:       e.Location,
    })
  }
  if _, err := sr.Create(ctx, nil, rows); err != nil {
    return 0, fmt.Errorf("Failed to insert species seed rows: %w", err)
  }
  sr.log.Info("Seeded species catalog", "rows", len(rows))
  return len(rows), nil
}
