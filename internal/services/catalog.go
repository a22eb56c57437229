package services

import (
  "context"
  "fmt"
  "sync"
  "gorm.io/gorm"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/repos"
  "github.com/reefspotter/backend/internal/types"
)

// CatalogService serves the species list. The catalog is immutable once the
// process is up (seeded at boot), so the first successful load is cached and
// reused for every request.
type CatalogService interface {
  ListSpecies(ctx context.Context) ([]*types.Species, error)
  FilterSpecies(species []*types.Species, tag types.FilterTag) []*types.Species
}

type catalogService struct {
  db          *gorm.DB
  log         *logger.Logger
  speciesRepo repos.SpeciesRepo

  mu     sync.Mutex
  cached []*types.Species
}

func NewCatalogService(db *gorm.DB, log *logger.Logger, speciesRepo repos.SpeciesRepo) CatalogService {
  serviceLog := log.With("service", "CatalogService")
  return &catalogService{db: db, log: serviceLog, speciesRepo: speciesRepo}
}

func (cs *catalogService) ListSpecies(ctx context.Context) ([]*types.Species, error) {
  cs.mu.Lock()
  defer cs.mu.Unlock()
  if cs.cached != nil {
    return cs.cached, nil
  }
  rows, err := cs.speciesRepo.GetAll(ctx, nil)
  if err != nil {
    return nil, fmt.Errorf("Failed to load species catalog: %w", err)
  }
  cs.cached = rows
  cs.log.Info("Species catalog loaded", "count", len(rows))
  return rows, nil
}

func (cs *catalogService) FilterSpecies(species []*types.Species, tag types.FilterTag) []*types.Species {
  out := make([]*types.Species, 0, len(species))
  for _, s := range species {
    if s.MatchesFilter(tag) {
      out = append(out, s)
    }
  }
  return out
}
