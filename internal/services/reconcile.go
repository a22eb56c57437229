package services

import (
  "context"
  "fmt"
  "sync"
  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/gorm"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/repos"
  "github.com/reefspotter/backend/internal/types"
)

// ReconcileService folds a guest-accumulated unlock set into an account's
// persisted set. The merge only ever adds: ids already on the account stay,
// ids in both are skipped, nothing is removed. Each add is idempotent on the
// gateway side, so running the merge twice with the same inputs lands on the
// same remote set.
type ReconcileService interface {
  Merge(ctx context.Context, identity *types.Identity, guest map[uuid.UUID]bool) (map[uuid.UUID]bool, []uuid.UUID, error)
}

type reconcileService struct {
  db           *gorm.DB
  log          *logger.Logger
  sightingRepo repos.SightingRepo
}

func NewReconcileService(db *gorm.DB, log *logger.Logger, sightingRepo repos.SightingRepo) ReconcileService {
  serviceLog := log.With("service", "ReconcileService")
  return &reconcileService{db: db, log: serviceLog, sightingRepo: sightingRepo}
}

// Merge returns the post-merge mirror (remote set plus every guest id that
// persisted), the ids that failed to persist, and an error describing the
// failure mode. The mirror is only returned once every add has settled; a
// half-finished merge is never observable.
func (rs *reconcileService) Merge(ctx context.Context, identity *types.Identity, guest map[uuid.UUID]bool) (map[uuid.UUID]bool, []uuid.UUID, error) {
  if identity == nil {
    return nil, nil, fmt.Errorf("Cannot merge guest progress without an identity")
  }

  remoteIDs, err := rs.sightingRepo.ListSpeciesIDs(ctx, nil, identity.UserID)
  if err != nil {
    rs.log.Warn("Failed to list remote unlocks for merge", "user_id", identity.UserID, "error", err)
    return nil, nil, fmt.Errorf("%w: list unlocks: %v", ErrRemoteUnavailable, err)
  }

  mirror := make(map[uuid.UUID]bool, len(remoteIDs)+len(guest))
  for _, id := range remoteIDs {
    mirror[id] = true
  }

  toAdd := make([]uuid.UUID, 0, len(guest))
  for id := range guest {
    if !mirror[id] {
      toAdd = append(toAdd, id)
    }
  }
  if len(toAdd) == 0 {
    return mirror, nil, nil
  }

  // The adds are commutative and individually idempotent, so they run
  // concurrently. A failed sibling must not cancel the others: every add
  // settles, failures are collected instead of returned from the group.
  var mu sync.Mutex
  var failed []uuid.UUID
  succeeded := make([]uuid.UUID, 0, len(toAdd))

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(8)
  for _, id := range toAdd {
    id := id
    g.Go(func() error {
      if aErr := rs.sightingRepo.Add(gctx, nil, identity.UserID, id); aErr != nil {
        rs.log.Warn("Merge add failed", "user_id", identity.UserID, "species_id", id, "error", aErr)
        mu.Lock()
        failed = append(failed, id)
        mu.Unlock()
        return nil
      }
      mu.Lock()
      succeeded = append(succeeded, id)
      mu.Unlock()
      return nil
    })
  }
  _ = g.Wait()

  for _, id := range succeeded {
    mirror[id] = true
  }

  if len(failed) > 0 {
    return mirror, failed, &PartialMergeError{FailedIDs: failed}
  }
  rs.log.Info("Guest progress merged", "user_id", identity.UserID, "added", len(succeeded), "already_remote", len(remoteIDs))
  return mirror, nil, nil
}
