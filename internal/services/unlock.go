package services

import (
  "context"
  "errors"
  "fmt"
  "sync"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/realtime"
  "github.com/reefspotter/backend/internal/realtime/bus"
  "github.com/reefspotter/backend/internal/repos"
  "github.com/reefspotter/backend/internal/types"
)

// UnlockService is the single authoritative view of "which species are
// unlocked" for each client session. A session starts as a guest with an
// empty in-memory set. Once an identity is attached the set becomes a mirror
// of the account's persisted sightings: every toggle writes through the
// gateway and rolls back on failure. The guest set is folded into the
// account exactly once, at the identity transition, and is never replayed.
type UnlockService interface {
  Toggle(ctx context.Context, sessionID uuid.UUID, identity *types.Identity, speciesID uuid.UUID) (bool, error)
  IsUnlocked(sessionID uuid.UUID, speciesID uuid.UUID) bool
  Snapshot(ctx context.Context, sessionID uuid.UUID, identity *types.Identity) (map[uuid.UUID]bool, []uuid.UUID, error)
  SetIdentity(ctx context.Context, sessionID uuid.UUID, identity *types.Identity) ([]uuid.UUID, []uuid.UUID, error)
  ClearIdentity(sessionID uuid.UUID)
  EndSession(sessionID uuid.UUID)
  PurgeIdle(maxIdle time.Duration) int
}

type sessionState struct {
  mu       sync.Mutex
  identity *types.Identity
  unlocked map[uuid.UUID]bool
  residue  map[uuid.UUID]bool
  lastSeen time.Time
}

type unlockService struct {
  db           *gorm.DB
  log          *logger.Logger
  sightingRepo repos.SightingRepo
  reconciler   ReconcileService
  eventBus     bus.Bus

  mu       sync.Mutex
  sessions map[uuid.UUID]*sessionState
}

func NewUnlockService(db *gorm.DB, log *logger.Logger, sightingRepo repos.SightingRepo, reconciler ReconcileService, eventBus bus.Bus) UnlockService {
  serviceLog := log.With("service", "UnlockService")
  return &unlockService{
    db:           db,
    log:          serviceLog,
    sightingRepo: sightingRepo,
    reconciler:   reconciler,
    eventBus:     eventBus,
    sessions:     make(map[uuid.UUID]*sessionState),
  }
}

func (us *unlockService) session(sessionID uuid.UUID) *sessionState {
  us.mu.Lock()
  defer us.mu.Unlock()
  st, ok := us.sessions[sessionID]
  if !ok {
    st = &sessionState{
      unlocked: make(map[uuid.UUID]bool),
      residue:  make(map[uuid.UUID]bool),
    }
    us.sessions[sessionID] = st
  }
  st.lastSeen = time.Now()
  return st
}

// ensureIdentity reconciles the session with the identity the request
// carries. Callers hold st.mu. The transition from guest to identity runs
// the one-shot merge; a repeated call with the same identity retries only
// the residue and is otherwise a no-op, which is what makes duplicate login
// events harmless.
func (us *unlockService) ensureIdentity(ctx context.Context, st *sessionState, identity *types.Identity) error {
  if identity == nil {
    if st.identity != nil {
      // Token gone: the client is a guest again. Remote rows stay put.
      st.identity = nil
      st.unlocked = make(map[uuid.UUID]bool)
      st.residue = make(map[uuid.UUID]bool)
    }
    return nil
  }

  if st.identity != nil && st.identity.UserID != identity.UserID {
    // Different account on the same session: the old mirror is not ours to
    // keep, and there is no guest set left to merge.
    st.identity = nil
    st.unlocked = make(map[uuid.UUID]bool)
    st.residue = make(map[uuid.UUID]bool)
  }

  if st.identity == nil {
    guest := st.unlocked
    mirror, failed, err := us.reconciler.Merge(ctx, identity, guest)
    if err != nil && !isPartialMerge(err) {
      // Gateway down: no transition happens, the guest set is preserved
      // untouched and the next request retries.
      return err
    }
    st.identity = identity
    st.unlocked = mirror
    st.residue = make(map[uuid.UUID]bool, len(failed))
    for _, id := range failed {
      st.residue[id] = true
    }
    us.publish(ctx, st, identity, realtime.EventGuestProgressMerged, map[string]any{
      "unlocked": len(mirror),
      "unmerged": len(failed),
    })
    return err
  }

  if len(st.residue) > 0 {
    mirror, failed, err := us.reconciler.Merge(ctx, identity, st.residue)
    if err != nil && !isPartialMerge(err) {
      return err
    }
    st.unlocked = mirror
    st.residue = make(map[uuid.UUID]bool, len(failed))
    for _, id := range failed {
      st.residue[id] = true
    }
    return err
  }
  return nil
}

func (us *unlockService) Toggle(ctx context.Context, sessionID uuid.UUID, identity *types.Identity, speciesID uuid.UUID) (bool, error) {
  st := us.session(sessionID)
  st.mu.Lock()
  defer st.mu.Unlock()

  if err := us.ensureIdentity(ctx, st, identity); err != nil && !isPartialMerge(err) {
    return st.unlocked[speciesID], err
  }

  was := st.unlocked[speciesID]

  // Optimistic flip first, mirroring what the UI shows immediately.
  if was {
    delete(st.unlocked, speciesID)
  } else {
    st.unlocked[speciesID] = true
  }

  if st.identity != nil {
    var opErr error
    if was {
      opErr = us.sightingRepo.Remove(ctx, nil, st.identity.UserID, speciesID)
    } else {
      opErr = us.sightingRepo.Add(ctx, nil, st.identity.UserID, speciesID)
    }
    if opErr != nil {
      // Roll back: the UI must never be left showing state the backend
      // does not hold.
      if was {
        st.unlocked[speciesID] = true
      } else {
        delete(st.unlocked, speciesID)
      }
      us.log.Warn("Unlock write failed, rolled back", "user_id", st.identity.UserID, "species_id", speciesID, "error", opErr)
      return was, fmt.Errorf("%w: %v", ErrRemoteUnavailable, opErr)
    }
    delete(st.residue, speciesID)
  }

  us.publish(ctx, st, identity, realtime.EventUnlockToggled, map[string]any{
    "species_id": speciesID,
    "unlocked":   !was,
  })
  return !was, nil
}

func (us *unlockService) IsUnlocked(sessionID uuid.UUID, speciesID uuid.UUID) bool {
  st := us.session(sessionID)
  st.mu.Lock()
  defer st.mu.Unlock()
  return st.unlocked[speciesID]
}

// Snapshot returns a read-only copy of the session's unlock set plus any
// unmerged residue left over from a partial merge.
func (us *unlockService) Snapshot(ctx context.Context, sessionID uuid.UUID, identity *types.Identity) (map[uuid.UUID]bool, []uuid.UUID, error) {
  st := us.session(sessionID)
  st.mu.Lock()
  defer st.mu.Unlock()

  if err := us.ensureIdentity(ctx, st, identity); err != nil && !isPartialMerge(err) {
    return nil, nil, err
  }

  out := make(map[uuid.UUID]bool, len(st.unlocked))
  for id := range st.unlocked {
    out[id] = true
  }
  residue := make([]uuid.UUID, 0, len(st.residue))
  for id := range st.residue {
    residue = append(residue, id)
  }
  return out, residue, nil
}

// SetIdentity is the eager transition used by the login/signup handlers. It
// returns the post-merge unlock set and the unmerged residue. A
// PartialMergeError comes back alongside the merged state; it is reported,
// not fatal.
func (us *unlockService) SetIdentity(ctx context.Context, sessionID uuid.UUID, identity *types.Identity) ([]uuid.UUID, []uuid.UUID, error) {
  st := us.session(sessionID)
  st.mu.Lock()
  defer st.mu.Unlock()

  err := us.ensureIdentity(ctx, st, identity)
  if err != nil && !isPartialMerge(err) {
    return nil, nil, err
  }

  unlocked := make([]uuid.UUID, 0, len(st.unlocked))
  for id := range st.unlocked {
    unlocked = append(unlocked, id)
  }
  residue := make([]uuid.UUID, 0, len(st.residue))
  for id := range st.residue {
    residue = append(residue, id)
  }
  return unlocked, residue, err
}

func (us *unlockService) ClearIdentity(sessionID uuid.UUID) {
  st := us.session(sessionID)
  st.mu.Lock()
  defer st.mu.Unlock()
  st.identity = nil
  st.unlocked = make(map[uuid.UUID]bool)
  st.residue = make(map[uuid.UUID]bool)
}

func (us *unlockService) EndSession(sessionID uuid.UUID) {
  us.mu.Lock()
  defer us.mu.Unlock()
  delete(us.sessions, sessionID)
}

// PurgeIdle drops sessions with no activity for maxIdle. Guest sets only
// live for the duration of one session; this is how abandoned ones go away.
func (us *unlockService) PurgeIdle(maxIdle time.Duration) int {
  cutoff := time.Now().Add(-maxIdle)
  us.mu.Lock()
  defer us.mu.Unlock()
  purged := 0
  for id, st := range us.sessions {
    if st.lastSeen.Before(cutoff) {
      delete(us.sessions, id)
      purged++
    }
  }
  return purged
}

func (us *unlockService) publish(ctx context.Context, st *sessionState, identity *types.Identity, event realtime.Event, data map[string]any) {
  if us.eventBus == nil {
    return
  }
  channel := ""
  if st.identity != nil {
    channel = "user:" + st.identity.UserID.String()
  } else if identity != nil {
    channel = "user:" + identity.UserID.String()
  }
  if channel == "" {
    return
  }
  if err := us.eventBus.Publish(ctx, realtime.Message{Channel: channel, Event: event, Data: data}); err != nil {
    us.log.Warn("Failed to publish unlock event", "event", event, "error", err)
  }
}

func isPartialMerge(err error) bool {
  var pme *PartialMergeError
  return errors.As(err, &pme)
}
