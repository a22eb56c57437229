package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reefspotter/backend/internal/logger"
	"github.com/reefspotter/backend/internal/types"
)

// fakeGateway is an in-memory stand-in for the sighting repo. It keeps the
// same idempotency contract as the real one and records every call so tests
// can assert on write traffic, with per-id failure injection.
type fakeGateway struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]map[uuid.UUID]bool
	addCalls    int
	removeCalls int
	listCalls   int
	failAdd     map[uuid.UUID]bool
	failRemove  bool
	failList    bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		rows:    make(map[uuid.UUID]map[uuid.UUID]bool),
		failAdd: make(map[uuid.UUID]bool),
	}
}

func (f *fakeGateway) seed(userID uuid.UUID, speciesIDs ...uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[userID] == nil {
		f.rows[userID] = make(map[uuid.UUID]bool)
	}
	for _, id := range speciesIDs {
		f.rows[userID][id] = true
	}
}

func (f *fakeGateway) has(userID, speciesID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[userID][speciesID]
}

func (f *fakeGateway) Add(ctx context.Context, tx *gorm.DB, userID, speciesID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.failAdd[speciesID] {
		return fmt.Errorf("injected add failure")
	}
	if f.rows[userID] == nil {
		f.rows[userID] = make(map[uuid.UUID]bool)
	}
	f.rows[userID][speciesID] = true
	return nil
}

func (f *fakeGateway) Remove(ctx context.Context, tx *gorm.DB, userID, speciesID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.failRemove {
		return fmt.Errorf("injected remove failure")
	}
	delete(f.rows[userID], speciesID)
	return nil
}

func (f *fakeGateway) ListSpeciesIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList {
		return nil, fmt.Errorf("injected list failure")
	}
	ids := make([]uuid.UUID, 0, len(f.rows[userID]))
	for id := range f.rows[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func newUnlockFixture(t *testing.T) (UnlockService, *fakeGateway) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	gw := newFakeGateway()
	reconciler := NewReconcileService(nil, log, gw)
	return NewUnlockService(nil, log, gw, reconciler, nil), gw
}

func asSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func TestGuestToggleRoundTrip(t *testing.T) {
	svc, gw := newUnlockFixture(t)
	ctx := context.Background()
	session := uuid.New()
	species := uuid.New()

	now, err := svc.Toggle(ctx, session, nil, species)
	if err != nil || !now {
		t.Fatalf("first toggle = (%v, %v), want (true, nil)", now, err)
	}
	if !svc.IsUnlocked(session, species) {
		t.Fatalf("species should be unlocked after toggle on")
	}

	now, err = svc.Toggle(ctx, session, nil, species)
	if err != nil || now {
		t.Fatalf("second toggle = (%v, %v), want (false, nil)", now, err)
	}
	if svc.IsUnlocked(session, species) {
		t.Fatalf("species should be locked again after toggle off")
	}
	if gw.addCalls != 0 || gw.removeCalls != 0 {
		t.Fatalf("guest toggles must not touch the gateway, saw %d adds %d removes", gw.addCalls, gw.removeCalls)
	}
}

func TestLoginMergesGuestSet(t *testing.T) {
	svc, gw := newUnlockFixture(t)
	ctx := context.Background()
	session := uuid.New()
	identity := &types.Identity{UserID: uuid.New(), Email: "diver@example.com"}

	guestOnly := uuid.New()
	shared := uuid.New()
	remoteOnly := uuid.New()
	gw.seed(identity.UserID, shared, remoteOnly)

	for _, id := range []uuid.UUID{guestOnly, shared} {
		if _, err := svc.Toggle(ctx, session, nil, id); err != nil {
			t.Fatalf("guest toggle: %v", err)
		}
	}

	unlocked, residue, err := svc.SetIdentity(ctx, session, identity)
	if err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	if len(residue) != 0 {
		t.Fatalf("residue = %v, want empty", residue)
	}
	set := asSet(unlocked)
	for _, id := range []uuid.UUID{guestOnly, shared, remoteOnly} {
		if !set[id] {
			t.Fatalf("merged set missing %s", id)
		}
	}
	if len(set) != 3 {
		t.Fatalf("merged set size = %d, want 3", len(set))
	}
	if gw.addCalls != 1 {
		t.Fatalf("addCalls = %d, want 1 (only the guest-only id needs persisting)", gw.addCalls)
	}
	if !gw.has(identity.UserID, guestOnly) {
		t.Fatalf("guest-only id was not persisted")
	}
}

func TestRepeatedIdentityIsNoOp(t *testing.T) {
	svc, gw := newUnlockFixture(t)
	ctx := context.Background()
	session := uuid.New()
	identity := &types.Identity{UserID: uuid.New()}
	gw.seed(identity.UserID, uuid.New())

	if _, _, err := svc.SetIdentity(ctx, session, identity); err != nil {
		t.Fatalf("first SetIdentity: %v", err)
	}
	adds, lists := gw.addCalls, gw.listCalls

	unlocked, _, err := svc.SetIdentity(ctx, session, identity)
	if err != nil {
		t.Fatalf("second SetIdentity: %v", err)
	}
	if gw.addCalls != adds || gw.listCalls != lists {
		t.Fatalf("duplicate identity event issued gateway traffic: adds %d->%d lists %d->%d", adds, gw.addCalls, lists, gw.listCalls)
	}
	if len(unlocked) != 1 {
		t.Fatalf("mirror size = %d, want 1", len(unlocked))
	}
}

func TestToggleRollsBackWhenGatewayDown(t *testing.T) {
	svc, gw := newUnlockFixture(t)
	ctx := context.Background()
	session := uuid.New()
	identity := &types.Identity{UserID: uuid.New()}
	species := uuid.New()

	if _, _, err := svc.SetIdentity(ctx, session, identity); err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	if _, err := svc.Toggle(ctx, session, identity, species); err != nil {
		t.Fatalf("toggle on: %v", err)
	}

	gw.failRemove = true
	now, err := svc.Toggle(ctx, session, identity, species)
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("toggle off during outage: err = %v, want ErrRemoteUnavailable", err)
	}
	if !now {
		t.Fatalf("toggle must report the rolled-back state (still unlocked)")
	}
	if !svc.IsUnlocked(session, species) {
		t.Fatalf("failed remove must leave the species unlocked")
	}
	if !gw.has(identity.UserID, species) {
		t.Fatalf("remote row must survive a failed remove")
	}

	gw.failRemove = false
	locked := uuid.New()
	gw.failAdd[locked] = true
	now, err = svc.Toggle(ctx, session, identity, locked)
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("toggle on during outage: err = %v, want ErrRemoteUnavailable", err)
	}
	if now || svc.IsUnlocked(session, locked) {
		t.Fatalf("failed add must leave the species locked")
	}
}

func TestPartialMergeLeavesResidueAndRetries(t *testing.T) {
	svc, gw := newUnlockFixture(t)
	ctx := context.Background()
	session := uuid.New()
	identity := &types.Identity{UserID: uuid.New()}

	good := uuid.New()
	bad := uuid.New()
	gw.failAdd[bad] = true
	for _, id := range []uuid.UUID{good, bad} {
		if _, err := svc.Toggle(ctx, session, nil, id); err != nil {
			t.Fatalf("guest toggle: %v", err)
		}
	}

	unlocked, residue, err := svc.SetIdentity(ctx, session, identity)
	var pme *PartialMergeError
	if !errors.As(err, &pme) {
		t.Fatalf("err = %v, want PartialMergeError", err)
	}
	if len(residue) != 1 || residue[0] != bad {
		t.Fatalf("residue = %v, want [%s]", residue, bad)
	}
	if set := asSet(unlocked); !set[good] || set[bad] {
		t.Fatalf("mirror after partial merge = %v, want only the persisted id", unlocked)
	}

	// The next identity event retries just the residue.
	delete(gw.failAdd, bad)
	unlocked, residue, err = svc.SetIdentity(ctx, session, identity)
	if err != nil {
		t.Fatalf("retry SetIdentity: %v", err)
	}
	if len(residue) != 0 {
		t.Fatalf("residue after retry = %v, want empty", residue)
	}
	if set := asSet(unlocked); !set[good] || !set[bad] {
		t.Fatalf("mirror after retry = %v, want both ids", unlocked)
	}
	if !gw.has(identity.UserID, bad) {
		t.Fatalf("retried id was not persisted")
	}
}

func TestListFailurePreservesGuestSet(t *testing.T) {
	svc, gw := newUnlockFixture(t)
	ctx := context.Background()
	session := uuid.New()
	identity := &types.Identity{UserID: uuid.New()}
	species := uuid.New()

	if _, err := svc.Toggle(ctx, session, nil, species); err != nil {
		t.Fatalf("guest toggle: %v", err)
	}

	gw.failList = true
	if _, _, err := svc.SetIdentity(ctx, session, identity); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("SetIdentity during outage: err = %v, want ErrRemoteUnavailable", err)
	}
	if !svc.IsUnlocked(session, species) {
		t.Fatalf("aborted merge must leave the guest set untouched")
	}
	if gw.addCalls != 0 {
		t.Fatalf("aborted merge must not write, saw %d adds", gw.addCalls)
	}

	gw.failList = false
	unlocked, _, err := svc.SetIdentity(ctx, session, identity)
	if err != nil {
		t.Fatalf("SetIdentity after recovery: %v", err)
	}
	if !asSet(unlocked)[species] {
		t.Fatalf("guest id missing after recovered merge")
	}
}

func TestClearIdentityKeepsRemoteRows(t *testing.T) {
	svc, gw := newUnlockFixture(t)
	ctx := context.Background()
	session := uuid.New()
	identity := &types.Identity{UserID: uuid.New()}
	species := uuid.New()
	gw.seed(identity.UserID, species)

	if _, _, err := svc.SetIdentity(ctx, session, identity); err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	svc.ClearIdentity(session)

	unlocked, residue, err := svc.Snapshot(ctx, session, nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(unlocked) != 0 || len(residue) != 0 {
		t.Fatalf("post-logout session = (%v, %v), want empty guest", unlocked, residue)
	}
	if !gw.has(identity.UserID, species) {
		t.Fatalf("logout must not delete remote rows")
	}
}

func TestSwitchingAccountsDiscardsOldMirror(t *testing.T) {
	svc, gw := newUnlockFixture(t)
	ctx := context.Background()
	session := uuid.New()

	alice := &types.Identity{UserID: uuid.New()}
	bob := &types.Identity{UserID: uuid.New()}
	aliceFish := uuid.New()
	bobFish := uuid.New()
	gw.seed(alice.UserID, aliceFish)
	gw.seed(bob.UserID, bobFish)

	if _, _, err := svc.SetIdentity(ctx, session, alice); err != nil {
		t.Fatalf("SetIdentity alice: %v", err)
	}
	adds := gw.addCalls

	unlocked, _, err := svc.SetIdentity(ctx, session, bob)
	if err != nil {
		t.Fatalf("SetIdentity bob: %v", err)
	}
	set := asSet(unlocked)
	if !set[bobFish] || set[aliceFish] {
		t.Fatalf("bob's mirror = %v, want only bob's rows", unlocked)
	}
	if gw.addCalls != adds {
		t.Fatalf("account switch must not replay the old mirror as a guest set")
	}
	if gw.has(bob.UserID, aliceFish) {
		t.Fatalf("alice's rows leaked into bob's account")
	}
}
