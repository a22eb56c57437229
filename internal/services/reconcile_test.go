package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/reefspotter/backend/internal/logger"
	"github.com/reefspotter/backend/internal/types"
)

func newReconcileFixture(t *testing.T) (ReconcileService, *fakeGateway) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	gw := newFakeGateway()
	return NewReconcileService(nil, log, gw), gw
}

func TestMergeIsMonotonic(t *testing.T) {
	rs, gw := newReconcileFixture(t)
	identity := &types.Identity{UserID: uuid.New()}

	r1, r2 := uuid.New(), uuid.New()
	g1 := uuid.New()
	gw.seed(identity.UserID, r1, r2)

	mirror, failed, err := rs.Merge(context.Background(), identity, map[uuid.UUID]bool{r2: true, g1: true})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("failed = %v, want none", failed)
	}
	for _, id := range []uuid.UUID{r1, r2, g1} {
		if !mirror[id] {
			t.Fatalf("mirror missing %s", id)
		}
	}
	if len(mirror) != 3 {
		t.Fatalf("mirror size = %d, want 3", len(mirror))
	}
	if gw.addCalls != 1 {
		t.Fatalf("addCalls = %d, want 1 (ids already remote are skipped)", gw.addCalls)
	}
}

func TestMergeEmptyGuestWritesNothing(t *testing.T) {
	rs, gw := newReconcileFixture(t)
	identity := &types.Identity{UserID: uuid.New()}
	r1 := uuid.New()
	gw.seed(identity.UserID, r1)

	mirror, failed, err := rs.Merge(context.Background(), identity, nil)
	if err != nil || len(failed) != 0 {
		t.Fatalf("Merge = (failed %v, err %v), want clean", failed, err)
	}
	if len(mirror) != 1 || !mirror[r1] {
		t.Fatalf("mirror = %v, want just the remote set", mirror)
	}
	if gw.addCalls != 0 {
		t.Fatalf("empty guest set must not write, saw %d adds", gw.addCalls)
	}
}

func TestMergeRequiresIdentity(t *testing.T) {
	rs, _ := newReconcileFixture(t)
	if _, _, err := rs.Merge(context.Background(), nil, map[uuid.UUID]bool{uuid.New(): true}); err == nil {
		t.Fatalf("expected an error for a nil identity")
	}
}

func TestMergeListFailureAbortsBeforeWriting(t *testing.T) {
	rs, gw := newReconcileFixture(t)
	identity := &types.Identity{UserID: uuid.New()}
	gw.failList = true

	mirror, failed, err := rs.Merge(context.Background(), identity, map[uuid.UUID]bool{uuid.New(): true})
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("err = %v, want ErrRemoteUnavailable", err)
	}
	if mirror != nil || failed != nil {
		t.Fatalf("aborted merge must return no state, got (%v, %v)", mirror, failed)
	}
	if gw.addCalls != 0 {
		t.Fatalf("aborted merge must not write, saw %d adds", gw.addCalls)
	}
}

func TestMergePartialFailureReportsEveryFailedID(t *testing.T) {
	rs, gw := newReconcileFixture(t)
	identity := &types.Identity{UserID: uuid.New()}

	good := uuid.New()
	bad1 := uuid.New()
	bad2 := uuid.New()
	gw.failAdd[bad1] = true
	gw.failAdd[bad2] = true

	mirror, failed, err := rs.Merge(context.Background(), identity, map[uuid.UUID]bool{
		good: true,
		bad1: true,
		bad2: true,
	})
	var pme *PartialMergeError
	if !errors.As(err, &pme) {
		t.Fatalf("err = %v, want PartialMergeError", err)
	}
	if len(pme.FailedIDs) != 2 {
		t.Fatalf("FailedIDs = %v, want both injected failures", pme.FailedIDs)
	}
	failedSet := asSet(failed)
	if !failedSet[bad1] || !failedSet[bad2] || failedSet[good] {
		t.Fatalf("failed = %v, want exactly the injected ids", failed)
	}
	if !mirror[good] {
		t.Fatalf("persisted id missing from mirror")
	}
	if mirror[bad1] || mirror[bad2] {
		t.Fatalf("unpersisted ids must not appear in the mirror")
	}
}

func TestMergeTwiceLandsOnSameRemoteSet(t *testing.T) {
	rs, _ := newReconcileFixture(t)
	identity := &types.Identity{UserID: uuid.New()}
	guest := map[uuid.UUID]bool{uuid.New(): true, uuid.New(): true}

	first, _, err := rs.Merge(context.Background(), identity, guest)
	if err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	second, _, err := rs.Merge(context.Background(), identity, guest)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("mirror changed across identical merges: %d vs %d", len(first), len(second))
	}
	for id := range first {
		if !second[id] {
			t.Fatalf("second mirror missing %s", id)
		}
	}
}
