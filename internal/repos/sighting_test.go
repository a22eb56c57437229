package repos

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reefspotter/backend/internal/logger"
)

// newSightingTestDB opens a per-test in-memory sqlite database and lays down
// the sighting table with the same composite unique index production gets
// from postgres, since that index is what the Add contract relies on.
func newSightingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ddl := `CREATE TABLE sighting (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		species_id TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT idx_sighting_user_species UNIQUE (user_id, species_id)
	)`
	if err := gdb.Exec(ddl).Error; err != nil {
		t.Fatalf("create sighting table: %v", err)
	}
	return gdb
}

func newSightingRepoFixture(t *testing.T) SightingRepo {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewSightingRepo(newSightingTestDB(t), log)
}

func TestSightingAddIsIdempotent(t *testing.T) {
	repo := newSightingRepoFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	speciesID := uuid.New()

	if err := repo.Add(ctx, nil, userID, speciesID); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := repo.Add(ctx, nil, userID, speciesID); err != nil {
		t.Fatalf("repeated add must succeed, got: %v", err)
	}

	ids, err := repo.ListSpeciesIDs(ctx, nil, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != speciesID {
		t.Fatalf("ids = %v, want exactly one row for the pair", ids)
	}
}

func TestSightingRemoveMissingRowSucceeds(t *testing.T) {
	repo := newSightingRepoFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	speciesID := uuid.New()

	if err := repo.Remove(ctx, nil, userID, speciesID); err != nil {
		t.Fatalf("remove of an absent row must be a no-op, got: %v", err)
	}

	if err := repo.Add(ctx, nil, userID, speciesID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := repo.Remove(ctx, nil, userID, speciesID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := repo.Remove(ctx, nil, userID, speciesID); err != nil {
		t.Fatalf("second remove must also succeed, got: %v", err)
	}

	ids, err := repo.ListSpeciesIDs(ctx, nil, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %v, want empty after remove", ids)
	}
}

func TestSightingListIsScopedToUser(t *testing.T) {
	repo := newSightingRepoFixture(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	s1, s2, s3 := uuid.New(), uuid.New(), uuid.New()

	for _, sp := range []uuid.UUID{s1, s2} {
		if err := repo.Add(ctx, nil, alice, sp); err != nil {
			t.Fatalf("add for alice: %v", err)
		}
	}
	if err := repo.Add(ctx, nil, bob, s3); err != nil {
		t.Fatalf("add for bob: %v", err)
	}

	ids, err := repo.ListSpeciesIDs(ctx, nil, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("alice ids = %v, want 2", ids)
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[s1] || !seen[s2] || seen[s3] {
		t.Fatalf("alice ids = %v, want exactly her own rows", ids)
	}
}
