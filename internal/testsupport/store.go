package testsupport

import (
	"context"
	"testing"

	"baler/internal/catalog"
	"baler/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Discover inserts a cataloged item for tests using the provided store.
func Discover(t testing.TB, store *catalog.Store, locator, filename string, size int64) *catalog.Item {
	t.Helper()

	item, _, err := store.InsertDiscovered(context.Background(), locator, filename, size)
	if err != nil {
		t.Fatalf("store.InsertDiscovered: %v", err)
	}
	return item
}

// AdvanceTo walks an item forward through the legal status chain until it
// reaches the requested status. Useful for seeding mid-pipeline states.
func AdvanceTo(t testing.TB, store *catalog.Store, id int64, target catalog.Status) *catalog.Item {
	t.Helper()

	chain := []catalog.Status{
		catalog.StatusDownloading,
		catalog.StatusArchiving,
		catalog.StatusCompressing,
		catalog.StatusVerifying,
		catalog.StatusUploading,
		catalog.StatusCompleted,
	}
	ctx := context.Background()
	item, err := store.GetByID(ctx, id)
	if err != nil || item == nil {
		t.Fatalf("store.GetByID(%d): item=%v err=%v", id, item, err)
	}
	if item.Status == target {
		return item
	}
	for _, status := range chain {
		item, err = store.Advance(ctx, id, status, catalog.Fields{})
		if err != nil {
			t.Fatalf("advance item %d to %s: %v", id, status, err)
		}
		if status == target {
			return item
		}
	}
	t.Fatalf("status %s is not reachable through the forward chain", target)
	return nil
}
