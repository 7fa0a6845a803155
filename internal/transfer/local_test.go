package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"baler/internal/testsupport"
)

func TestLocalListWalksSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Store.Source, "b.mkv"), 200)
	testsupport.WriteFile(t, filepath.Join(cfg.Store.Source, "nested", "a.mkv"), 100)

	client := NewLocal(cfg)
	objects, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 files, got %d", len(objects))
	}
	if objects[0].Path != "b.mkv" || objects[1].Path != "nested/a.mkv" {
		t.Fatalf("unexpected paths: %q, %q", objects[0].Path, objects[1].Path)
	}
	if objects[1].Size != 100 {
		t.Fatalf("expected size 100, got %d", objects[1].Size)
	}
}

func TestLocalRetrieveCopies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Store.Source, "clip.mkv")
	testsupport.WriteFile(t, source, 300)

	client := NewLocal(cfg)
	local := filepath.Join(cfg.Paths.StagingDir, "item-1", "clip.mkv")
	if err := client.Retrieve(context.Background(), source, local); err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}

	info, err := os.Stat(local)
	if err != nil {
		t.Fatalf("stat staged file: %v", err)
	}
	if info.Size() != 300 {
		t.Fatalf("expected 300 bytes staged, got %d", info.Size())
	}
}

func TestLocalPublishRenamesIntoPlace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	output := filepath.Join(cfg.Paths.StagingDir, "movie.av1.mkv")
	testsupport.WriteFile(t, output, 150)

	client := NewLocal(cfg)
	if err := client.Publish(context.Background(), output, "season1/movie.av1.mkv"); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	target := filepath.Join(cfg.Store.Destination, "season1", "movie.av1.mkv")
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat published file: %v", err)
	}
	if info.Size() != 150 {
		t.Fatalf("expected 150 bytes published, got %d", info.Size())
	}

	if _, err := os.Stat(target + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("expected partial file removed, stat err=%v", err)
	}
}

func TestLocalPublishMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := NewLocal(cfg)

	err := client.Publish(context.Background(), filepath.Join(cfg.Paths.StagingDir, "missing.mkv"), "missing.mkv")
	if err == nil {
		t.Fatal("expected error for missing source file")
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Store.Destination, "missing.mkv.partial")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no partial leftover, stat err=%v", statErr)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := client.(*Local); !ok {
		t.Fatalf("expected Local client, got %T", client)
	}

	cfg.Store.Backend = "rclone"
	client, err = New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := client.(*Rclone); !ok {
		t.Fatalf("expected Rclone client, got %T", client)
	}

	cfg.Store.Backend = "ftp"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
