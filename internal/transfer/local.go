package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"baler/internal/config"
	"baler/internal/fileutil"
)

// Local serves a store rooted in the local filesystem. Useful for
// mounted network shares and for tests.
type Local struct {
	source      string
	destination string
}

// NewLocal constructs a filesystem-backed client from configuration.
func NewLocal(cfg *config.Config) *Local {
	return &Local{
		source:      cfg.Store.Source,
		destination: cfg.Store.Destination,
	}
}

// List walks the source root and returns every regular file.
func (l *Local) List(ctx context.Context) ([]RemoteObject, error) {
	var objects []RemoteObject
	err := filepath.WalkDir(l.source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.source, path)
		if err != nil {
			return err
		}
		objects = append(objects, RemoteObject{
			Path:    filepath.ToSlash(rel),
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk store source: %w", err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

// Retrieve copies one source file to a local path. The copy is digest
// checked, matching the transfer checksums an rclone backend performs.
func (l *Local) Retrieve(ctx context.Context, locator, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if locator == "" {
		return errors.New("locator required")
	}
	if localPath == "" {
		return errors.New("local path required")
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	if _, err := fileutil.CopyFileVerified(locator, localPath); err != nil {
		return fmt.Errorf("copy from store: %w", err)
	}
	return nil
}

// Publish copies a local file underneath the destination root. The copy
// lands under a partial name first and is renamed into place so readers
// never observe a half-written file.
func (l *Local) Publish(ctx context.Context, localPath, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if localPath == "" {
		return errors.New("local path required")
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("destination name required")
	}

	target := filepath.Join(l.destination, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	partial := target + ".partial"
	if _, err := fileutil.CopyFileVerified(localPath, partial); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("copy to destination: %w", err)
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("finalize destination file: %w", err)
	}
	return nil
}

var _ Client = (*Local)(nil)
