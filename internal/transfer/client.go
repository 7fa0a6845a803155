package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"baler/internal/config"
)

// RemoteObject describes a single file visible in the remote store.
type RemoteObject struct {
	// Path is relative to the store source root.
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Locator returns the full store locator for the object under root.
func (o RemoteObject) Locator(root string) string {
	return JoinLocator(root, o.Path)
}

// Client moves media between the remote store and local disk.
type Client interface {
	// List enumerates files under the store source root.
	List(ctx context.Context) ([]RemoteObject, error)
	// Retrieve copies one remote object to a local path.
	Retrieve(ctx context.Context, locator, localPath string) error
	// Publish copies a local file to name under the store destination root.
	Publish(ctx context.Context, localPath, name string) error
}

// New selects a client implementation from the configured store backend.
func New(cfg *config.Config) (Client, error) {
	switch cfg.Store.Backend {
	case config.BackendRclone:
		return NewRclone(cfg), nil
	case config.BackendLocal:
		return NewLocal(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

// JoinLocator joins a store root and a relative path with a single slash.
// Works for both filesystem paths and remote:path style locators.
func JoinLocator(root, rel string) string {
	root = strings.TrimRight(root, "/")
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		return root
	}
	return root + "/" + rel
}

func opContext(ctx context.Context, timeoutSeconds int) (context.Context, context.CancelFunc) {
	if timeoutSeconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
}
