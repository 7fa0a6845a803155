package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"baler/internal/config"
)

var commandContext = exec.CommandContext

// Rclone wraps the rclone command-line tool. Any remote rclone can address
// (sftp, s3, drive, a plain path) works as a store root.
type Rclone struct {
	binary         string
	source         string
	destination    string
	timeoutSeconds int
}

// NewRclone constructs an rclone-backed client from configuration.
func NewRclone(cfg *config.Config) *Rclone {
	return &Rclone{
		binary:         cfg.RcloneBinary(),
		source:         cfg.Store.Source,
		destination:    cfg.Store.Destination,
		timeoutSeconds: cfg.Store.TransferTimeout,
	}
}

type lsjsonEntry struct {
	Path    string    `json:"Path"`
	Name    string    `json:"Name"`
	Size    int64     `json:"Size"`
	ModTime time.Time `json:"ModTime"`
	IsDir   bool      `json:"IsDir"`
}

// List enumerates files under the source root using rclone lsjson.
func (r *Rclone) List(ctx context.Context) ([]RemoteObject, error) {
	ctx, cancel := opContext(ctx, r.timeoutSeconds)
	defer cancel()

	args := []string{"lsjson", "--recursive", "--files-only", r.source}
	cmd := commandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, commandError("rclone lsjson", err, stderr.String())
	}

	var entries []lsjsonEntry
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		return nil, fmt.Errorf("parse rclone lsjson output: %w", err)
	}

	objects := make([]RemoteObject, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		objects = append(objects, RemoteObject{
			Path:    entry.Path,
			Name:    entry.Name,
			Size:    entry.Size,
			ModTime: entry.ModTime,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

// Retrieve copies one remote object to a local path using rclone copyto.
func (r *Rclone) Retrieve(ctx context.Context, locator, localPath string) error {
	if locator == "" {
		return errors.New("locator required")
	}
	if localPath == "" {
		return errors.New("local path required")
	}
	return r.copyto(ctx, locator, localPath)
}

// Publish copies a local file to name under the destination root.
func (r *Rclone) Publish(ctx context.Context, localPath, name string) error {
	if localPath == "" {
		return errors.New("local path required")
	}
	if name == "" {
		return errors.New("destination name required")
	}
	return r.copyto(ctx, localPath, JoinLocator(r.destination, name))
}

func (r *Rclone) copyto(ctx context.Context, src, dst string) error {
	ctx, cancel := opContext(ctx, r.timeoutSeconds)
	defer cancel()

	cmd := commandContext(ctx, r.binary, "copyto", src, dst)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return commandError("rclone copyto", err, stderr.String())
	}
	return nil
}

func commandError(operation string, err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		return fmt.Errorf("%s: %w", operation, err)
	}
	// Keep only the tail of long tool output.
	const maxDetail = 400
	if len(detail) > maxDetail {
		detail = "..." + detail[len(detail)-maxDetail:]
	}
	return fmt.Errorf("%s: %w: %s", operation, err, detail)
}

var _ Client = (*Rclone)(nil)
