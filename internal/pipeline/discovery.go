package pipeline

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"baler/internal/logging"
	"baler/internal/services"
	"baler/internal/transcode"
)

// discover lists the remote store and catalogs unseen objects that match
// the configured extensions. Inserts are idempotent on the source locator,
// so re-listing an unchanged store discovers nothing.
func (p *Pipeline) discover(ctx context.Context, logger *slog.Logger, dryRun bool) (int, error) {
	objects, err := p.client.List(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "discovery", "list", p.cfg.Store.Source, err)
	}

	allowed := make(map[string]struct{}, len(p.cfg.Store.Extensions))
	for _, ext := range p.cfg.Store.Extensions {
		allowed[ext] = struct{}{}
	}

	count := 0
	skipped := 0
	for _, object := range objects {
		ext := strings.ToLower(path.Ext(object.Name))
		if _, ok := allowed[ext]; !ok {
			skipped++
			continue
		}
		locator := object.Locator(p.cfg.Store.Source)

		if dryRun {
			existing, err := p.store.GetByLocator(ctx, locator)
			if err != nil {
				logger.Warn("catalog lookup failed", logging.String("locator", locator), logging.Error(err))
				continue
			}
			if existing == nil {
				logger.Info("dry run: would catalog",
					logging.String("locator", locator),
					logging.Int64("size_bytes", object.Size),
				)
				count++
				p.discovered.Add(1)
			}
			continue
		}

		item, created, err := p.store.InsertDiscovered(ctx, locator, object.Name, object.Size)
		if err != nil {
			logger.Warn("catalog insert failed", logging.String("locator", locator), logging.Error(err))
			continue
		}
		if !created {
			continue
		}
		count++
		p.discovered.Add(1)
		logger.Info("cataloged new item",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("filename", item.Filename),
			logging.Int64("size_bytes", item.OriginalSize),
		)
	}

	logger.Info("discovery finished listing",
		logging.Int("remote_objects", len(objects)),
		logging.Int("new", count),
		logging.Int("filtered", skipped),
	)
	return count, nil
}

// relativeLocator reduces a full source locator to its path relative to the
// store source root. Items whose locator does not sit under the root fall
// back to their bare filename.
func relativeLocator(root, locator, filename string) string {
	root = strings.TrimRight(strings.TrimSpace(root), "/")
	if root != "" {
		if rel := strings.TrimPrefix(locator, root); rel != locator {
			rel = strings.TrimPrefix(rel, "/")
			if rel != "" {
				return rel
			}
		}
	}
	return filename
}

// publishName maps a source-relative path to the destination-relative name
// of the transcoded output, preserving directory layout.
func publishName(rel string) string {
	dir := path.Dir(rel)
	base := transcode.OutputName(rel)
	if dir == "." || dir == "/" {
		return base
	}
	return path.Join(dir, base)
}
