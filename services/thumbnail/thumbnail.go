package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gearshare/models"
	"gearshare/services/storage"

	"go.uber.org/zap"
)

// TriggerName is the name the generator is registered under.
const TriggerName = "generateThumbnail"

// Config controls thumbnail naming and size.
type Config struct {
	Prefix       string
	MaxDimension int
	// ScratchDir is the parent of per-invocation scratch directories;
	// empty means os.TempDir().
	ScratchDir string
}

// Generator writes a bounded-size copy of every new image beside the original.
type Generator struct {
	store   storage.ObjectStore
	resizer Resizer
	cfg     Config
	logger  *zap.Logger
}

func NewGenerator(store storage.ObjectStore, resizer Resizer, cfg Config, logger *zap.Logger) *Generator {
	if cfg.Prefix == "" {
		cfg.Prefix = "thumbnail_"
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{store: store, resizer: resizer, cfg: cfg, logger: logger}
}

// ThumbnailName returns the object name of the thumbnail for name, placed in
// the same folder.
func ThumbnailName(name, prefix string) string {
	base := prefix + path.Base(name)
	dir := path.Dir(name)
	if dir == "." || dir == "/" {
		return base
	}
	return dir + "/" + base
}

// Handle processes one object-finalize event. Guard misses and images in a
// format the resizer cannot read complete as skipped; download, resize and
// upload failures fail the invocation.
func (g *Generator) Handle(ctx context.Context, ev models.StorageObjectEvent) (models.Outcome, error) {
	log := g.logger.With(zap.String("bucket", ev.Bucket), zap.String("object", ev.Name))

	if ev.Bucket == "" || ev.Name == "" {
		return models.Outcome{}, fmt.Errorf("Generator.Handle: event missing bucket or object name")
	}
	if reason := g.skipReason(ev); reason != "" {
		log.Info(reason)
		return models.Skipped(TriggerName, reason), nil
	}

	fileName := path.Base(ev.Name)
	scratch, err := os.MkdirTemp(g.cfg.ScratchDir, "thumbnail-*")
	if err != nil {
		return models.Outcome{}, fmt.Errorf("Generator.Handle: scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Warn("failed to remove scratch dir", zap.String("dir", scratch), zap.Error(err))
		}
	}()
	local := filepath.Join(scratch, fileName)

	if err := g.store.Download(ctx, ev.Bucket, ev.Name, local); err != nil {
		return models.Outcome{}, fmt.Errorf("Generator.Handle: download: %w", err)
	}
	log.Debug("image downloaded locally", zap.String("path", local))

	contentType, err := g.resizer.Thumbnail(ctx, local, g.cfg.MaxDimension)
	if errors.Is(err, image.ErrFormat) {
		// A retry would decode the same bytes again.
		log.Warn("unsupported image format", zap.Error(err))
		return models.Skipped(TriggerName, "unsupported image format"), nil
	}
	if err != nil {
		return models.Outcome{}, fmt.Errorf("Generator.Handle: resize: %w", err)
	}
	if contentType == "" {
		contentType = ev.ContentType
	}

	thumbName := ThumbnailName(ev.Name, g.cfg.Prefix)
	if err := g.store.Upload(ctx, ev.Bucket, local, thumbName, contentType); err != nil {
		return models.Outcome{}, fmt.Errorf("Generator.Handle: upload: %w", err)
	}

	log.Info("thumbnail uploaded", zap.String("thumbnail", thumbName))
	out := models.Completed(TriggerName)
	out.Reason = thumbName
	return out, nil
}

// skipReason evaluates the guards in order and returns why the event needs
// no work, or "".
func (g *Generator) skipReason(ev models.StorageObjectEvent) string {
	switch {
	case !strings.HasPrefix(ev.ContentType, "image/"):
		return "not an image"
	case strings.HasPrefix(path.Base(ev.Name), g.cfg.Prefix):
		return "already a thumbnail"
	case ev.ResourceState == models.ResourceNotExists:
		return "deletion event"
	case ev.ResourceState == models.ResourceExists && ev.Metageneration > 1:
		return "metadata change event"
	}
	return ""
}
