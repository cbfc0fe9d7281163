package search

import (
	"context"
	"fmt"
	"strings"

	"gearshare/models"

	"go.uber.org/zap"
)

// Collection describes one database collection mirrored into a search index.
type Collection struct {
	// Pattern is the record path, e.g. /equipment/{equipmentId}.
	Pattern string
	// Index is the search index name.
	Index string
	// WriteTrigger and DeleteTrigger are the names the mirror handlers are
	// registered under.
	WriteTrigger  string
	DeleteTrigger string
}

// Equipment mirrors /equipment into indexName.
func Equipment(indexName string) Collection {
	return Collection{
		Pattern:       "/equipment/{equipmentId}",
		Index:         indexName,
		WriteTrigger:  "indexEquipment",
		DeleteTrigger: "deleteEquipmentIndex",
	}
}

// Vendors mirrors /vendors into indexName.
func Vendors(indexName string) Collection {
	return Collection{
		Pattern:       "/vendors/{vendorId}",
		Index:         indexName,
		WriteTrigger:  "indexVendor",
		DeleteTrigger: "deleteVendorIndex",
	}
}

// Mirror keeps one search index in step with one database collection.
// Index failures are logged and swallowed.
type Mirror struct {
	coll   Collection
	index  Index
	param  string
	logger *zap.Logger
}

func NewMirror(coll Collection, backend Backend, logger *zap.Logger) (*Mirror, error) {
	param, err := keyParam(coll.Pattern)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		coll:   coll,
		index:  backend.Index(coll.Index),
		param:  param,
		logger: logger.With(zap.String("index", coll.Index)),
	}, nil
}

func (m *Mirror) Collection() Collection { return m.coll }

// HandleWrite upserts the after-value of a write as the document for its key.
func (m *Mirror) HandleWrite(ctx context.Context, ev models.DatabaseEvent) (models.Outcome, error) {
	key, ok := m.key(ev.Path)
	if !ok {
		return models.Skipped(m.coll.WriteTrigger, "path not in mirrored collection"), nil
	}
	if !ev.AfterExists() {
		return models.Skipped(m.coll.WriteTrigger, "record removed"), nil
	}

	out := models.Completed(m.coll.WriteTrigger)
	var doc Document
	if err := ev.DecodeAfter(&doc); err != nil {
		m.logger.Error("Record is not an object", zap.String("key", key), zap.Error(err))
		out.Swallow(err)
		return out, nil
	}
	if err := m.index.Upsert(ctx, key, doc); err != nil {
		m.logger.Error("Failed to index record", zap.String("key", key), zap.Error(err))
		out.Swallow(err)
		return out, nil
	}
	m.logger.Info("Indexed record", zap.String("key", key))
	return out, nil
}

// HandleDelete removes the document for a deleted record.
func (m *Mirror) HandleDelete(ctx context.Context, ev models.DatabaseEvent) (models.Outcome, error) {
	key, ok := m.key(ev.Path)
	if !ok {
		return models.Skipped(m.coll.DeleteTrigger, "path not in mirrored collection"), nil
	}
	if ev.AfterExists() {
		return models.Skipped(m.coll.DeleteTrigger, "record still exists"), nil
	}

	out := models.Completed(m.coll.DeleteTrigger)
	if err := m.index.Delete(ctx, key); err != nil {
		m.logger.Error("Failed to remove record from index", zap.String("key", key), zap.Error(err))
		out.Swallow(err)
		return out, nil
	}
	m.logger.Info("Removed record from index", zap.String("key", key))
	return out, nil
}

func (m *Mirror) key(path string) (string, bool) {
	params, ok := models.MatchPath(m.coll.Pattern, path)
	if !ok {
		return "", false
	}
	return params[m.param], true
}

// keyParam returns the single {param} that ends the pattern.
func keyParam(pattern string) (string, error) {
	segs := strings.Split(strings.Trim(pattern, "/"), "/")
	last := segs[len(segs)-1]
	if len(segs) < 2 || !strings.HasPrefix(last, "{") || !strings.HasSuffix(last, "}") {
		return "", fmt.Errorf("NewMirror: pattern %q must end in a {key} segment", pattern)
	}
	return last[1 : len(last)-1], nil
}
