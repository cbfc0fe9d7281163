package triggers

import (
	"context"

	"gearshare/models"
	"gearshare/services/notification"
	"gearshare/services/search"
	"gearshare/services/thumbnail"
)

// Handlers are the services the standard triggers run on. Nil entries are
// left unregistered.
type Handlers struct {
	Thumbnails    *thumbnail.Generator
	Notifications *notification.Dispatcher
	Mirrors       []*search.Mirror
}

// RegisterAll registers every trigger backed by a non-nil handler.
func (r *Registry) RegisterAll(h Handlers) {
	if h.Thumbnails != nil {
		r.Register(thumbnail.TriggerName, StorageHandler(h.Thumbnails.Handle))
	}
	if h.Notifications != nil {
		d := h.Notifications
		r.Register(notification.TriggerName, DatabaseHandler(func(ctx context.Context, ev models.DatabaseEvent) (models.Outcome, error) {
			res, err := d.Handle(ctx, ev)
			return res.Outcome, err
		}))
	}
	for _, m := range h.Mirrors {
		c := m.Collection()
		r.Register(c.WriteTrigger, DatabaseHandler(m.HandleWrite))
		r.Register(c.DeleteTrigger, DatabaseHandler(m.HandleDelete))
	}
}
