package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gearshare/config"
	"gearshare/database"
	"gearshare/database/repository/realtime"
	"gearshare/services/dedup"
	"gearshare/services/notification"
	"gearshare/services/search"
	"gearshare/services/storage"
	"gearshare/services/thumbnail"
	"gearshare/services/triggers"
	"gearshare/utils"

	"go.uber.org/zap"
)

// appOptions override the configured services, mostly for replay.
type appOptions struct {
	// DBFile loads the realtime database from a JSON export instead of Firebase.
	DBFile string
	// BucketDir serves buckets from local directories instead of Cloud Storage.
	BucketDir string
	// DryRun logs notifications instead of sending them.
	DryRun bool
	// SearchBackend overrides SEARCH_BACKEND.
	SearchBackend string
	// NoDedup disables the delivery ledger.
	NoDedup bool
}

// app holds the wired trigger registry and what must be closed with it.
type app struct {
	registry *triggers.Registry
	store    realtime.Store
	probes   []utils.Probe
	closers  []func() error
	logger   *zap.Logger
}

func buildApp(ctx context.Context, o appOptions) (a *app, err error) {
	cfg := config.AppConfig
	logger := utils.GetLogger()
	a = &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var fb *utils.FirebaseClients
	firebaseClients := func() (*utils.FirebaseClients, error) {
		if fb != nil {
			return fb, nil
		}
		clients, err := utils.FirebaseInit(ctx)
		if err != nil {
			return nil, err
		}
		fb = clients
		return fb, nil
	}

	// Realtime database.
	if o.DBFile != "" {
		data, err := os.ReadFile(o.DBFile)
		if err != nil {
			return nil, fmt.Errorf("read database export: %w", err)
		}
		mem := realtime.NewMemoryStore()
		if err := mem.LoadJSON(data); err != nil {
			return nil, fmt.Errorf("load database export: %w", err)
		}
		a.store = mem
	} else {
		clients, err := firebaseClients()
		if err != nil {
			return nil, err
		}
		a.store = realtime.NewFirebaseStore(clients.Database)
	}

	// Push notifications.
	var pusher notification.Pusher
	if o.DryRun {
		pusher = notification.NewLogPusher(logger.Named("push"))
	} else {
		clients, err := firebaseClients()
		if err != nil {
			return nil, err
		}
		pusher = notification.NewFCMPusher(clients.Messaging)
	}

	// Object storage.
	var objects storage.ObjectStore
	if o.BucketDir != "" {
		objects = storage.NewLocalObjectStore(o.BucketDir)
	} else {
		gcs, err := storage.NewGCSObjectStore(ctx, utils.ClientOptions()...)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gcs.Close)
		objects = gcs
	}

	resizer, err := thumbnail.NewResizer(cfg.ThumbnailResizer, cfg.ImageMagickBinary)
	if err != nil {
		return nil, err
	}
	generator := thumbnail.NewGenerator(objects, resizer, thumbnail.Config{
		Prefix:       cfg.ThumbnailPrefix,
		MaxDimension: cfg.ThumbnailMaxDimension,
		ScratchDir:   cfg.ScratchDir,
	}, logger.Named("thumbnail"))

	policy, err := notification.ParsePolicy(cfg.NotifyPolicy)
	if err != nil {
		return nil, err
	}
	dispatcher := notification.NewDispatcher(realtime.NewRepo(a.store), pusher, policy, logger.Named("notification"))

	backend, err := a.searchBackend(ctx, firstNonEmpty(o.SearchBackend, cfg.SearchBackend))
	if err != nil {
		return nil, err
	}
	var mirrors []*search.Mirror
	for _, coll := range []search.Collection{
		search.Equipment(cfg.SearchEquipmentIndex),
		search.Vendors(cfg.SearchVendorsIndex),
	} {
		m, err := search.NewMirror(coll, backend, logger.Named("search"))
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, m)
	}

	opts := []triggers.Option{triggers.WithMetrics(triggers.MustNewMetrics(nil))}
	if cfg.DedupEnabled && !o.NoDedup {
		client, err := utils.NewDedupClient()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.probes = append(a.probes, utils.RedisProbe("redis", client))
		opts = append(opts, triggers.WithLedger(dedup.NewRedisLedger(client, cfg.DedupTTL)))
	}

	a.registry = triggers.NewRegistry(logger.Named("triggers"), opts...)
	a.registry.RegisterAll(triggers.Handlers{
		Thumbnails:    generator,
		Notifications: dispatcher,
		Mirrors:       mirrors,
	})
	return a, nil
}

func (a *app) searchBackend(ctx context.Context, kind string) (search.Backend, error) {
	cfg := config.AppConfig
	switch strings.ToLower(kind) {
	case "", "algolia":
		return search.NewAlgoliaBackend(cfg.AlgoliaAppID, cfg.AlgoliaAPIKey)
	case "mongo", "mongodb":
		db, err := database.InitDB(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return database.CloseDB(context.Background()) })
		a.probes = append(a.probes, utils.MongoProbe("mongo", database.MongoClient))
		return search.NewMongoBackend(db), nil
	case "memory":
		return search.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", kind)
	}
}

// Close releases clients in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
