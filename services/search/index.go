package search

import (
	"context"
	"errors"
	"fmt"

	algolia "github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document is one free-form search record.
type Document map[string]interface{}

// Index stores documents under a caller-chosen id.
type Index interface {
	Upsert(ctx context.Context, id string, doc Document) error
	Delete(ctx context.Context, id string) error
}

// Backend opens the index with the given name.
type Backend interface {
	Index(name string) Index
}

// AlgoliaBackend opens indices on one Algolia application.
type AlgoliaBackend struct {
	client *algolia.Client
}

func NewAlgoliaBackend(appID, apiKey string) (*AlgoliaBackend, error) {
	if appID == "" || apiKey == "" {
		return nil, errors.New("NewAlgoliaBackend: ALGOLIA_APP_ID and ALGOLIA_API_KEY are required")
	}
	return &AlgoliaBackend{client: algolia.NewClient(appID, apiKey)}, nil
}

func (b *AlgoliaBackend) Index(name string) Index {
	return &AlgoliaIndex{index: b.client.InitIndex(name)}
}

// AlgoliaIndex writes records with objectID set to the document id.
type AlgoliaIndex struct {
	index *algolia.Index
}

func (a *AlgoliaIndex) Upsert(_ context.Context, id string, doc Document) error {
	if _, err := a.index.SaveObject(withID(doc, "objectID", id)); err != nil {
		return fmt.Errorf("AlgoliaIndex.Upsert %s: %w", id, err)
	}
	return nil
}

func (a *AlgoliaIndex) Delete(_ context.Context, id string) error {
	if _, err := a.index.DeleteObject(id); err != nil {
		return fmt.Errorf("AlgoliaIndex.Delete %s: %w", id, err)
	}
	return nil
}

// MongoBackend keeps each index in its own collection.
type MongoBackend struct {
	db *mongo.Database
}

func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{db: db}
}

func (b *MongoBackend) Index(name string) Index {
	return &MongoIndex{coll: b.db.Collection(name)}
}

// MongoIndex replaces whole documents keyed by _id.
type MongoIndex struct {
	coll *mongo.Collection
}

func (m *MongoIndex) Upsert(ctx context.Context, id string, doc Document) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := m.coll.ReplaceOne(ctx, bson.M{"_id": id}, withID(doc, "_id", id), opts); err != nil {
		return fmt.Errorf("MongoIndex.Upsert %s: %w", id, err)
	}
	return nil
}

func (m *MongoIndex) Delete(ctx context.Context, id string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("MongoIndex.Delete %s: %w", id, err)
	}
	return nil
}

// withID copies doc and sets the backend's id field, leaving the caller's
// map untouched.
func withID(doc Document, field, id string) Document {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[field] = id
	return out
}
