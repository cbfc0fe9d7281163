package realtime

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/db"
)

// Store is the subset of the realtime database the triggers use.
type Store interface {
	// Get decodes the value at path into v. A missing path decodes as JSON null.
	Get(ctx context.Context, path string, v interface{}) error
	// Delete removes the value at path. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error
}

// FirebaseStore implements Store on the Firebase Realtime Database.
type FirebaseStore struct {
	client *db.Client
}

func NewFirebaseStore(client *db.Client) *FirebaseStore {
	return &FirebaseStore{client: client}
}

func (s *FirebaseStore) Get(ctx context.Context, path string, v interface{}) error {
	if err := s.client.NewRef(path).Get(ctx, v); err != nil {
		return fmt.Errorf("FirebaseStore.Get %s: %w", path, err)
	}
	return nil
}

func (s *FirebaseStore) Delete(ctx context.Context, path string) error {
	if err := s.client.NewRef(path).Delete(ctx); err != nil {
		return fmt.Errorf("FirebaseStore.Delete %s: %w", path, err)
	}
	return nil
}
