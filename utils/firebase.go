// utils/firebase.go
package utils

import (
	"context"
	"fmt"

	"gearshare/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FirebaseClients holds the Firebase services the triggers talk to.
type FirebaseClients struct {
	App       *firebase.App
	Database  *db.Client
	Messaging *messaging.Client
}

// FirebaseInit initializes the Firebase App with its Realtime Database and
// Messaging clients.
func FirebaseInit(ctx context.Context) (*FirebaseClients, error) {
	cfg := &firebase.Config{
		ProjectID:   config.AppConfig.FirebaseProjectID,
		DatabaseURL: config.AppConfig.FirebaseDatabaseURL,
	}

	app, err := firebase.NewApp(ctx, cfg, ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}

	database, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Database client: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}

	return &FirebaseClients{
		App:       app,
		Database:  database,
		Messaging: client,
	}, nil
}

// ClientOptions returns the Google API options shared by Firebase, Storage
// and Pub/Sub. Without a credentials file the ambient credentials are used.
func ClientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if path := config.AppConfig.FirebaseCredentialsFile; path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	return opts
}
