package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"magick-workers/internal/common/config"
)

type FirestoreClient struct {
	Client *firestore.Client
}

// NewFirestore connects with the credentials file when set, otherwise with
// application default credentials (or FIRESTORE_EMULATOR_HOST).
func NewFirestore(ctx context.Context, cfg config.FirestoreConfig) (*FirestoreClient, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreClient{Client: client}, nil
}

func (c *FirestoreClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
