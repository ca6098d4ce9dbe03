package catalog

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
)

type firestoreBusiness struct {
	models.Business
	Deleted bool `firestore:"deleted"`
}

// FirestoreLoader reads the businesses collection the mobile app's business
// manager writes to.
type FirestoreLoader struct {
	client     *firestore.Client
	collection string
	limit      int
	logger     logger.Logger
}

func NewFirestoreLoader(client *firestore.Client, collection string, limit int, log logger.Logger) *FirestoreLoader {
	if limit <= 0 {
		limit = DefaultMaxDocuments
	}
	return &FirestoreLoader{
		client:     client,
		collection: collection,
		limit:      limit,
		logger:     log.WithFields(map[string]interface{}{"component": "catalog.firestore", "collection": collection}),
	}
}

func (l *FirestoreLoader) Name() string { return "firestore" }

func (l *FirestoreLoader) Load(ctx context.Context) ([]models.Business, error) {
	iter := l.client.Collection(l.collection).Limit(l.limit).Documents(ctx)
	defer iter.Stop()

	businesses := []models.Business{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", l.collection, err)
		}

		var fb firestoreBusiness
		if err := doc.DataTo(&fb); err != nil {
			l.logger.Warn("skipping undecodable business", map[string]interface{}{
				"docId": doc.Ref.ID,
				"error": err.Error(),
			})
			continue
		}
		if fb.Deleted {
			continue
		}

		b := fb.Business
		if b.ID == "" {
			b.ID = doc.Ref.ID
		}
		if b.Tags == nil {
			b.Tags = []string{}
		}
		businesses = append(businesses, b)
	}
	return businesses, nil
}

// Put writes businesses keyed by ID, for seeding an emulator or a new project.
func (l *FirestoreLoader) Put(ctx context.Context, businesses []models.Business) error {
	bw := l.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(businesses))
	for _, b := range businesses {
		job, err := bw.Set(l.client.Collection(l.collection).Doc(b.ID), firestoreBusiness{Business: b})
		if err != nil {
			bw.End()
			return fmt.Errorf("queue %s: %w", b.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("write %s: %w", businesses[i].ID, err)
		}
	}
	return nil
}
