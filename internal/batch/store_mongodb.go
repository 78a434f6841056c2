package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"piiguard/internal/core"
)

const batchesCollection = "batches"

type mongoBatchDocument struct {
	ID           string `bson:"_id"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
	Status       string `bson:"status"`
	Source       string `bson:"source"`
	TotalRecords int    `bson:"total_records"`
	PIIRecords   int    `bson:"pii_records"`
	Data         []byte `bson:"data"`
}

func newMongoBatchDocument(batch *core.Batch, payload []byte) mongoBatchDocument {
	return mongoBatchDocument{
		ID:           batch.ID,
		CreatedAt:    batch.CreatedAt,
		UpdatedAt:    time.Now().Unix(),
		Status:       batch.Status,
		Source:       batch.Source,
		TotalRecords: batch.Summary.Total,
		PIIRecords:   batch.Summary.PII,
		Data:         payload,
	}
}

// MongoDBStore stores batches in MongoDB.
type MongoDBStore struct {
	collection *mongo.Collection
}

// NewMongoDBStore creates collection indexes if needed.
func NewMongoDBStore(ctx context.Context, database *mongo.Database) (*MongoDBStore, error) {
	if database == nil {
		return nil, errors.New("database is required")
	}

	coll := database.Collection(batchesCollection)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create batches indexes: %w", err)
	}

	return &MongoDBStore{collection: coll}, nil
}

// Create inserts a new batch.
func (s *MongoDBStore) Create(ctx context.Context, batch *core.Batch) error {
	payload, err := encodeBatch(batch)
	if err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, newMongoBatchDocument(batch, payload)); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// Get returns a batch by id.
func (s *MongoDBStore) Get(ctx context.Context, id string) (*core.Batch, error) {
	var doc mongoBatchDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query batch: %w", err)
	}
	return decodeBatch(doc.Data)
}

// List returns batches ordered by created_at desc, id desc.
func (s *MongoDBStore) List(ctx context.Context, opts ListOptions) ([]*core.Batch, error) {
	limit := normalizeLimit(opts.Limit)

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}
	if opts.After != "" {
		var cursorDoc mongoBatchDocument
		err := s.collection.FindOne(ctx, bson.M{"_id": opts.After}).Decode(&cursorDoc)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("query after cursor: %w", err)
		}
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": cursorDoc.CreatedAt}},
			bson.M{"created_at": cursorDoc.CreatedAt, "_id": bson.M{"$lt": cursorDoc.ID}},
		}
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]*core.Batch, 0, limit)
	for cursor.Next(ctx) {
		var doc mongoBatchDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode batch document: %w", err)
		}
		batch, err := decodeBatch(doc.Data)
		if err != nil {
			return nil, fmt.Errorf("decode batch payload: %w", err)
		}
		items = append(items, batch)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches cursor: %w", err)
	}
	return items, nil
}

// DeleteCreatedBefore removes batches created before cutoff.
func (s *MongoDBStore) DeleteCreatedBefore(ctx context.Context, cutoff int64) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("delete expired batches: %w", err)
	}
	return result.DeletedCount, nil
}

// Update replaces a stored batch object.
func (s *MongoDBStore) Update(ctx context.Context, batch *core.Batch) error {
	payload, err := encodeBatch(batch)
	if err != nil {
		return err
	}

	doc := newMongoBatchDocument(batch, payload)
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": batch.ID},
		bson.M{"$set": bson.M{
			"updated_at":    doc.UpdatedAt,
			"status":        doc.Status,
			"total_records": doc.TotalRecords,
			"pii_records":   doc.PIIRecords,
			"data":          doc.Data,
		}},
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op; Mongo client lifecycle is managed by storage layer.
func (s *MongoDBStore) Close() error {
	return nil
}
