package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/pkg/tracing"
)

// ReallocationRepository stores reallocation requests with their audit trail embedded
type ReallocationRepository struct {
	collection *mongo.Collection
}

// NewReallocationRepository creates a new ReallocationRepository
func NewReallocationRepository(db *mongo.Database) *ReallocationRepository {
	repo := &ReallocationRepository{collection: db.Collection("reallocations")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ReallocationRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "materialId", Value: 1}, {Key: "requestedAt", Value: 1}}},
		{Keys: bson.D{{Key: "from", Value: 1}}},
		{Keys: bson.D{{Key: "to", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	_, _ = r.collection.Indexes().CreateMany(ctx, indexes)
}

// Create inserts a new request
func (r *ReallocationRepository) Create(ctx context.Context, request *domain.ReallocationRequest) (err error) {
	ctx, span := startSpan(ctx, r.collection, "insert")
	defer func() { tracing.EndSpan(span, err) }()

	doc, err := toReallocationDocument(request)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert reallocation request: %w", err)
	}
	return nil
}

// GetByID loads a request, returning nil when it does not exist
func (r *ReallocationRepository) GetByID(ctx context.Context, id string) (*domain.ReallocationRequest, error) {
	var doc reallocationDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reallocation request: %w", err)
	}
	return doc.toDomain()
}

// Update replaces a stored request
func (r *ReallocationRepository) Update(ctx context.Context, request *domain.ReallocationRequest) (err error) {
	ctx, span := startSpan(ctx, r.collection, "replace")
	defer func() { tracing.EndSpan(span, err) }()

	doc, err := toReallocationDocument(request)
	if err != nil {
		return err
	}
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": request.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update reallocation request: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFoundError("reallocation request", request.ID)
	}
	return nil
}

// List returns the requests matching the filter, oldest first
func (r *ReallocationRepository) List(ctx context.Context, filter domain.ReallocationFilter) ([]*domain.ReallocationRequest, error) {
	query := bson.M{}
	if filter.MaterialID != "" {
		query["materialId"] = filter.MaterialID
	}
	if filter.Consumer != nil {
		key := filter.Consumer.Key()
		query["$or"] = bson.A{bson.M{"from": key}, bson.M{"to": key}}
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	opts := options.Find().SetSort(bson.D{{Key: "requestedAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reallocation requests: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reallocationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reallocation requests: %w", err)
	}

	requests := make([]*domain.ReallocationRequest, 0, len(docs))
	for i := range docs {
		request, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}
