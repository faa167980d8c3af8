package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/pkg/tracing"
)

// ConsumerRepository stores consumer records, one document per consumer keyed by its canonical key
type ConsumerRepository struct {
	collection *mongo.Collection
}

// NewConsumerRepository creates a new ConsumerRepository
func NewConsumerRepository(db *mongo.Database) *ConsumerRepository {
	repo := &ConsumerRepository{collection: db.Collection("consumers")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ConsumerRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "allocations.materialId", Value: 1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}}},
	}
	_, _ = r.collection.Indexes().CreateMany(ctx, indexes)
}

// GetByID loads a consumer record
func (r *ConsumerRepository) GetByID(ctx context.Context, consumer domain.ConsumerRef) (record *domain.ConsumerRecord, err error) {
	ctx, span := startSpan(ctx, r.collection, "findOne")
	defer func() { tracing.EndSpan(span, err) }()

	var doc consumerDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": consumer.Key()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NewNotFoundError("consumer", consumer.Key())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find consumer: %w", err)
	}
	return doc.toDomain()
}

// Update replaces the allocations of a consumer if the stored version still matches
func (r *ConsumerRepository) Update(ctx context.Context, record *domain.ConsumerRecord) (updated *domain.ConsumerRecord, err error) {
	ctx, span := startSpan(ctx, r.collection, "update")
	defer func() { tracing.EndSpan(span, err) }()

	allocations, err := toAllocationDocuments(record.Allocations)
	if err != nil {
		return nil, err
	}

	key := record.Consumer.Key()
	now := time.Now().UTC()
	filter := bson.M{"_id": key, "version": record.Version}
	update := bson.M{
		"$set": bson.M{"allocations": allocations, "updatedAt": now},
		"$inc": bson.M{"version": 1},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update consumer: %w", err)
	}
	if res.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": key}, options.Count().SetLimit(1))
		if err != nil {
			return nil, fmt.Errorf("failed to check consumer: %w", err)
		}
		if count == 0 {
			return nil, domain.NewNotFoundError("consumer", key)
		}
		return nil, domain.ErrConcurrentModification
	}

	updated = record.Clone()
	updated.Version = record.Version + 1
	updated.UpdatedAt = now
	return updated, nil
}

// FindByMaterial returns every consumer tracking the material
func (r *ConsumerRepository) FindByMaterial(ctx context.Context, materialID string) ([]*domain.ConsumerRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"allocations.materialId": materialID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find consumers: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []consumerDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode consumers: %w", err)
	}

	records := make([]*domain.ConsumerRecord, 0, len(docs))
	for i := range docs {
		record, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Upsert writes a record unconditionally, bumping its version. Used for seeding and imports.
func (r *ConsumerRepository) Upsert(ctx context.Context, record *domain.ConsumerRecord) error {
	allocations, err := toAllocationDocuments(record.Allocations)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"kind":        string(record.Consumer.Kind),
			"consumerId":  record.Consumer.ID,
			"allocations": allocations,
			"updatedAt":   time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": record.Consumer.Key()}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert consumer: %w", err)
	}
	return nil
}

// Delete removes a consumer record
func (r *ConsumerRepository) Delete(ctx context.Context, consumer domain.ConsumerRef) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": consumer.Key()})
	return err
}
