package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaterialCatalog checks material ids against the materials collection owned by the catalog service
type MaterialCatalog struct {
	collection *mongo.Collection
}

// NewMaterialCatalog creates a new MaterialCatalog
func NewMaterialCatalog(db *mongo.Database) *MaterialCatalog {
	return &MaterialCatalog{collection: db.Collection("materials")}
}

// Exists reports whether a material document with the id exists
func (c *MaterialCatalog) Exists(ctx context.Context, materialID string) (bool, error) {
	count, err := c.collection.CountDocuments(ctx, bson.M{"_id": materialID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up material: %w", err)
	}
	return count > 0, nil
}
