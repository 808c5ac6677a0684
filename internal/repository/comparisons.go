package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/codeclash/similitude/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const comparisonsCollection = "comparisons"

// ComparisonsRepository archives produced reports. The engine itself stays
// stateless; only this service layer persists anything.
type ComparisonsRepository struct {
	mongoRepo *MongoRepository
}

func NewComparisonsRepository(mongoRepo *MongoRepository) *ComparisonsRepository {
	return &ComparisonsRepository{mongoRepo: mongoRepo}
}

func (r *ComparisonsRepository) InsertComparison(ctx context.Context, record *models.ComparisonRecord) error {
	record.CreatedAt = time.Now()
	if err := r.mongoRepo.InsertOne(ctx, comparisonsCollection, record); err != nil {
		return fmt.Errorf("failed to insert comparison: %w", err)
	}
	return nil
}

// GetComparisonByID returns the archived record, or nil when none exists.
func (r *ComparisonsRepository) GetComparisonByID(ctx context.Context, comparisonID string) (*models.ComparisonRecord, error) {
	filter := bson.M{"comparisonId": comparisonID}

	var record models.ComparisonRecord
	err := r.mongoRepo.FindOne(ctx, comparisonsCollection, filter).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comparison: %w", err)
	}
	return &record, nil
}

// ListRecentComparisons returns the newest records first.
func (r *ComparisonsRepository) ListRecentComparisons(ctx context.Context, limit int64) ([]*models.ComparisonRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.mongoRepo.FindMany(ctx, comparisonsCollection, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list comparisons: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.ComparisonRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode comparisons: %w", err)
	}
	return records, nil
}
