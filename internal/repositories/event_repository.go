package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/gatherly/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventRepository defines the interface for event data operations
type EventRepository interface {
	InsertEvent(ctx context.Context, event *models.Event) error
	AddMember(ctx context.Context, eventID string, userID uint) error
	RemoveMember(ctx context.Context, eventID string, userID uint) error
	DeleteEvent(ctx context.Context, eventID string) error
	ListEvents(ctx context.Context) ([]models.Event, error)
}

// ErrEventDiverged is returned when a conditional membership update matches
// no document, meaning the stored event disagrees with the caller's view.
var ErrEventDiverged = errors.New("stored event diverged from registry")

// MongoEventRepository implements EventRepository for MongoDB
type MongoEventRepository struct {
	collection *mongo.Collection
}

// NewMongoEventRepository creates a new MongoEventRepository
func NewMongoEventRepository(db *mongo.Database) *MongoEventRepository {
	return &MongoEventRepository{collection: db.Collection("events")}
}

// EnsureIndexes creates the indexes the listing filters rely on.
func (r *MongoEventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "members", Value: 1}}},
		{Keys: bson.D{{Key: "start_time", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}
	return nil
}

// InsertEvent stores a new event document
func (r *MongoEventRepository) InsertEvent(ctx context.Context, event *models.Event) error {
	doc := *event
	if doc.Members == nil {
		doc.Members = []uint{}
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert event %s: %w", event.ID, err)
	}
	return nil
}

// AddMember appends userID only while the stored document still has room
// and does not already list it.
func (r *MongoEventRepository) AddMember(ctx context.Context, eventID string, userID uint) error {
	filter := bson.M{
		"_id":     eventID,
		"members": bson.M{"$ne": userID},
		"$expr":   bson.M{"$lt": bson.A{"$current_count", "$max_people"}},
	}
	update := bson.M{
		"$addToSet": bson.M{"members": userID},
		"$inc":      bson.M{"current_count": 1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("add member to event %s: %w", eventID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("add member to event %s: %w", eventID, ErrEventDiverged)
	}
	return nil
}

// RemoveMember pulls userID when the stored document lists it.
func (r *MongoEventRepository) RemoveMember(ctx context.Context, eventID string, userID uint) error {
	filter := bson.M{"_id": eventID, "members": userID}
	update := bson.M{
		"$pull": bson.M{"members": userID},
		"$inc":  bson.M{"current_count": -1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("remove member from event %s: %w", eventID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("remove member from event %s: %w", eventID, ErrEventDiverged)
	}
	return nil
}

// DeleteEvent removes an event document
func (r *MongoEventRepository) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": eventID})
	if err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete event %s: %w", eventID, ErrEventDiverged)
	}
	return nil
}

// ListEvents returns every stored event ordered by start time
func (r *MongoEventRepository) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	findOptions := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}
