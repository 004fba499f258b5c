package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/event-registration/backend/internal/models"
)

// MongoStore handles event and registration documents in MongoDB.
type MongoStore struct {
	events        *mongo.Collection
	registrations *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		events:        db.Collection("events"),
		registrations: db.Collection("registrations"),
	}
}

const (
	userEventIndex       = "user_event"
	userEventUniqueIndex = "user_event_unique"
)

// registrationIndexNames returns the (user_id, event_id) index name for
// the requested mode and the name used by the other mode.
func registrationIndexNames(unique bool) (want, stale string) {
	if unique {
		return userEventUniqueIndex, userEventIndex
	}
	return userEventIndex, userEventUniqueIndex
}

// EnsureIndexes creates the lookup indexes. With unique set, the
// (user_id, event_id) index rejects duplicate registrations. Switching
// modes drops the index left by the other mode first; turning uniqueness
// on fails while duplicate pairs are still stored.
func (s *MongoStore) EnsureIndexes(ctx context.Context, unique bool) error {
	want, stale := registrationIndexNames(unique)
	if _, err := s.registrations.Indexes().DropOne(ctx, stale); err != nil && !isIndexNotFound(err) {
		return fmt.Errorf("drop index %s: %w", stale, err)
	}

	_, err := s.registrations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "event_id", Value: 1}},
			Options: options.Index().SetName(want).SetUnique(unique),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("registration indexes: %w", err)
	}
	if _, err := s.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: 1}},
	}); err != nil {
		return fmt.Errorf("event indexes: %w", err)
	}
	return nil
}

// isIndexNotFound reports a drop of an index (or collection) that does
// not exist yet.
func isIndexNotFound(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 27 || cmdErr.Code == 26 || cmdErr.Name == "IndexNotFound" || cmdErr.Name == "NamespaceNotFound"
	}
	return false
}

// ── events ───────────────────────────────────────────────────

func (s *MongoStore) InsertEvent(ctx context.Context, e *models.Event) (*models.Event, error) {
	out := *e
	out.ID = primitive.NilObjectID
	out.CreatedAt = time.Now().UTC()
	out.UpdatedAt = out.CreatedAt
	res, err := s.events.InsertOne(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("mongo insert event: %w", err)
	}
	out.ID = res.InsertedID.(primitive.ObjectID)
	return &out, nil
}

func (s *MongoStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.findEvents(ctx, bson.M{})
}

func (s *MongoStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	var e models.Event
	if err := s.events.FindOne(ctx, bson.M{"_id": oid}).Decode(&e); err != nil {
		return nil, mapMongoError(err)
	}
	return &e, nil
}

func (s *MongoStore) UpdateEvent(ctx context.Context, e *models.Event) (*models.Event, error) {
	out := *e
	out.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"event_name":       out.Name,
		"location":         out.Location,
		"date":             out.Date,
		"max_participants": out.MaxParticipants,
		"image_key":        out.ImageKey,
		"updated_at":       out.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var saved models.Event
	if err := s.events.FindOneAndUpdate(ctx, bson.M{"_id": out.ID}, update, opts).Decode(&saved); err != nil {
		return nil, mapMongoError(err)
	}
	return &saved, nil
}

func (s *MongoStore) DeleteEvent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}
	res, err := s.events.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// FindEventsByLocation matches the whole location, ignoring case.
func (s *MongoStore) FindEventsByLocation(ctx context.Context, location string) ([]models.Event, error) {
	return s.findEvents(ctx, bson.M{"location": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(location) + "$",
		Options: "i",
	}})
}

// SearchEvents matches query as a substring of the name or location, ignoring case.
func (s *MongoStore) SearchEvents(ctx context.Context, query string) ([]models.Event, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	return s.findEvents(ctx, bson.M{"$or": bson.A{
		bson.M{"event_name": pattern},
		bson.M{"location": pattern},
	}})
}

func (s *MongoStore) findEvents(ctx context.Context, filter bson.M) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find events: %w", err)
	}
	defer cur.Close(ctx)

	events := []models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ── registrations ────────────────────────────────────────────

func (s *MongoStore) InsertRegistration(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	out := *reg
	out.ID = primitive.NilObjectID
	out.Event = nil
	res, err := s.registrations.InsertOne(ctx, &out)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("mongo insert registration: %w", err)
	}
	out.ID = res.InsertedID.(primitive.ObjectID)
	return &out, nil
}

func (s *MongoStore) RegistrationExists(ctx context.Context, userID string, eventID primitive.ObjectID) (bool, error) {
	n, err := s.registrations.CountDocuments(ctx,
		bson.M{"user_id": userID, "event_id": eventID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("mongo count registrations: %w", err)
	}
	return n > 0, nil
}

func (s *MongoStore) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	var reg models.Registration
	if err := s.registrations.FindOne(ctx, bson.M{"_id": oid}).Decode(&reg); err != nil {
		return nil, mapMongoError(err)
	}
	return &reg, nil
}

// SaveRegistration replaces the stored document with reg.
func (s *MongoStore) SaveRegistration(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	out := *reg
	out.Event = nil
	res, err := s.registrations.ReplaceOne(ctx, bson.M{"_id": out.ID}, &out)
	if err != nil {
		return nil, fmt.Errorf("mongo save registration: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, models.ErrNotFound
	}
	return &out, nil
}

func (s *MongoStore) DeleteRegistration(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}
	res, err := s.registrations.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete registration: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListRegistrations(ctx context.Context) ([]models.Registration, error) {
	return s.findRegistrations(ctx, bson.M{})
}

func (s *MongoStore) ListRegistrationsByUser(ctx context.Context, userID string) ([]models.Registration, error) {
	return s.findRegistrations(ctx, bson.M{"user_id": userID})
}

func (s *MongoStore) ListRegistrationsByStatus(ctx context.Context, status models.Status) ([]models.Registration, error) {
	return s.findRegistrations(ctx, bson.M{"status": status})
}

func (s *MongoStore) findRegistrations(ctx context.Context, filter bson.M) ([]models.Registration, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.registrations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find registrations: %w", err)
	}
	defer cur.Close(ctx)

	regs := []models.Registration{}
	if err := cur.All(ctx, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func mapMongoError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNotFound
	}
	return err
}
