package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spendtrack/internal/domain"
)

const (
	dbName             = "spendtrack"
	recordsCollection  = "records"
	sessionsCollection = "sessions"
)

// MongoStore is the cloud backend. Records live in one collection keyed by
// user id; a change stream drives subscription callbacks so mutations from
// any client re-deliver the full sorted set.
type MongoStore struct {
	client  *mongo.Client
	records *mongo.Collection
	log     zerolog.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri string, log zerolog.Logger) (*MongoStore, error) {
	log.Debug().Str("uri", uri).Msg("Connecting to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("NewMongoStore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("NewMongoStore: ping: %w", err)
	}

	log.Info().Msg("Connected to MongoDB")

	return &MongoStore{
		client:  client,
		records: client.Database(dbName).Collection(recordsCollection),
		log:     log,
	}, nil
}

// Subscribe delivers the current sorted set, then opens a change stream on
// the records collection. Every observed event refreshes this user's view.
// A failed stream open is logged and the caller simply never receives
// updates; there are no retries.
func (s *MongoStore) Subscribe(ctx context.Context, userID string, fn func([]domain.Record)) (func(), error) {
	records, err := s.querySorted(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Initial record query failed")
		return func() {}, nil
	}
	fn(records)

	// The stream outlives the caller's request context.
	streamCtx, cancel := context.WithCancel(context.Background())

	stream, err := s.records.Watch(streamCtx, mongo.Pipeline{})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to open change stream")
		cancel()
		return func() {}, nil
	}

	go func() {
		defer stream.Close(context.Background())

		// Delete events carry no full document, so rather than filtering the
		// stream by user we refresh this user's view on every event.
		for stream.Next(streamCtx) {
			refreshed, err := s.querySorted(streamCtx, userID)
			if err != nil {
				s.log.Warn().Err(err).Str("user_id", userID).Msg("Record refresh failed after change event")
				continue
			}
			fn(refreshed)
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("Change stream ended with error")
		}
	}()

	return cancel, nil
}

// List returns the user's current sorted records. A query failure is
// returned, not degraded.
func (s *MongoStore) List(ctx context.Context, userID string) ([]domain.Record, error) {
	records, err := s.querySorted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("MongoStore.List: %w", err)
	}
	return records, nil
}

// Create inserts the candidate with a server-assigned timestamp so ordering
// stays consistent across clients regardless of their clocks.
func (s *MongoStore) Create(ctx context.Context, userID string, c domain.Candidate, sourceText string) error {
	doc := bson.M{
		"user_id":  userID,
		"item":     c.Item,
		"amount":   c.Amount,
		"category": c.Category,
	}
	if sourceText != "" {
		doc["original_text"] = sourceText
	}

	_, err := s.records.UpdateOne(ctx,
		bson.M{"_id": uuid.NewString()},
		bson.M{
			"$set":         doc,
			"$currentDate": bson.M{"created_at": true},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("MongoStore.Create: %w", err)
	}
	return nil
}

// Delete removes the record by id. Zero matches is a no-op.
func (s *MongoStore) Delete(ctx context.Context, userID, recordID string) error {
	_, err := s.records.DeleteOne(ctx, bson.M{"_id": recordID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("MongoStore.Delete: %w", err)
	}
	return nil
}

// RegisterSession upserts an anonymous session document for the identity
// provider. The session id doubles as the user id.
func (s *MongoStore) RegisterSession(ctx context.Context, sessionID string) error {
	sessions := s.client.Database(dbName).Collection(sessionsCollection)
	_, err := sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$currentDate": bson.M{"last_seen": true}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("MongoStore.RegisterSession: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("MongoStore.Close: %w", err)
	}
	return nil
}

// querySorted returns the user's records newest first. A missing created_at
// sorts last under descending order, which Mongo treats as the lowest value.
func (s *MongoStore) querySorted(ctx context.Context, userID string) ([]domain.Record, error) {
	cursor, err := s.records.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("querySorted: find: %w", err)
	}
	defer cursor.Close(ctx)

	var records []domain.Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("querySorted: decode: %w", err)
	}
	return records, nil
}

// Ensure MongoStore implements the Store interface.
var _ Store = (*MongoStore)(nil)
