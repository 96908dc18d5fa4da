package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Madhuiit/dcl/internal/model"
)

// MongoStore keeps the ledger as one document ({_id: "state"}) in a MongoDB
// collection, the networked document-store backend.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// mongoEnvelope is the stored document: the ledger plus bookkeeping fields.
type mongoEnvelope struct {
	ID        string    `bson:"_id"`
	Ledger    bson.Raw  `bson:"ledger"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// ConnectMongo dials uri and returns a store bound to database/collection.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("store: mongo uri is required")
	}
	if database == "" || collection == "" {
		return nil, errors.New("store: mongo database and collection are required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) Load(ctx context.Context) (*model.Ledger, error) {
	var env mongoEnvelope
	err := s.collection.FindOne(ctx, bson.M{"_id": stateID}).Decode(&env)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if len(env.Ledger) == 0 {
		return nil, fmt.Errorf("%w: document has no ledger field", ErrCorrupt)
	}

	data, err := bson.MarshalExtJSON(env.Ledger, false, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return decode(data)
}

func (s *MongoStore) Save(ctx context.Context, l *model.Ledger) error {
	data, err := encode(l)
	if err != nil {
		return err
	}
	// Relaxed extended JSON is a superset of plain JSON, so the ledger's
	// own encoding converts straight into a BSON document.
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return fmt.Errorf("convert snapshot: %w", err)
	}

	replacement := bson.D{
		{Key: "_id", Value: stateID},
		{Key: "ledger", Value: doc},
		{Key: "updated_at", Value: time.Now().UTC()},
	}
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": stateID}, replacement,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
