package store

import (
	"context"
	"errors"
	"time"

	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoDbStore struct {
	mongoDb    *mongo.Client
	collection *mongo.Collection
	log        log.Logger
}

type mongoEntry struct {
	Key       string     `bson:"key"`
	Payload   []byte     `bson:"payload"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

func newMongoDb(ctx context.Context, conf *config.MongoDbConfig, log log.Logger) (External, error) {
	opts := options.Client().ApplyURI(conf.Url)
	client, err := mongo.Connect(opts)
	if err != nil {
		log.Errorf("couldn't connect to MongoDB: %s", err)
		return nil, err
	}
	collection := client.Database(conf.Database).Collection(conf.Collection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{keyName: 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Errorf("couldn't create the 'key' index in the '%s' MongoDB collection: %s", conf.Collection, err)
		return nil, err
	}
	// expired documents are removed by the server, entries without the
	// expiry field are kept forever
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{expiryName: 1},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		log.Errorf("couldn't create the TTL index in the '%s' MongoDB collection: %s", conf.Collection, err)
		return nil, err
	}
	log.Reportf("using MongoDB for storage")
	return &mongoDbStore{
		mongoDb:    client,
		collection: collection,
		log:        log,
	}, nil
}

func (m *mongoDbStore) Get(ctx context.Context, key string) ([]byte, error) {
	var result mongoEntry
	err := m.collection.FindOne(ctx, bson.M{keyName: key}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound{Key: key}
	}
	if err != nil {
		return nil, err
	}
	if result.ExpiresAt != nil && time.Now().After(*result.ExpiresAt) {
		return nil, ErrNotFound{Key: key}
	}
	return result.Payload, nil
}

func (m *mongoDbStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := mongoEntry{Key: key, Payload: value}
	if ttl > 0 {
		expiresAt := time.Now().Add(ttl)
		entry.ExpiresAt = &expiresAt
	}
	_, err := m.collection.ReplaceOne(ctx, bson.M{keyName: key}, entry, options.Replace().SetUpsert(true))
	return err
}

func (m *mongoDbStore) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.mongoDb.Disconnect(ctx)
	if err != nil {
		m.log.Errorf("shutdown error: %s", err)
	}
	m.log.Reportf("shutdown complete")
}
