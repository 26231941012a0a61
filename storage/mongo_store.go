package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"property-scraper/models"
	"property-scraper/utils"
)

const (
	listingsCollection = "listings"
	historyCollection  = "price_history"
)

// MongoStore persists listings as documents in MongoDB.
type MongoStore struct {
	client   *mongo.Client
	listings *mongo.Collection
	history  *mongo.Collection
}

// NewMongoStore connects to MongoDB, waits for the primary to answer and
// ensures the natural-key and sweep indexes exist.
func NewMongoStore(ctx context.Context, uri, dbName string, retry *utils.RetryConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	err = retry.Do(ctx, "mongo-ping", func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: %w", err)
	}

	db := client.Database(dbName)
	ms := &MongoStore{
		client:   client,
		listings: db.Collection(listingsCollection),
		history:  db.Collection(historyCollection),
	}
	if err := ms.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: indexes: %w", err)
	}
	return ms, nil
}

func (ms *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := ms.listings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "externalId", Value: 1}, {Key: "source", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("natural_key"),
		},
		{
			Keys:    bson.D{{Key: "active", Value: 1}, {Key: "lastSeenAt", Value: 1}},
			Options: options.Index().SetName("active_last_seen"),
		},
		{
			Keys: bson.D{{Key: "region", Value: 1}},
		},
	})
	if err != nil {
		return err
	}
	_, err = ms.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "listingId", Value: 1}, {Key: "changedAt", Value: -1}},
	})
	return err
}

func keyFilter(key models.ListingKey) bson.M {
	return bson.M{"externalId": key.ExternalID, "source": key.Source}
}

func (ms *MongoStore) FindByKey(ctx context.Context, key models.ListingKey) (*models.ListingRecord, error) {
	var rec models.ListingRecord
	err := ms.listings.FindOne(ctx, keyFilter(key)).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find %s: %w", key, err)
	}
	rec.Photos = photosOrEmpty(rec.Photos)
	return &rec, nil
}

func (ms *MongoStore) Insert(ctx context.Context, rec *models.ListingRecord) error {
	doc := *rec
	doc.Photos = photosOrEmpty(rec.Photos)
	if _, err := ms.listings.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("mongo: insert %s: %w", rec.Key(), err)
	}
	return nil
}

func (ms *MongoStore) UpdatePartial(ctx context.Context, key models.ListingKey, upd models.ListingUpdate) error {
	res, err := ms.listings.UpdateOne(ctx, keyFilter(key), bson.M{
		"$set": bson.M{
			"price":      upd.Price,
			"currency":   upd.Currency,
			"photos":     photosOrEmpty(upd.Photos),
			"lastSeenAt": upd.LastSeenAt,
			"active":     upd.Active,
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: update %s: %w", key, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (ms *MongoStore) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := ms.listings.UpdateMany(ctx,
		bson.M{"active": true, "lastSeenAt": bson.M{"$lt": cutoff}},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return 0, fmt.Errorf("mongo: deactivate stale: %w", err)
	}
	return res.ModifiedCount, nil
}

func (ms *MongoStore) AppendPriceChange(ctx context.Context, ch models.PriceChange) error {
	if _, err := ms.history.InsertOne(ctx, ch); err != nil {
		return fmt.Errorf("mongo: price history %s:%s: %w", ch.Source, ch.ExternalID, err)
	}
	return nil
}

func (ms *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return ms.client.Disconnect(ctx)
}
