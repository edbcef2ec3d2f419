package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Skotchmaster/skincare_shop/services/contact/internal/models"
)

var ErrNotFound = errors.New("enquiry not found")

type MongoRepo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoRepo(ctx context.Context, uri, database, collection string) (*MongoRepo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return &MongoRepo{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (m *MongoRepo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes backs the admin listing (status filter, newest first).
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func (m *MongoRepo) Create(ctx context.Context, e *models.Enquiry) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := m.coll.InsertOne(ctx, e)
	return err
}

func (m *MongoRepo) List(ctx context.Context, status models.Status, offset, limit int) (int64, []models.Enquiry, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := m.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return 0, nil, err
	}
	defer cursor.Close(ctx)

	out := make([]models.Enquiry, 0, limit)
	if err := cursor.All(ctx, &out); err != nil {
		return 0, nil, err
	}
	return total, out, nil
}

// Resolve marks the enquiry resolved. Resolving twice keeps the first resolved_at.
func (m *MongoRepo) Resolve(ctx context.Context, id string, now time.Time) (*models.Enquiry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var out models.Enquiry
	err = m.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": models.StatusNew},
		bson.M{"$set": bson.M{"status": models.StatusResolved, "resolved_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if err := m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}
