package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLog stores one Mongo document per content version. The collection is
// expected to come from a client connected with DefaultDocumentM so nested
// content decodes as plain maps.
type MongoLog struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoLog(ctx context.Context, col *mongo.Collection) (*MongoLog, error) {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "version", Value: -1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "version", Value: -1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
		return nil, fmt.Errorf("create content indexes: %w", err)
	}
	return &MongoLog{col: col, now: time.Now}, nil
}

var newestFirst = options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})

func (m *MongoLog) ReadActive(ctx context.Context) (*content.Document, error) {
	var d content.Document
	err := m.col.FindOne(ctx, bson.M{"active": true}, newestFirst).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoLog) maxVersion(ctx context.Context) (int, error) {
	var latest struct {
		Version int `bson:"version"`
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}}).SetProjection(bson.M{"version": 1})
	err := m.col.FindOne(ctx, bson.M{}, opts).Decode(&latest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return latest.Version, nil
}

// CreateVersion is not atomic against concurrent writers; a racing insert of
// the same version fails on the unique index.
func (m *MongoLog) CreateVersion(ctx context.Context, global content.Global, pages []content.Page) (*content.Document, error) {
	latest, err := m.maxVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("find latest version: %w", err)
	}
	if _, err := m.col.UpdateMany(ctx, bson.M{"active": true}, bson.M{"$set": bson.M{"active": false}}); err != nil {
		return nil, fmt.Errorf("deactivate versions: %w", err)
	}
	if pages == nil {
		pages = []content.Page{}
	}
	doc := &content.Document{
		ID:        uuid.NewString(),
		Version:   latest + 1,
		Active:    true,
		Timestamp: m.now().UTC(),
		Global:    global,
		Pages:     pages,
	}
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert version %d: %w", doc.Version, err)
	}
	return doc, nil
}

func (m *MongoLog) CountVersions(ctx context.Context) (int64, error) {
	return m.col.CountDocuments(ctx, bson.M{})
}

func (m *MongoLog) ListVersions(ctx context.Context) ([]content.VersionInfo, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "version", Value: -1}}).
		SetProjection(bson.M{"version": 1, "active": 1, "timestamp": 1, "pages.slug": 1})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []content.VersionInfo{}
	for cur.Next(ctx) {
		var d content.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.Info())
	}
	return out, cur.Err()
}

func (m *MongoLog) GetVersion(ctx context.Context, version int) (*content.Document, error) {
	var d content.Document
	if err := m.col.FindOne(ctx, bson.M{"version": version}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoLog) Activate(ctx context.Context, version int) error {
	n, err := m.col.CountDocuments(ctx, bson.M{"version": version})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := m.col.UpdateMany(ctx, bson.M{"version": bson.M{"$ne": version}}, bson.M{"$set": bson.M{"active": false}}); err != nil {
		return err
	}
	_, err = m.col.UpdateOne(ctx, bson.M{"version": version}, bson.M{"$set": bson.M{"active": true}})
	return err
}

func (m *MongoLog) ReplaceContent(ctx context.Context, version int, global content.Global, pages []content.Page) error {
	if pages == nil {
		pages = []content.Page{}
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"version": version}, bson.M{"$set": bson.M{"global": global, "pages": pages}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
