package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mixbah/pdfi/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const logsCollectionName = "activity_logs"

type MongoStore struct {
	client    *mongo.Client
	documents *mongo.Collection
	logs      *mongo.Collection
}

// mongoDocument is the write shape of a processed document.
type mongoDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	FileName       string             `bson:"fileName"`
	FileType       string             `bson:"fileType"`
	FileSize       int64              `bson:"fileSize"`
	Summary        string             `bson:"summary"`
	ProcessedAt    time.Time          `bson:"processedAt"`
	ProcessingTime int64              `bson:"processingTime"`
	UserID         *string            `bson:"userId,omitempty"`
}

// rawDocument is the read shape. Records written by other clients may carry a
// string _id, a string processedAt or a non-int64 size, so those fields are
// decoded raw and normalized.
type rawDocument struct {
	ID             bson.RawValue `bson:"_id"`
	FileName       string        `bson:"fileName"`
	FileType       string        `bson:"fileType"`
	FileSize       bson.RawValue `bson:"fileSize"`
	Summary        string        `bson:"summary"`
	ProcessedAt    bson.RawValue `bson:"processedAt"`
	ProcessingTime bson.RawValue `bson:"processingTime"`
}

type mongoLog struct {
	ID       string    `bson:"_id"`
	Datetime time.Time `bson:"datetime"`
	Action   string    `bson:"action"`
	Outcome  string    `bson:"outcome"`
	Message  *string   `bson:"message,omitempty"`
}

func OpenMongo(ctx context.Context, uri string, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongodb uri is empty")
	}
	if database == "" {
		return nil, errors.New("mongodb database is empty")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	db := client.Database(database)
	return &MongoStore{
		client:    client,
		documents: db.Collection(models.CollectionName),
		logs:      db.Collection(logsCollectionName),
	}, nil
}

func (s *MongoStore) InsertDocument(ctx context.Context, doc models.ProcessedDocument) (string, error) {
	if s == nil || s.documents == nil {
		return "", errors.New("mongo store is nil")
	}

	entry := mongoDocument{
		FileName:       doc.FileName,
		FileType:       doc.FileType,
		FileSize:       doc.FileSize,
		Summary:        doc.Summary,
		ProcessedAt:    doc.ProcessedAt,
		ProcessingTime: doc.ProcessingTime,
		UserID:         doc.UserID,
	}

	result, err := s.documents.InsertOne(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(result.InsertedID), nil
}

func (s *MongoStore) ListDocuments(ctx context.Context, skip int, limit int) ([]models.DocumentRecord, error) {
	if s == nil || s.documents == nil {
		return nil, errors.New("mongo store is nil")
	}

	opts := options.Find().SetSort(bson.D{{Key: "processedAt", Value: -1}})
	if skip > 0 {
		opts.SetSkip(int64(skip))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.documents.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var raws []rawDocument
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}

	records := make([]models.DocumentRecord, 0, len(raws))
	for _, raw := range raws {
		records = append(records, raw.record())
	}

	return records, nil
}

func (s *MongoStore) CountDocuments(ctx context.Context) (int64, error) {
	if s == nil || s.documents == nil {
		return 0, errors.New("mongo store is nil")
	}

	count, err := s.documents.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}

	return count, nil
}

func (s *MongoStore) GetDocument(ctx context.Context, id string) (models.DocumentRecord, error) {
	if s == nil || s.documents == nil {
		return models.DocumentRecord{}, errors.New("mongo store is nil")
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.DocumentRecord{}, ErrInvalidID
	}

	var raw rawDocument
	if err := s.documents.FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.DocumentRecord{}, ErrNotFound
		}
		return models.DocumentRecord{}, fmt.Errorf("get document: %w", err)
	}

	return raw.record(), nil
}

func (s *MongoStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	if s == nil || s.documents == nil {
		return false, errors.New("mongo store is nil")
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrInvalidID
	}

	result, err := s.documents.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}

	return result.DeletedCount > 0, nil
}

func (s *MongoStore) InsertLog(ctx context.Context, entry models.ActivityLog) error {
	if s == nil || s.logs == nil {
		return errors.New("mongo store is nil")
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	doc := mongoLog{
		ID:       entry.ID,
		Datetime: entry.Datetime,
		Action:   entry.Action,
		Outcome:  entry.Outcome,
		Message:  entry.Message,
	}
	if _, err := s.logs.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create log: %w", err)
	}

	return nil
}

func (s *MongoStore) ListLogs(ctx context.Context, limit int, action string) ([]models.ActivityLog, error) {
	if s == nil || s.logs == nil {
		return nil, errors.New("mongo store is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	filter := bson.M{}
	if action != "" {
		filter["action"] = action
	}
	opts := options.Find().SetSort(bson.D{{Key: "datetime", Value: -1}}).SetLimit(int64(limit))

	cursor, err := s.logs.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("get logs: %w", err)
	}

	var docs []mongoLog
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}

	logs := make([]models.ActivityLog, 0, len(docs))
	for _, doc := range docs {
		logs = append(logs, models.ActivityLog{
			ID:       doc.ID,
			Datetime: doc.Datetime.UTC(),
			Action:   doc.Action,
			Outcome:  doc.Outcome,
			Message:  doc.Message,
		})
	}

	return logs, nil
}

func (s *MongoStore) DeleteLogs(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.logs == nil {
		return 0, errors.New("mongo store is nil")
	}

	filter := bson.M{}
	if !before.IsZero() {
		filter["datetime"] = bson.M{"$lt": before}
	}

	result, err := s.logs.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete logs: %w", err)
	}

	return result.DeletedCount, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("mongo store is nil")
	}

	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}

	return s.client.Disconnect(ctx)
}

func (r rawDocument) record() models.DocumentRecord {
	return models.DocumentRecord{
		ID:             normalizeID(r.ID),
		FileName:       r.FileName,
		FileType:       r.FileType,
		FileSize:       normalizeInt(r.FileSize),
		Summary:        r.Summary,
		ProcessedAt:    normalizeTime(r.ProcessedAt),
		ProcessingTime: normalizeInt(r.ProcessingTime),
	}
}

func normalizeID(value bson.RawValue) string {
	switch value.Type {
	case bsontype.ObjectID:
		if oid, ok := value.ObjectIDOK(); ok {
			return oid.Hex()
		}
	case bsontype.String:
		if s, ok := value.StringValueOK(); ok {
			return s
		}
	}
	if value.Value == nil {
		return ""
	}
	return value.String()
}

func normalizeTime(value bson.RawValue) time.Time {
	switch value.Type {
	case bsontype.DateTime:
		if t, ok := value.TimeOK(); ok {
			return t.UTC()
		}
	case bsontype.String:
		if s, ok := value.StringValueOK(); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t.UTC()
			}
		}
	case bsontype.Timestamp:
		if sec, _, ok := value.TimestampOK(); ok {
			return time.Unix(int64(sec), 0).UTC()
		}
	}
	return time.Time{}
}

func normalizeInt(value bson.RawValue) int64 {
	switch value.Type {
	case bsontype.Int64:
		if v, ok := value.Int64OK(); ok {
			return v
		}
	case bsontype.Int32:
		if v, ok := value.Int32OK(); ok {
			return int64(v)
		}
	case bsontype.Double:
		if v, ok := value.DoubleOK(); ok && v > 0 {
			return int64(v)
		}
	}
	return 0
}
