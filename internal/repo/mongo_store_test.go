package repo

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func decodeRaw(t *testing.T, doc bson.M) rawDocument {
	t.Helper()

	data, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw rawDocument
	if err := bson.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	return raw
}

func TestRawDocumentNativeTypes(t *testing.T) {
	oid := primitive.NewObjectID()
	processedAt := time.Date(2024, time.May, 6, 7, 8, 9, 0, time.UTC)

	record := decodeRaw(t, bson.M{
		"_id":            oid,
		"fileName":       "report.pdf",
		"fileType":       "application/pdf",
		"fileSize":       int64(2048),
		"summary":        "text",
		"processedAt":    processedAt,
		"processingTime": int32(1500),
	}).record()

	if record.ID != oid.Hex() {
		t.Fatalf("ID = %q, want %q", record.ID, oid.Hex())
	}
	if !record.ProcessedAt.Equal(processedAt) {
		t.Fatalf("ProcessedAt = %v, want %v", record.ProcessedAt, processedAt)
	}
	if record.FileSize != 2048 {
		t.Fatalf("FileSize = %d, want 2048", record.FileSize)
	}
	if record.ProcessingTime != 1500 {
		t.Fatalf("ProcessingTime = %d, want 1500", record.ProcessingTime)
	}
}

func TestRawDocumentLooseTypes(t *testing.T) {
	record := decodeRaw(t, bson.M{
		"_id":         "legacy-id",
		"fileName":    "photo.png",
		"fileType":    "image/png",
		"fileSize":    float64(512),
		"summary":     "a cat",
		"processedAt": "2024-05-06T07:08:09.5Z",
	}).record()

	if record.ID != "legacy-id" {
		t.Fatalf("ID = %q, want %q", record.ID, "legacy-id")
	}
	want := time.Date(2024, time.May, 6, 7, 8, 9, 500000000, time.UTC)
	if !record.ProcessedAt.Equal(want) {
		t.Fatalf("ProcessedAt = %v, want %v", record.ProcessedAt, want)
	}
	if record.FileSize != 512 {
		t.Fatalf("FileSize = %d, want 512", record.FileSize)
	}
	if record.ProcessingTime != 0 {
		t.Fatalf("ProcessingTime = %d, want 0", record.ProcessingTime)
	}
}

func TestRawDocumentUnparseableTime(t *testing.T) {
	record := decodeRaw(t, bson.M{"_id": primitive.NewObjectID(), "processedAt": "yesterday"}).record()
	if !record.ProcessedAt.IsZero() {
		t.Fatalf("ProcessedAt = %v, want zero", record.ProcessedAt)
	}
}

func TestMongoStoreInvalidID(t *testing.T) {
	store := &MongoStore{}
	if _, err := store.DeleteDocument(context.Background(), "zzz"); err == nil {
		t.Fatalf("DeleteDocument on empty store: expected error")
	}
}

func TestOpenMongoValidation(t *testing.T) {
	if _, err := OpenMongo(context.Background(), "", "pdfi"); err == nil {
		t.Fatalf("OpenMongo empty uri: expected error")
	}
	if _, err := OpenMongo(context.Background(), "mongodb://localhost:27017", ""); err == nil {
		t.Fatalf("OpenMongo empty database: expected error")
	}
}
