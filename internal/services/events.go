package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventDocumentProcessed = "document.processed"
	EventDocumentDeleted   = "document.deleted"
)

type DocumentEvent struct {
	Type           string    `json:"type"`
	DocumentID     string    `json:"documentId,omitempty"`
	FileName       string    `json:"fileName,omitempty"`
	FileType       string    `json:"fileType,omitempty"`
	FileSize       int64     `json:"fileSize,omitempty"`
	ProcessingTime int64     `json:"processingTime,omitempty"`
	Cached         bool      `json:"cached,omitempty"`
	At             time.Time `json:"at"`
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are empty")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is empty")
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event DocumentEvent) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher is nil")
	}

	msg, err := eventMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// eventMessage keys by document id so events for one document stay ordered.
func eventMessage(event DocumentEvent) (kafka.Message, error) {
	if event.Type == "" {
		return kafka.Message{}, errors.New("event type is empty")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.DocumentID),
		Value: value,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, event DocumentEvent) error {
	return nil
}
