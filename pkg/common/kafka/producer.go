package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
)

const (
	EventDocumentUploaded      = "document.uploaded"
	EventVitalsRecorded        = "vitals.recorded"
	EventFamilyHistoryRecorded = "family_history.recorded"
	EventImageUploaded         = "image.uploaded"
	EventToothUpdated          = "tooth.updated"
	EventPatientDeleted        = "patient.deleted"
)

// Publisher is what record agents need from the event bus.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

func (p *Producer) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Keyed by source (the patient) so one patient's events stay ordered.
	message := kafka.Message{
		Key:   []byte(source),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "source", Value: []byte(source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("publishing %s: %w", eventType, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
		"topic":      p.writer.Topic,
	}).Debug("Event published")

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Notify publishes on a best-effort basis. The record is already committed
// when this runs, so a bus failure is logged and dropped.
func Notify(ctx context.Context, pub Publisher, eventType string, patientID uint, data map[string]interface{}) {
	if pub == nil {
		return
	}
	source := fmt.Sprintf("patient:%d", patientID)
	if err := pub.PublishEvent(ctx, eventType, source, data); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_type": eventType,
			"patient_id": patientID,
		}).Warn("failed to publish record event")
	}
}
