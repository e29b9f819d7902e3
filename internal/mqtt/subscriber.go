package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"herd-backend/internal/models"
)

// Subscriber handles MQTT subscriptions and writes messages to channels.
// Collar gateways publish behavior snapshots to herd/{subject_id}/behavior
// every collection interval.
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the ingest service)
	SnapshotChan chan *models.SnapshotPayload

	behaviorTopic string
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	BehaviorTopic string // e.g., "herd/+/behavior"
}

// NewSubscriber creates a new MQTT subscriber with channels
func NewSubscriber(client mqtt.Client, config SubscriberConfig, snapshotChan chan *models.SnapshotPayload) *Subscriber {
	return &Subscriber{
		client:        client,
		SnapshotChan:  snapshotChan,
		behaviorTopic: config.BehaviorTopic,
	}
}

// SubscribeAll subscribes to all configured topics
func (s *Subscriber) SubscribeAll() error {
	if s.behaviorTopic != "" {
		if err := s.subscribeToTopic(s.behaviorTopic, s.handleBehavior); err != nil {
			return fmt.Errorf("failed to subscribe to behavior topic: %w", err)
		}
		log.Printf("Subscribed to behavior topic: %s", s.behaviorTopic)
	}

	return nil
}

// subscribeToTopic is a helper function to subscribe to a topic with a handler
func (s *Subscriber) subscribeToTopic(topic string, handler mqtt.MessageHandler) error {
	token := s.client.Subscribe(topic, 1, handler)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// handleBehavior parses behavior snapshot messages and writes them to the
// channel. Validation happens downstream in the collector so malformed
// payloads get the same rejection as HTTP ingestion.
func (s *Subscriber) handleBehavior(client mqtt.Client, msg mqtt.Message) {
	var payload models.SnapshotPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		log.Printf("Error parsing behavior snapshot payload: %v", err)
		return
	}

	// Subject ID comes from the topic (herd/{subject_id}/behavior)
	subjectID := extractSubjectID(msg.Topic())
	if subjectID == "" {
		log.Printf("Could not extract subject ID from topic: %s", msg.Topic())
		return
	}
	payload.SubjectID = subjectID

	log.Printf("Received behavior snapshot from %s", subjectID)

	// Write to channel (non-blocking with timeout)
	select {
	case s.SnapshotChan <- &payload:
		// Successfully sent
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Snapshot channel full, dropping message from %s", subjectID)
	}
}

// extractSubjectID extracts the subject ID from a topic like
// herd/{subject_id}/behavior
func extractSubjectID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}
