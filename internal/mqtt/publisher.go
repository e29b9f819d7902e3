package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"herd-backend/internal/models"
)

// Publisher publishes abnormal-behavior alerts for farm staff dashboards
// and automation to pick up.
type Publisher struct {
	client mqtt.Client

	alertTopic string // e.g., "herd/alerts/{subject_id}"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	AlertTopic string // e.g., "herd/alerts/{subject_id}"
}

// NewPublisher creates a new MQTT publisher
func NewPublisher(client mqtt.Client, config PublisherConfig) *Publisher {
	return &Publisher{
		client:     client,
		alertTopic: config.AlertTopic,
	}
}

// PublishAlert publishes a behavior alert for a subject
func (p *Publisher) PublishAlert(alert *models.BehaviorAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal behavior alert: %w", err)
	}

	// Replace {subject_id} placeholder with the actual subject ID
	topic := formatTopic(p.alertTopic, alert.SubjectID)

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish behavior alert: %w", token.Error())
	}

	log.Printf("Published behavior alert for subject %s to topic: %s", alert.SubjectID, topic)
	return nil
}

// formatTopic replaces {subject_id} placeholder with actual subject ID
func formatTopic(topicPattern, subjectID string) string {
	return strings.ReplaceAll(topicPattern, "{subject_id}", subjectID)
}
