package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
)

const (
	TypeExerciseLogged   = "exercise_log.recorded"
	TypeBodyweightLogged = "bodyweight_log.recorded"
)

// Envelope is the JSON body of every published message.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	AccountID  string          `json:"account_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type Topics struct {
	ExerciseLogs   string
	BodyweightLogs string
}

// Publisher encodes training events and hands them to a MessageWriter. Messages
// are keyed by account id so one account's events stay ordered.
type Publisher struct {
	writer  MessageWriter
	topics  Topics
	timeout time.Duration
	now     func() time.Time
}

func NewPublisher(writer MessageWriter, topics Topics, timeout time.Duration) *Publisher {
	if topics.ExerciseLogs == "" {
		topics.ExerciseLogs = "fittrack.exercise-logs"
	}
	if topics.BodyweightLogs == "" {
		topics.BodyweightLogs = "fittrack.bodyweight-logs"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{writer: writer, topics: topics, timeout: timeout, now: time.Now}
}

func (p *Publisher) ExerciseLogged(ctx context.Context, entry *domain.ExerciseLogEntry) error {
	return p.publish(ctx, p.topics.ExerciseLogs, TypeExerciseLogged, entry.AccountID, entry)
}

func (p *Publisher) BodyweightLogged(ctx context.Context, entry *domain.BodyweightLog) error {
	return p.publish(ctx, p.topics.BodyweightLogs, TypeBodyweightLogged, entry.AccountID, entry)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType string, accountID uuid.UUID, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		observability.RecordEventPublish(ctx, topic, "encode_error")
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		AccountID:  accountID.String(),
		OccurredAt: p.now().UTC(),
		Payload:    body,
	})
	if err != nil {
		observability.RecordEventPublish(ctx, topic, "encode_error")
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = p.writer.WriteMessages(ctx, topic, kafka.Message{
		Key:     []byte(accountID.String()),
		Value:   env,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(eventType)}},
	})
	if err != nil {
		observability.RecordEventPublish(ctx, topic, "error")
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	observability.RecordEventPublish(ctx, topic, "success")
	return nil
}

// Noop drops every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) ExerciseLogged(context.Context, *domain.ExerciseLogEntry) error { return nil }
func (Noop) BodyweightLogged(context.Context, *domain.BodyweightLog) error  { return nil }
