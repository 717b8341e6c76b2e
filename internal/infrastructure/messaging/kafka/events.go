package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/pkg/errors"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventAnalysisRequested     = "compound.analysis.requested"
	EventVisualizationReady    = "compound.analysis.visualization_ready"
	DefaultEventSource         = "compound-analysis"
	DefaultEventSchemaVersion  = "v1"
	headerEventType            = "event_type"
	headerSourceService        = "source_service"
	headerSchemaVersion        = "schema_version"
	DefaultSubmissionThreshold = 80.0
)

// EventEnvelope wraps every published payload.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope marshals payload into a fresh envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	if source == "" {
		source = DefaultEventSource
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: DefaultEventSchemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "event payload is empty").
			WithDetail("event_id=" + e.EventID)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "malformed event payload").
			WithDetail("event_id=" + e.EventID)
	}
	return nil
}

// ToMessage encodes the envelope for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic string, key string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
		Headers: map[string]string{
			headerEventType:     e.EventType,
			headerSourceService: e.Source,
			headerSchemaVersion: e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeEvent decodes msg into target. Enveloped records are unwrapped;
// records without an envelope are decoded as the bare payload.
func DecodeEvent(msg *Message, target interface{}) error {
	if msg == nil || len(msg.Value) == 0 {
		return errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "malformed message")
	}
	if env.EventType != "" && len(env.Payload) > 0 {
		return env.DecodePayload(target)
	}
	if err := json.Unmarshal(msg.Value, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "malformed message")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Payloads
// ─────────────────────────────────────────────────────────────────────────────

var validate = validator.New()

// SubmissionMessage asks the worker to analyse a compound. JobID is empty
// when the submitter did not create the job beforehand.
type SubmissionMessage struct {
	JobID               string   `json:"job_id,omitempty" validate:"omitempty,uuid"`
	CompoundID          string   `json:"compound_id" validate:"required,uuid"`
	Smiles              string   `json:"smiles,omitempty" validate:"max=4096"`
	Structure           string   `json:"structure,omitempty" validate:"max=4096"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	UserID              string   `json:"user_id,omitempty"`
}

// Validate checks field formats and ranges.
func (m SubmissionMessage) Validate() error {
	if err := validate.Struct(m); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid submission message")
	}
	return nil
}

// Threshold returns the requested threshold or def.
func (m SubmissionMessage) Threshold(def float64) float64 {
	if m.SimilarityThreshold != nil {
		return *m.SimilarityThreshold
	}
	if def <= 0 {
		return DefaultSubmissionThreshold
	}
	return def
}

// StructureString returns the structure, preferring the smiles field.
func (m SubmissionMessage) StructureString() string {
	if m.Smiles != "" {
		return m.Smiles
	}
	return m.Structure
}

// ParsedJobID returns the job ID, or uuid.Nil when absent.
func (m SubmissionMessage) ParsedJobID() uuid.UUID {
	id, err := uuid.Parse(m.JobID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ParsedCompoundID returns the compound ID. Call Validate first.
func (m SubmissionMessage) ParsedCompoundID() uuid.UUID {
	id, _ := uuid.Parse(m.CompoundID)
	return id
}

// VisualizationReadyMessage announces that a job's results can be rendered.
type VisualizationReadyMessage struct {
	JobID      string    `json:"job_id" validate:"required,uuid"`
	CompoundID string    `json:"compound_id" validate:"required,uuid"`
	Timestamp  time.Time `json:"timestamp" validate:"required"`
}

// Validate checks field formats.
func (m VisualizationReadyMessage) Validate() error {
	if err := validate.Struct(m); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid visualization message")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Publisher
// ─────────────────────────────────────────────────────────────────────────────

// publisher is the part of Producer used by EventPublisher.
type publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// EventPublisher publishes the pipeline's events on their configured topics.
type EventPublisher struct {
	producer        publisher
	submissionTopic string
	visualizeTopic  string
	source          string
}

// NewEventPublisher binds producer to the two pipeline topics.
func NewEventPublisher(producer publisher, submissionTopic, visualizeTopic string) *EventPublisher {
	return &EventPublisher{
		producer:        producer,
		submissionTopic: submissionTopic,
		visualizeTopic:  visualizeTopic,
		source:          DefaultEventSource,
	}
}

// PublishSubmission publishes m keyed by compound ID.
func (p *EventPublisher) PublishSubmission(ctx context.Context, m SubmissionMessage) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return p.publish(ctx, p.submissionTopic, EventAnalysisRequested, m.CompoundID, m)
}

// PublishVisualizationReady publishes m keyed by job ID.
func (p *EventPublisher) PublishVisualizationReady(ctx context.Context, m VisualizationReadyMessage) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return p.publish(ctx, p.visualizeTopic, EventVisualizationReady, m.JobID, m)
}

func (p *EventPublisher) publish(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, p.source, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

//Personal.AI order the ending
