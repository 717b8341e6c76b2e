package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/compound-analysis/internal/config"
	apperrors "github.com/turtacn/compound-analysis/pkg/errors"
)

func TestDecodeEvent_BarePayload(t *testing.T) {
	raw := `{"job_id":"8f14e45f-ceea-4c1e-9a3b-1f2d3c4b5a60","compound_id":"6f1c2a8e-0000-4000-8000-000000000001","smiles":"c1ccccc1"}`
	var m SubmissionMessage
	require.NoError(t, DecodeEvent(&Message{Value: []byte(raw)}, &m))
	require.NoError(t, m.Validate())

	assert.Equal(t, "c1ccccc1", m.StructureString())
	assert.Equal(t, 80.0, m.Threshold(0))
	assert.Equal(t, 65.0, m.Threshold(65))
	assert.Equal(t, "8f14e45f-ceea-4c1e-9a3b-1f2d3c4b5a60", m.ParsedJobID().String())
	assert.Equal(t, "6f1c2a8e-0000-4000-8000-000000000001", m.ParsedCompoundID().String())
}

func TestDecodeEvent_Errors(t *testing.T) {
	var m SubmissionMessage
	assert.True(t, apperrors.IsValidation(DecodeEvent(&Message{}, &m)))
	assert.True(t, apperrors.IsValidation(DecodeEvent(&Message{Value: []byte("{not json")}, &m)))
	assert.True(t, apperrors.IsValidation(DecodeEvent(nil, &m)))

	env := `{"event_id":"e1","event_type":"x","payload":null}`
	assert.Error(t, DecodeEvent(&Message{Value: []byte(env)}, &m))
}

func TestSubmissionMessage_Validate(t *testing.T) {
	low, high, ok := -1.0, 100.5, 0.0
	base := SubmissionMessage{CompoundID: "6f1c2a8e-0000-4000-8000-000000000001"}
	assert.NoError(t, base.Validate())

	m := base
	m.SimilarityThreshold = &ok
	assert.NoError(t, m.Validate())
	assert.Equal(t, 0.0, m.Threshold(80))

	m.SimilarityThreshold = &low
	assert.Error(t, m.Validate())
	m.SimilarityThreshold = &high
	assert.Error(t, m.Validate())

	m = base
	m.JobID = "123"
	assert.Error(t, m.Validate())
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", m.ParsedJobID().String())

	assert.Error(t, SubmissionMessage{}.Validate())
}

func TestEnvelope_ToMessage(t *testing.T) {
	env, err := NewEventEnvelope("evt", "", map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, DefaultEventSource, env.Source)
	assert.Equal(t, DefaultEventSchemaVersion, env.SchemaVersion)
	assert.NotEmpty(t, env.EventID)

	msg, err := env.ToMessage("topic", "key")
	require.NoError(t, err)
	assert.Equal(t, "evt", msg.Headers["event_type"])
	assert.Equal(t, env.Timestamp, msg.Timestamp)

	var out map[string]string
	require.NoError(t, DecodeEvent(&Message{Value: msg.Value}, &out))
	assert.Equal(t, "v", out["k"])

	_, err = NewEventEnvelope("evt", "", make(chan int))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerialization))
}

type fakeConn struct {
	created    []kafka.TopicConfig
	createErr  error
	partitions map[string][]kafka.Partition
	closed     bool
}

func (c *fakeConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if c.createErr != nil {
		return c.createErr
	}
	c.created = append(c.created, topics...)
	return nil
}

func (c *fakeConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	var out []kafka.Partition
	for _, t := range topics {
		out = append(out, c.partitions[t]...)
	}
	return out, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestTopicManager_EnsurePipelineTopics(t *testing.T) {
	conn := &fakeConn{}
	m := NewTopicManagerWithConn(conn, nil)

	topics := PipelineTopics(config.KafkaConfig{
		SubmissionTopic: "req",
		VisualizeTopic:  "viz",
		DeadLetterTopic: "dlq",
	}, 6, 3)
	require.NoError(t, m.EnsureTopics(context.Background(), topics))

	require.Len(t, conn.created, 3)
	assert.Equal(t, "req", conn.created[0].Topic)
	assert.Equal(t, 6, conn.created[0].NumPartitions)
	assert.Equal(t, "retention.ms", conn.created[0].ConfigEntries[0].ConfigName)
	assert.Equal(t, "604800000", conn.created[0].ConfigEntries[0].ConfigValue)
	assert.Equal(t, 1, conn.created[2].NumPartitions)

	require.NoError(t, m.Close())
	assert.True(t, conn.closed)
}

func TestTopicManager_CreateTopic(t *testing.T) {
	ctx := context.Background()

	m := NewTopicManagerWithConn(&fakeConn{createErr: kafka.TopicAlreadyExists}, nil)
	assert.NoError(t, m.CreateTopic(ctx, TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}))

	conn := &fakeConn{
		createErr:  errors.New("controller moved"),
		partitions: map[string][]kafka.Partition{"t": {{Topic: "t"}}},
	}
	m = NewTopicManagerWithConn(conn, nil)
	assert.NoError(t, m.CreateTopic(ctx, TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}))

	m = NewTopicManagerWithConn(&fakeConn{createErr: errors.New("controller moved")}, nil)
	err := m.CreateTopic(ctx, TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMessageQueueError))

	assert.True(t, apperrors.IsValidation(m.CreateTopic(ctx, TopicConfig{NumPartitions: 1, ReplicationFactor: 1})))
	assert.True(t, apperrors.IsValidation(m.CreateTopic(ctx, TopicConfig{Name: "t"})))
}

//Personal.AI order the ending
