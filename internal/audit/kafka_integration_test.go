//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"gymgate/internal/audit"
	id "gymgate/pkg/domain"
	"gymgate/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	brokers   []string
	publisher *audit.KafkaPublisher
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.brokers = mgr.GetRedpanda(s.T()).Brokers

	publisher, err := audit.NewKafkaPublisher(s.brokers)
	s.Require().NoError(err)
	s.publisher = publisher
	s.Require().NoError(s.publisher.EnsureTopic(context.Background(), 1))
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func (s *KafkaPublisherSuite) TestEnsureTopicIsIdempotent() {
	s.NoError(s.publisher.EnsureTopic(context.Background(), 1))
}

func (s *KafkaPublisherSuite) TestEmitProducesKeyedEvent() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orgID := id.OrgID(uuid.New())
	subjectID := id.SubjectID(uuid.New())
	event := audit.Event{
		Type:            audit.EventCheckedOut,
		Timestamp:       time.Now().UTC(),
		OrgID:           orgID,
		SubjectID:       subjectID,
		SubjectKind:     "member",
		EntryMethod:     "biometric",
		DurationMinutes: 90,
	}
	s.Require().NoError(s.publisher.Emit(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(audit.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(fetches.Err())
		for _, record := range fetches.Records() {
			var wire struct {
				Type            string `json:"type"`
				OrgID           string `json:"org_id"`
				SubjectID       string `json:"subject_id"`
				DurationMinutes int64  `json:"duration_minutes"`
			}
			s.Require().NoError(json.Unmarshal(record.Value, &wire))
			if wire.OrgID != orgID.String() {
				continue
			}
			s.Equal(string(audit.EventCheckedOut), wire.Type)
			s.Equal(subjectID.String(), wire.SubjectID)
			s.EqualValues(90, wire.DurationMinutes)
			s.Equal(orgID.String(), string(record.Key), "events are keyed by organization")
			return
		}
	}
	s.Fail("produced event was not observed on the topic")
}
