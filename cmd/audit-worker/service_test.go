package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/internal/audit"
	"github.com/motorlote/motorlote-backend/pkg/config"
	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/enums"
	"github.com/motorlote/motorlote-backend/pkg/logger"
	"github.com/motorlote/motorlote-backend/pkg/outbox"
)

type stubDBClient struct{}

func (stubDBClient) Ping(ctx context.Context) error {
	return nil
}

func (stubDBClient) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubPubSubClient struct{}

func (stubPubSubClient) Ping(ctx context.Context) error {
	return nil
}

func (stubPubSubClient) AuditPublisher() *gcppubsub.Publisher {
	return nil
}

type stubOutboxRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	failedErr []error
}

func (s *stubOutboxRepo) FetchUnpublishedTx(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return s.events, nil
}

func (s *stubOutboxRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	s.failed = append(s.failed, id)
	s.failedErr = append(s.failedErr, err)
	return nil
}

type stubAuditRepo struct {
	entries   []models.AuditLogEntry
	insertErr error
}

func (s *stubAuditRepo) WithTx(tx *gorm.DB) audit.Repository {
	return s
}

func (s *stubAuditRepo) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubAuditRepo) ListByEntity(ctx context.Context, entityType enums.OutboxAggregateType, entityID uuid.UUID) ([]models.AuditLogEntry, error) {
	return s.entries, nil
}

type stubPublishResult struct {
	id  string
	err error
}

func (s stubPublishResult) Get(ctx context.Context) (string, error) {
	return s.id, s.err
}

type stubPublisher struct {
	messages   []*gcppubsub.Message
	publishErr error
}

func (s *stubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	s.messages = append(s.messages, msg)
	return stubPublishResult{id: "msg-1", err: s.publishErr}
}

func testEnvelope(t *testing.T, actorID uuid.UUID) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Actor:      &outbox.ActorRef{ActorID: actorID},
		Data:       json.RawMessage(`{"sale_id":"x"}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func newTestService(t *testing.T, outboxRepo *stubOutboxRepo, auditRepo *stubAuditRepo, pub *stubPublisher) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "audit-worker-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Config: &config.Config{},
		Logger: logg,
		DB:     stubDBClient{},
		PubSub: stubPubSubClient{},
		Outbox: outboxRepo,
		Audit:  auditRepo,
		PublisherFactory: func() publisher {
			return pub
		},
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestProcessBatchRecordsAndPublishes(t *testing.T) {
	actorID := uuid.New()
	saleID := uuid.New()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.AuditSaleCreate,
		AggregateType: enums.AggregateSale,
		AggregateID:   saleID,
		Payload:       testEnvelope(t, actorID),
		CreatedAt:     time.Now(),
	}
	outboxRepo := &stubOutboxRepo{events: []models.OutboxEvent{event}}
	auditRepo := &stubAuditRepo{}
	pub := &stubPublisher{}
	svc := newTestService(t, outboxRepo, auditRepo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report work")
	}

	if len(auditRepo.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(auditRepo.entries))
	}
	entry := auditRepo.entries[0]
	if entry.Action != enums.AuditSaleCreate || entry.EntityType != enums.AggregateSale || entry.EntityID != saleID {
		t.Fatalf("unexpected audit entry %+v", entry)
	}
	if entry.ActorID != actorID {
		t.Fatalf("expected actor %s, got %s", actorID, entry.ActorID)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_type"] != string(enums.AuditSaleCreate) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != saleID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", msg.Attributes["aggregate_id"])
	}

	if len(outboxRepo.published) != 1 || outboxRepo.published[0] != event.ID {
		t.Fatalf("expected event marked published, got %+v", outboxRepo.published)
	}
	if len(outboxRepo.failed) != 0 {
		t.Fatalf("expected no failures, got %+v", outboxRepo.failed)
	}
}

func TestProcessBatchMarksBadPayloadFailed(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.AuditVehicleStageChange,
		AggregateType: enums.AggregateVehicle,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{invalid`),
		CreatedAt:     time.Now(),
	}
	outboxRepo := &stubOutboxRepo{events: []models.OutboxEvent{event}}
	auditRepo := &stubAuditRepo{}
	pub := &stubPublisher{}
	svc := newTestService(t, outboxRepo, auditRepo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report work")
	}

	if len(auditRepo.entries) != 0 {
		t.Fatalf("expected no audit entries, got %d", len(auditRepo.entries))
	}
	if len(outboxRepo.failed) != 1 || outboxRepo.failed[0] != event.ID {
		t.Fatalf("expected event marked failed, got %+v", outboxRepo.failed)
	}
	if len(outboxRepo.published) != 0 {
		t.Fatalf("expected no publishes, got %+v", outboxRepo.published)
	}
}

func TestProcessBatchMarksPublishErrorFailed(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.AuditReservationCreate,
		AggregateType: enums.AggregateReservation,
		AggregateID:   uuid.New(),
		Payload:       testEnvelope(t, uuid.New()),
		CreatedAt:     time.Now(),
	}
	outboxRepo := &stubOutboxRepo{events: []models.OutboxEvent{event}}
	auditRepo := &stubAuditRepo{}
	pub := &stubPublisher{publishErr: errors.New("topic unavailable")}
	svc := newTestService(t, outboxRepo, auditRepo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report work")
	}

	// The entry insert happens in the same transaction that records the
	// failure, so the attempt counter drives the retry.
	if len(outboxRepo.failed) != 1 || outboxRepo.failed[0] != event.ID {
		t.Fatalf("expected event marked failed, got %+v", outboxRepo.failed)
	}
	if len(outboxRepo.published) != 0 {
		t.Fatalf("expected no publishes, got %+v", outboxRepo.published)
	}
}

func TestProcessBatchIdlesOnEmptyOutbox(t *testing.T) {
	outboxRepo := &stubOutboxRepo{}
	auditRepo := &stubAuditRepo{}
	pub := &stubPublisher{}
	svc := newTestService(t, outboxRepo, auditRepo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if processed {
		t.Fatalf("expected no work reported")
	}
}

func TestNextBackoffDoublesUpToMax(t *testing.T) {
	base := 500 * time.Millisecond
	got := nextBackoff(base, base, maxBackoff)
	if got != time.Second {
		t.Fatalf("expected 1s, got %s", got)
	}
	got = nextBackoff(8*time.Second, base, maxBackoff)
	if got != maxBackoff {
		t.Fatalf("expected cap at %s, got %s", maxBackoff, got)
	}
}
