package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motorlote/motorlote-backend/internal/audit"
	"github.com/motorlote/motorlote-backend/pkg/config"
	"github.com/motorlote/motorlote-backend/pkg/db/models"
	"github.com/motorlote/motorlote-backend/pkg/logger"
	"github.com/motorlote/motorlote-backend/pkg/metrics"
	"github.com/motorlote/motorlote-backend/pkg/outbox"
)

const workerName = "audit-worker"

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	AuditPublisher() *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedTx(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func() publisher

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Outbox           outboxRepository
	Audit            audit.Repository
	PublisherFactory publisherFactory
	Metrics          *metrics.WorkerMetrics
}

// Service drains the outbox into the audit_log table and republishes each
// envelope to the audit topic. Workflows never wait on any of this.
type Service struct {
	cfg              *config.Config
	logg             *logger.Logger
	db               dbClient
	pubsub           pubSubClient
	outbox           outboxRepository
	audit            audit.Repository
	publisherFactory publisherFactory
	metrics          *metrics.WorkerMetrics
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Audit == nil {
		return nil, errors.New("audit repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func() publisher {
			pub := params.PubSub.AuditPublisher()
			if pub == nil {
				return nil
			}
			return &gcpPublisher{Publisher: pub}
		}
	}

	batch := params.Config.Audit.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Audit.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Audit.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:              params.Config,
		logg:             params.Logger,
		db:               params.DB,
		pubsub:           params.PubSub,
		outbox:           params.Outbox,
		audit:            params.Audit,
		publisherFactory: factory,
		metrics:          params.Metrics,
		batchSize:        batch,
		maxAttempts:      maxAttempts,
		pollInterval:     time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "audit worker context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "audit worker batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	start := time.Now()
	defer func() {
		s.metrics.ObserveBatch(workerName, time.Since(start))
	}()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.outbox.FetchUnpublishedTx(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		processed = true
		auditRepo := s.audit.WithTx(tx)
		for _, event := range events {
			fields := s.eventFields(event)

			if err := s.recordAndPublish(ctx, auditRepo, event); err != nil {
				ctxWithFields := s.logg.WithFields(ctx, fields)
				ctxWithFields = s.logg.WithField(ctxWithFields, "error", err.Error())
				s.logg.Warn(ctxWithFields, "audit event processing failed")
				s.metrics.IncFailed(workerName)
				if markErr := s.outbox.MarkFailedTx(tx, event.ID, err); markErr != nil {
					return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
				}
				continue
			}

			if markErr := s.outbox.MarkPublishedTx(tx, event.ID); markErr != nil {
				return fmt.Errorf("mark published %s: %w", event.ID, markErr)
			}
			s.metrics.IncPublished(workerName)
			s.logg.Info(s.logg.WithFields(ctx, fields), "audit event recorded")
		}
		return nil
	})
	return processed, err
}

func (s *Service) recordAndPublish(ctx context.Context, auditRepo audit.Repository, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return fmt.Errorf("decode payload envelope: %w", err)
	}

	actorID := uuid.Nil
	if envelope.Actor != nil {
		actorID = envelope.Actor.ActorID
	}

	entry := &models.AuditLogEntry{
		Action:     event.EventType,
		EntityType: event.AggregateType,
		EntityID:   event.AggregateID,
		ActorID:    actorID,
		Payload:    event.Payload,
	}
	if err := auditRepo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return s.publish(ctx, event, envelope)
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, envelope outbox.PayloadEnvelope) error {
	pub := s.publisherFactory()
	if pub == nil {
		return errors.New("audit publisher not configured")
	}

	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return err
	}
	return nil
}

func (s *Service) eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
