package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/marketplace-backend/internal/analytics/router"
	"github.com/angelmondragon/marketplace-backend/internal/analytics/types"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/registry"
)

const analyticsConsumerName = "analytics"

// Handler defines how to process analytics envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type deliveryGuard interface {
	Claim(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

// Service consumes ledger events from every analytics subscription and hands
// each new event to the handler once.
type Service struct {
	subscriptions []*gcppubsub.Subscriber
	handler       Handler
	guard         deliveryGuard
	logg          *logger.Logger
}

func NewService(subscriptions []*gcppubsub.Subscriber, handler Handler, guard deliveryGuard, logg *logger.Logger) (*Service, error) {
	if len(subscriptions) == 0 {
		return nil, errors.New("at least one analytics subscription is required")
	}
	for _, sub := range subscriptions {
		if sub == nil {
			return nil, errors.New("analytics subscription is nil")
		}
	}
	if handler == nil {
		return nil, errors.New("analytics handler is required")
	}
	if guard == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscriptions: subscriptions,
		handler:       handler,
		guard:         guard,
		logg:          logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run receives from all subscriptions until ctx is canceled or one of them
// fails.
func (s *Service) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, sub := range s.subscriptions {
		sub := sub
		group.Go(func() error {
			return sub.Receive(groupCtx, func(innerCtx context.Context, msg *gcppubsub.Message) {
				if s.process(innerCtx, msg).nack {
					msg.Nack()
					return
				}
				msg.Ack()
			})
		})
	}
	return group.Wait()
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := s.logg.WithFields(ctx, fields)

	envelope, err := buildEnvelope(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "invalid analytics envelope")
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = envelope.EventType
	fields["aggregate_type"] = envelope.AggregateType
	fields["aggregate_id"] = envelope.AggregateID
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = s.logg.WithFields(ctx, fields)

	seen, err := s.guard.Claim(logCtx, analyticsConsumerName, envelope.EventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if seen {
		s.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := s.handler.Handle(logCtx, *envelope); err != nil {
		if isPermanent(err) {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "analytics event dropped")
			return processResult{}
		}
		s.logg.Error(logCtx, "handler error", err)
		if relErr := s.guard.Release(logCtx, analyticsConsumerName, envelope.EventID); relErr != nil {
			s.logg.Error(logCtx, "failed to release idempotency claim", relErr)
		}
		return processResult{nack: true}
	}

	s.logg.Info(logCtx, "analytics event handled")
	return processResult{}
}

func isPermanent(err error) bool {
	if errors.Is(err, router.ErrUnsupportedEventType) {
		return true
	}
	var nonRetry registry.NonRetryableError
	return errors.As(err, &nonRetry)
}

func buildEnvelope(msg *gcppubsub.Message) (*types.Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventType, err := enums.ParseOutboxEventType(attribute(msg, "event_type"))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attribute(msg, "aggregate_type"))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attribute(msg, "aggregate_id")
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attribute(msg, "created_at")); err == nil {
			occurredAt = parsed
		}
	}

	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = attribute(msg, "event_id")
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	return &types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Raw:           msg.Data,
	}, nil
}

func attribute(msg *gcppubsub.Message, key string) string {
	return strings.TrimSpace(msg.Attributes[key])
}
