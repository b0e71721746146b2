package webhooks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/internal/payments"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const (
	ResultProcessed = "processed"
	ResultDuplicate = "duplicate"
	ResultIgnored   = "ignored"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

type paymentReactor interface {
	MarkSucceeded(ctx context.Context, orderID uuid.UUID, ref payments.GatewayRef) (*payments.Outcome, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, ref payments.GatewayRef) (*payments.Outcome, error)
}

type replayGuard interface {
	Claim(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

type observer interface {
	ObserveWebhook(gateway, result string)
}

// Result is the acknowledgement returned to the gateway.
type Result struct {
	Gateway   enums.PaymentMethod `json:"gateway"`
	EventID   string              `json:"event_id,omitempty"`
	EventType string              `json:"event_type,omitempty"`
	Status    string              `json:"status"`
	Outcome   *payments.Outcome   `json:"outcome,omitempty"`
}

type Service interface {
	Handle(ctx context.Context, gateway enums.PaymentMethod, payload []byte, header http.Header) (*Result, error)
}

type ServiceParams struct {
	Verifiers []Verifier
	Payments  paymentReactor
	Guard     replayGuard
	Metrics   observer
	Logger    *logger.Logger
}

type service struct {
	verifiers map[enums.PaymentMethod]Verifier
	payments  paymentReactor
	guard     replayGuard
	metrics   observer
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("replay guard required")
	}
	verifiers := make(map[enums.PaymentMethod]Verifier, len(params.Verifiers))
	for _, v := range params.Verifiers {
		if v == nil {
			continue
		}
		verifiers[v.Gateway()] = v
	}
	return &service{
		verifiers: verifiers,
		payments:  params.Payments,
		guard:     params.Guard,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// Handle verifies the callback, claims its event id and applies it. A claim
// is released when applying fails so the gateway's retry is processed.
func (s *service) Handle(ctx context.Context, gateway enums.PaymentMethod, payload []byte, header http.Header) (*Result, error) {
	verifier, ok := s.verifiers[gateway]
	if !ok {
		s.observe(gateway, ResultRejected)
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "no webhook endpoint configured for %s", gateway)
	}
	note, err := verifier.Parse(payload, header)
	if err != nil {
		s.observe(gateway, ResultRejected)
		return nil, err
	}

	result := &Result{Gateway: gateway, EventID: note.EventID, EventType: note.EventType}
	if note.Action == ActionIgnore {
		result.Status = ResultIgnored
		s.observe(gateway, ResultIgnored)
		return result, nil
	}

	consumer := string(gateway)
	seen, err := s.guard.Claim(ctx, consumer, note.EventID)
	if err != nil {
		s.observe(gateway, ResultFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook event")
	}
	if seen {
		result.Status = ResultDuplicate
		s.observe(gateway, ResultDuplicate)
		return result, nil
	}

	outcome, err := s.apply(ctx, note)
	if err != nil {
		if releaseErr := s.guard.Release(ctx, consumer, note.EventID); releaseErr != nil && s.logg != nil {
			s.logg.Error(ctx, "release webhook claim", releaseErr)
		}
		s.observe(gateway, ResultFailed)
		return nil, err
	}

	result.Status = ResultProcessed
	result.Outcome = outcome
	s.observe(gateway, ResultProcessed)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"gateway":    string(gateway),
			"event_id":   note.EventID,
			"event_type": note.EventType,
			"order_id":   note.OrderID.String(),
			"changed":    outcome.Changed,
		})
		s.logg.Info(logCtx, "payment webhook processed")
	}
	return result, nil
}

func (s *service) apply(ctx context.Context, note *Notification) (*payments.Outcome, error) {
	ref := payments.GatewayRef{
		Method:        note.Gateway,
		TransactionID: note.TransactionID,
		Raw:           note.Raw,
	}
	switch note.Action {
	case ActionSucceeded:
		return s.payments.MarkSucceeded(ctx, note.OrderID, ref)
	case ActionFailed:
		return s.payments.MarkFailed(ctx, note.OrderID, ref)
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeInternal, "unhandled webhook action %q", note.Action)
	}
}

func (s *service) observe(gateway enums.PaymentMethod, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveWebhook(string(gateway), result)
}
