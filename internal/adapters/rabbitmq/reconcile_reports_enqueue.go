package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reid-service/internal/contextkeys"
	"reid-service/internal/core/domain"
	"reid-service/internal/core/port"
	"reid-service/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ReconcileOutcomeDTO is the wire shape of the per-record report published
// after a reconcile pass.
type ReconcileOutcomeDTO struct {
	URL     string `json:"url"`
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
	ReidID  string `json:"reid_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// OutcomeReporterAdapter publishes reconcile outcomes so upstream scrapers
// can react to rejections without polling.
type OutcomeReporterAdapter struct {
	producer   *rabbitmq_producer.Publisher
	routingKey string
}

func NewOutcomeReporterAdapter(producer *rabbitmq_producer.Publisher, routingKey string) (*OutcomeReporterAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("rabbitmq adapter: routingKey cannot be empty")
	}
	return &OutcomeReporterAdapter{
		producer:   producer,
		routingKey: routingKey,
	}, nil
}

func (a *OutcomeReporterAdapter) ReportOutcome(ctx context.Context, url string, outcome domain.ReconcileOutcome) error {
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "OutcomeReporterAdapter",
		"routing_key": a.routingKey,
		"url":         url,
	})

	dto := ReconcileOutcomeDTO{
		URL:     url,
		Status:  string(outcome.Status),
		Changed: outcome.Changed,
		ReidID:  outcome.ReidID,
		Reason:  outcome.Reason,
	}

	body, _ := json.Marshal(dto)

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      make(amqp.Table),
	}

	traceID := contextkeys.TraceIDFromContext(ctx)
	if traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.producer.Publish(publishCtx, a.routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish reconcile outcome", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish outcome for %s: %w", url, err)
	}

	adapterLogger.Debug("Published reconcile outcome", port.Fields{"status": dto.Status})
	return nil
}
