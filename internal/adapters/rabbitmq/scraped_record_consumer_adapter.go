package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reid-service/internal/contextkeys"
	"reid-service/internal/contracts"
	"reid-service/internal/core/domain"
	"reid-service/internal/core/port"
	usecases_port "reid-service/internal/core/port/usecases_port"
	"reid-service/pkg/rabbitmq/rabbitmq_common"
	"reid-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ScrapedEventDTO is the wire shape of one scraped-listing event.
type ScrapedEventDTO struct {
	URL          string     `json:"url"`
	Source       string     `json:"source"`
	ScrapedAt    *time.Time `json:"scraped_at,omitempty"`
	Availability string     `json:"availability"`
	Delisted     bool       `json:"delisted,omitempty"`
	SoldAt       *time.Time `json:"sold_at,omitempty"`

	Price    int64  `json:"price"`
	Currency string `json:"currency"`

	PropertyID     *string  `json:"property_id,omitempty"`
	ListedDate     *string  `json:"listed_date,omitempty"`
	Title          *string  `json:"title,omitempty"`
	Region         *string  `json:"region,omitempty"`
	Location       *string  `json:"location,omitempty"`
	ContractType   *string  `json:"contract_type,omitempty"`
	PropertyType   *string  `json:"property_type,omitempty"`
	LeaseholdYears *float64 `json:"leasehold_years,omitempty"`
	Bedrooms       *float64 `json:"bedrooms,omitempty"`
	Bathrooms      *float64 `json:"bathrooms,omitempty"`
	LandSize       *float64 `json:"land_size,omitempty"`
	BuildSize      *float64 `json:"build_size,omitempty"`
	LandZoning     *string  `json:"land_zoning,omitempty"`
	ImageURL       *string  `json:"image_url,omitempty"`
	Description    *string  `json:"description,omitempty"`
	IsOffPlan      *bool    `json:"is_off_plan,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
}

func (dto ScrapedEventDTO) toDomain() domain.ScrapedRecord {
	rec := domain.ScrapedRecord{
		URL:               dto.URL,
		Source:            dto.Source,
		AvailabilityLabel: dto.Availability,
		Delisted:          dto.Delisted,
		SoldAt:            dto.SoldAt,
		Price:             dto.Price,
		Currency:          dto.Currency,
		PropertyID:        dto.PropertyID,
		ListedDate:        dto.ListedDate,
		Title:             dto.Title,
		Region:            dto.Region,
		Location:          dto.Location,
		ContractType:      dto.ContractType,
		PropertyType:      dto.PropertyType,
		LeaseholdYears:    dto.LeaseholdYears,
		Bedrooms:          dto.Bedrooms,
		Bathrooms:         dto.Bathrooms,
		LandSize:          dto.LandSize,
		BuildSize:         dto.BuildSize,
		LandZoning:        dto.LandZoning,
		ImageURL:          dto.ImageURL,
		Description:       dto.Description,
		IsOffPlan:         dto.IsOffPlan,
		Latitude:          dto.Latitude,
		Longitude:         dto.Longitude,
	}
	if dto.ScrapedAt != nil {
		rec.ScrapedAt = *dto.ScrapedAt
	}
	return rec
}

// ScrapedRecordConsumerAdapter is the inbound adapter that listens to the
// scraped-records queue and feeds each event into the reconcile use case.
type ScrapedRecordConsumerAdapter struct {
	consumer    rabbitmq_consumer.Consumer
	useCase     usecases_port.ReconcileRecordPort
	rawCaptures port.RawCaptureStoragePort
	logger      port.LoggerPort
}

func NewScrapedRecordConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	useCase usecases_port.ReconcileRecordPort,
	rawCaptures port.RawCaptureStoragePort,
	logger port.LoggerPort,
	connManager *rabbitmq_common.ConnectionManager,
) (*ScrapedRecordConsumerAdapter, error) {

	adapter := &ScrapedRecordConsumerAdapter{
		useCase:     useCase,
		rawCaptures: rawCaptures,
		logger:      logger,
	}

	pkgLogger := logger.WithFields(port.Fields{"component": "rabbitmq_distributing_consumer", "consumer_tag": consumerCfg.ConsumerTag})
	consumerCfg.Logger = NewPkgLoggerBridge(pkgLogger)

	consumer, err := rabbitmq_consumer.NewDistributingConsumer(consumerCfg, adapter.messageHandler, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for scraped records: %w", err)
	}
	adapter.consumer = consumer

	return adapter, nil
}

// messageHandler processes one delivery. A nil return acks the message; an
// error routes it through the retry loop and ultimately the final DLQ.
func (a *ScrapedRecordConsumerAdapter) messageHandler(d amqp.Delivery) error {
	traceID, _ := d.Headers["x-trace-id"].(string)
	if traceID == "" {
		traceID = uuid.New().String()
	}

	msgLogger := a.logger.WithFields(port.Fields{
		"trace_id":     traceID,
		"message_id":   d.MessageId,
		"adapter_name": "ScrapedRecordConsumerAdapter",
	})

	ctx := context.Background()
	ctx = contextkeys.ContextWithLogger(ctx, msgLogger)
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)

	eventType, _ := d.Headers["event-type"].(string)
	eventVersion, _ := d.Headers["event-version"].(string)
	if err := contracts.ValidateEvent(eventType, eventVersion, d.Body); err != nil {
		msgLogger.Error("Message failed schema validation. Rejecting.", err, nil)
		return err
	}

	var dto ScrapedEventDTO
	if err := json.Unmarshal(d.Body, &dto); err != nil {
		return fmt.Errorf("failed to unmarshal scraped event DTO: %w", err)
	}

	record := dto.toDomain()

	// Keep the raw payload before reconciling. A later validation rejection
	// deletes it again; everything else stays for replay and audit.
	capture := &domain.RawCapture{
		ID:        uuid.New(),
		URL:       record.URL,
		JSON:      d.Body,
		CreatedAt: time.Now(),
	}
	if err := a.rawCaptures.Insert(ctx, capture); err != nil {
		msgLogger.Error("Failed to store raw capture", err, nil)
		return err
	}
	record.RawCaptureID = &capture.ID

	outcome, err := a.useCase.Reconcile(ctx, record)
	if err != nil {
		// Transient store failures only; the use case resolves rejections
		// itself and reports them as an outcome.
		msgLogger.Error("Reconcile failed, message will be retried.", err, nil)
		return err
	}

	msgLogger.Info("Record reconciled", port.Fields{
		"status":  string(outcome.Status),
		"changed": outcome.Changed,
		"reid_id": outcome.ReidID,
	})
	return nil
}

// Start implements EventListenerPort, blocking until the context is
// cancelled or the connection drops.
func (a *ScrapedRecordConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

// Close stops the consumer, waiting for in-flight handlers.
func (a *ScrapedRecordConsumerAdapter) Close() error {
	return a.consumer.Close()
}
