package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/service"
	apperrors "github.com/ocakbasi/order-sync/pkg/errors"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

// inboundOrder is the payload delivery platforms push onto the intake
// queue. Platform order IDs are kept only for logging; the store assigns
// its own IDs and display sequences.
type inboundOrder struct {
	PlatformOrderID string        `json:"platform_order_id"`
	Items           []inboundItem `json:"items"`
}

type inboundItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Note      *string         `json:"note,omitempty"`
}

// Config holds the configuration for the intake Consumer
type Config struct {
	URL           string
	Queue         string
	Prefetch      int
	ReconnectWait time.Duration
}

// Consumer consumes delivery-platform orders from RabbitMQ and creates
// them in the store as online orders. Malformed payloads are rejected
// without requeue; transient store failures are requeued so the order is
// not lost.
type Consumer struct {
	config       Config
	orderService *service.OrderService
	logger       logger.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	running      bool
	mu           sync.Mutex
}

// NewConsumer creates a new intake Consumer
func NewConsumer(config Config, orderService *service.OrderService, logger logger.Logger) *Consumer {
	if config.Prefetch <= 0 {
		config.Prefetch = 10
	}

	if config.ReconnectWait <= 0 {
		config.ReconnectWait = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:       config,
		orderService: orderService,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start starts consuming from the intake queue
func (c *Consumer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}

	c.running = true
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		c.consumeLoop()
	}()

	c.logger.Info("Intake consumer started", "queue", c.config.Queue)
}

// Stop stops the consumer and waits for in-flight deliveries to finish
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	c.cancel()
	c.wg.Wait()
	c.running = false

	c.logger.Info("Intake consumer stopped")
}

// consumeLoop keeps a consuming session alive, reconnecting after broker
// or channel failures until the consumer is stopped.
func (c *Consumer) consumeLoop() {
	for {
		err := c.consumeOnce()

		if c.ctx.Err() != nil {
			return
		}

		c.logger.Error("Intake consumer disconnected, reconnecting",
			"error", err,
			"wait", c.config.ReconnectWait)

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.config.ReconnectWait):
		}
	}
}

// consumeOnce runs a single consuming session: dial, declare, consume
// until the channel dies or the consumer is stopped.
func (c *Consumer) consumeOnce() error {
	conn, err := amqp.Dial(c.config.URL)

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()

	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose(make(chan *amqp.Error, 1))

	if err := ch.Qos(c.config.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if _, err := ch.QueueDeclare(c.config.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	deliveries, err := ch.Consume(c.config.Queue, "", false, false, false, false, nil)

	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()

		case amqpErr := <-closeChan:
			if amqpErr != nil {
				return fmt.Errorf("channel closed: %w", amqpErr)
			}
			return fmt.Errorf("channel closed")

		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			c.handleDelivery(msg)
		}
	}
}

// handleDelivery processes one delivery and acks or nacks it
func (c *Consumer) handleDelivery(msg amqp.Delivery) {
	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	var inbound inboundOrder

	if err := json.Unmarshal(msg.Body, &inbound); err != nil {
		c.logger.Error("Rejecting malformed intake payload", "error", err)
		c.nack(msg, false)
		return
	}

	items := make([]models.OrderItem, 0, len(inbound.Items))

	for _, it := range inbound.Items {
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Note:      it.Note,
		})
	}

	order, err := c.orderService.CreateOrder(ctx, models.SourceOnline, nil, items)

	if err != nil {
		// Invalid orders will never succeed, drop them; anything else is
		// likely a store hiccup and worth another delivery.
		if errors.Is(err, apperrors.ErrInvalidInput) {
			c.logger.Error("Rejecting invalid intake order",
				"error", err,
				"platformOrderID", inbound.PlatformOrderID)
			c.nack(msg, false)
			return
		}

		c.logger.Error("Failed to create intake order, requeueing",
			"error", err,
			"platformOrderID", inbound.PlatformOrderID)
		c.nack(msg, true)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack intake delivery", "error", err, "orderID", order.ID)
		return
	}

	c.logger.Info("Intake order created",
		"orderID", order.ID,
		"platformOrderID", inbound.PlatformOrderID,
		"seq", order.Seq)
}

func (c *Consumer) nack(msg amqp.Delivery, requeue bool) {
	if err := msg.Nack(false, requeue); err != nil {
		c.logger.Error("Failed to nack intake delivery", "error", err)
	}
}
