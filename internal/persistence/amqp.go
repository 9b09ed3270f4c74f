package persistence

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/draft-pipeline/internal/config"
)

const maxDialDelay = 60 * time.Second

// AMQP publishes lifecycle events to a durable topic exchange.
type AMQP struct {
	conn     *amqp.Connection
	exchange string
	logger   *zap.Logger
}

// DialWithRetry connects to RabbitMQ with exponential backoff, honoring ctx
// cancellation between attempts.
func DialWithRetry(ctx context.Context, cfg config.AMQPConfig, logger *zap.Logger) (*amqp.Connection, error) {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			if i > 1 {
				logger.Info("rabbit connected", zap.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err
		if i == attempts {
			break
		}

		sleep := cfg.RetryDelay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}
		logger.Warn("rabbit dial failed",
			zap.Int("attempt", i),
			zap.Duration("sleep", sleep),
			zap.Error(err),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.New("dial cancelled: " + ctx.Err().Error())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

// NewAMQP dials the broker and declares the exchange when a URL is configured.
func NewAMQP(ctx context.Context, cfg config.AMQPConfig, logger *zap.Logger) (*AMQP, error) {
	if cfg.URL == "" {
		logger.Warn("AMQP_URL not provided; rabbitmq event fan-out disabled")
		return &AMQP{}, nil
	}

	conn, err := DialWithRetry(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq", zap.String("exchange", cfg.Exchange))
	return &AMQP{conn: conn, exchange: cfg.Exchange, logger: logger}, nil
}

// Enabled reports whether a broker connection is available.
func (a *AMQP) Enabled() bool {
	return a != nil && a.conn != nil
}

// Publish sends a persistent JSON message under routing key.
func (a *AMQP) Publish(ctx context.Context, key, messageID string, body []byte) error {
	if !a.Enabled() {
		return ErrNotConfigured
	}
	ch, err := a.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx, a.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Ping reports broker connection health.
func (a *AMQP) Ping(context.Context) error {
	if !a.Enabled() {
		return ErrNotConfigured
	}
	if a.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}

// Close closes the broker connection.
func (a *AMQP) Close() {
	if a.Enabled() {
		_ = a.conn.Close()
	}
}
