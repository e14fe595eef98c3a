package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"expectation-svc/config"
	"expectation-svc/models"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const rejoinBackoff = 2 * time.Second

func InitConsumerGroup(cfg config.KafkaConfig, logger *zap.Logger) (sarama.ConsumerGroup, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Retry.Backoff = 1 * time.Second
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Offsets.AutoCommit.Enable = false
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	logger.Info("Kafka consumer group initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("group_id", cfg.GroupID),
	)
	return group, nil
}

// Processor handles one message payload. A *models.DecodeError marks the
// payload as permanently unprocessable.
type Processor interface {
	Process(ctx context.Context, payload []byte) error
}

// Runner drives the consumer group until its context is cancelled, then lets
// the in-flight message finish before closing the group.
type Runner struct {
	group   sarama.ConsumerGroup
	handler *handler
	cfg     config.KafkaConfig
	logger  *zap.Logger
	backoff time.Duration

	// handlerFailed is set when a claim gave up on a message it could not
	// settle. Consume still returns nil in that case.
	handlerFailed atomic.Bool

	state        atomic.Int32
	acked        atomic.Int64
	requeued     atomic.Int64
	deadLettered atomic.Int64

	mu            sync.Mutex
	lastProcessed time.Time
	lastErr       string
}

func NewRunner(group sarama.ConsumerGroup, producer sarama.SyncProducer, processor Processor, cfg config.KafkaConfig, messageTimeout time.Duration, logger *zap.Logger) *Runner {
	r := &Runner{
		group:   group,
		cfg:     cfg,
		logger:  logger,
		backoff: rejoinBackoff,
	}
	r.handler = &handler{
		runner:     r,
		processor:  processor,
		producer:   producer,
		dlqTopic:   cfg.DLQTopic,
		maxRetries: cfg.MaxRetries,
		timeout:    messageTimeout,
		logger:     logger,
	}
	if group != nil {
		r.advance(StateConnected)
	}
	return r
}

func (r *Runner) Run(ctx context.Context) error {
	go func() {
		for err := range r.group.Errors() {
			r.setLastError(err)
			r.logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		r.advance(StateDraining)
	}()

	r.logger.Info("Kafka consumer started",
		zap.String("topic", r.cfg.Topic),
		zap.String("group_id", r.cfg.GroupID),
	)

	var runErr error
	for {
		// Consume returns on every rebalance and whenever a claim handler
		// gives up, so it is called in a loop.
		err := r.group.Consume(ctx, []string{r.cfg.Topic}, r.handler)
		if err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				runErr = err
				break
			}
			r.setLastError(err)
			r.logger.Error("Consumer session ended with error", zap.Error(err))
		}
		// The unsettled message comes straight back on rejoin, so every
		// failed session is followed by a pause.
		if failed := r.handlerFailed.Swap(false); err != nil || failed {
			if failed {
				r.logger.Warn("Consumer session ended on an unsettled message", zap.Duration("backoff", r.backoff))
			}
			select {
			case <-time.After(r.backoff):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	r.advance(StateDraining)
	if err := r.group.Close(); err != nil && !errors.Is(err, sarama.ErrClosedConsumerGroup) {
		r.logger.Error("Failed to close consumer group", zap.Error(err))
	}
	r.advance(StateStopped)
	r.logger.Info("Kafka consumer stopped")

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("consumer group closed unexpectedly: %w", runErr)
	}
	return nil
}

// Status reports the consumer state for the admin API.
func (r *Runner) Status() models.QueueStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := models.QueueStatus{
		State:        r.State().String(),
		Topic:        r.cfg.Topic,
		DLQTopic:     r.cfg.DLQTopic,
		GroupID:      r.cfg.GroupID,
		Acked:        r.acked.Load(),
		Requeued:     r.requeued.Load(),
		DeadLettered: r.deadLettered.Load(),
		LastError:    r.lastErr,
	}
	if !r.lastProcessed.IsZero() {
		t := r.lastProcessed
		status.LastProcessedAt = &t
	}
	return status
}

func (r *Runner) markProcessed(at time.Time) {
	r.mu.Lock()
	r.lastProcessed = at
	r.mu.Unlock()
}

func (r *Runner) setLastError(err error) {
	r.mu.Lock()
	r.lastErr = err.Error()
	r.mu.Unlock()
}
