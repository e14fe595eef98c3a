package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"expectation-svc/middleware"
	"expectation-svc/models"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const (
	headerRetryCount       = "x-retry-count"
	headerDeadLetterReason = "x-dead-letter-reason"
	headerOriginalTopic    = "x-original-topic"
	headerOriginalOffset   = "x-original-offset"

	outcomeAck        = "ack"
	outcomeRequeue    = "requeue"
	outcomeDeadLetter = "dead_letter"
)

// handler implements sarama.ConsumerGroupHandler. Messages of one claim are
// processed one at a time.
type handler struct {
	runner     *Runner
	processor  Processor
	producer   sarama.SyncProducer
	dlqTopic   string
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger
}

func (h *handler) Setup(session sarama.ConsumerGroupSession) error {
	h.runner.advance(StateConsuming)
	h.logger.Info("Consumer session started",
		zap.String("member_id", session.MemberID()),
		zap.Int32("generation_id", session.GenerationID()),
	)
	return nil
}

func (h *handler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("Consumer session ended", zap.String("member_id", session.MemberID()))
	return nil
}

func (h *handler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(session, msg); err != nil {
				// Leaving the offset unmarked ends the session; the message is
				// delivered again once the group rejoins.
				h.runner.setLastError(err)
				h.runner.handlerFailed.Store(true)
				return err
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle processes msg on a context detached from the session so shutdown
// lets it finish, bounded by the message timeout.
func (h *handler) handle(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) error {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), saramaHeaderCarrierConsumer(msg.Headers))
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	logger := h.logger.With(
		zap.String("topic", msg.Topic),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	err := h.processor.Process(ctx, msg.Value)
	h.runner.markProcessed(time.Now().UTC())

	var outcome string
	switch {
	case err == nil:
		outcome = outcomeAck
	case models.IsDecodeError(err):
		if pubErr := h.deadLetter(msg, err); pubErr != nil {
			return pubErr
		}
		outcome = outcomeDeadLetter
	default:
		h.runner.setLastError(err)
		attempt := retryCount(msg.Headers) + 1
		if attempt > h.maxRetries {
			if pubErr := h.deadLetter(msg, fmt.Errorf("retries exhausted after %d attempts: %w", attempt, err)); pubErr != nil {
				return pubErr
			}
			outcome = outcomeDeadLetter
		} else {
			if pubErr := h.requeue(ctx, msg, attempt); pubErr != nil {
				logger.Error("Failed to requeue message", zap.Error(pubErr), zap.NamedError("cause", err))
				return pubErr
			}
			outcome = outcomeRequeue
		}
	}

	session.MarkMessage(msg, "")
	session.Commit()

	middleware.RecordMessageOutcome(outcome)
	switch outcome {
	case outcomeAck:
		h.runner.acked.Add(1)
		logger.Debug("Message acknowledged")
	case outcomeRequeue:
		h.runner.requeued.Add(1)
		logger.Warn("Message requeued", zap.Error(err), zap.Int("retry", retryCount(msg.Headers)+1))
	case outcomeDeadLetter:
		h.runner.deadLettered.Add(1)
		logger.Error("Message dead-lettered", zap.Error(err), zap.String("dlq_topic", h.dlqTopic))
	}
	return nil
}

// requeue republishes msg at the tail of its topic with an incremented retry
// counter.
func (h *handler) requeue(ctx context.Context, msg *sarama.ConsumerMessage, attempt int) error {
	headers := copyHeaders(msg.Headers)
	headers.Set(headerRetryCount, strconv.Itoa(attempt))
	otel.GetTextMapPropagator().Inject(ctx, &headers)

	_, _, err := h.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   msg.Topic,
		Key:     keyEncoder(msg.Key),
		Value:   sarama.ByteEncoder(msg.Value),
		Headers: []sarama.RecordHeader(headers),
	})
	if err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}
	return nil
}

func (h *handler) deadLetter(msg *sarama.ConsumerMessage, reason error) error {
	headers := copyHeaders(msg.Headers)
	headers.Set(headerDeadLetterReason, models.Truncate(reason.Error(), 1000))
	headers.Set(headerOriginalTopic, msg.Topic)
	headers.Set(headerOriginalOffset, strconv.FormatInt(msg.Offset, 10))

	_, _, err := h.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   h.dlqTopic,
		Key:     keyEncoder(msg.Key),
		Value:   sarama.ByteEncoder(msg.Value),
		Headers: []sarama.RecordHeader(headers),
	})
	if err != nil {
		return fmt.Errorf("failed to dead-letter message: %w", err)
	}
	return nil
}

func retryCount(headers []*sarama.RecordHeader) int {
	raw := saramaHeaderCarrierConsumer(headers).Get(headerRetryCount)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func copyHeaders(headers []*sarama.RecordHeader) saramaHeaderCarrier {
	out := make(saramaHeaderCarrier, 0, len(headers)+1)
	for _, h := range headers {
		if h == nil {
			continue
		}
		out = append(out, sarama.RecordHeader{Key: h.Key, Value: h.Value})
	}
	return out
}

func keyEncoder(key []byte) sarama.Encoder {
	if key == nil {
		return nil
	}
	return sarama.ByteEncoder(key)
}
