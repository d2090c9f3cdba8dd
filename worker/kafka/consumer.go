package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

type MessageHandler func(ctx context.Context, msg *JobMessage) error

// JobMessage mirrors the producer-side message in api/kafka.
type JobMessage struct {
	JobID            string `json:"job_id"`
	TraceID          string `json:"trace_id"`
	FilePath         string `json:"file_path"`
	OutputDir        string `json:"output_dir"`
	MinZoom          int    `json:"min_zoom"`
	MaxZoom          int    `json:"max_zoom"`
	TileSize         int    `json:"tile_size"`
	Profile          string `json:"profile,omitempty"`
	Resampling       string `json:"resampling"`
	Processes        int    `json:"processes"`
	ForceWebMercator bool   `json:"force_webmercator"`
	WebViewer        bool   `json:"web_viewer"`
}

type Consumer struct {
	consumer sarama.ConsumerGroup
}

func NewConsumer(brokers []string, groupID string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c}, nil
}

type consumerHandler struct {
	fn  MessageHandler
	ctx context.Context
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var jobMsg JobMessage
		if err := json.Unmarshal(msg.Value, &jobMsg); err != nil {
			session.MarkMessage(msg, "")
			continue
		}
		h.fn(h.ctx, &jobMsg)
		session.MarkMessage(msg, "")
	}
	return nil
}

func (c *Consumer) Consume(ctx context.Context, topic string, handler MessageHandler) error {
	h := &consumerHandler{fn: handler, ctx: ctx}
	return c.consumer.Consume(ctx, []string{topic}, h)
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
