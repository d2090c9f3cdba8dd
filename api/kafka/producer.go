package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

type Producer interface {
	SendJobMessage(ctx context.Context, topic string, message *JobMessage) error
	Close() error
}

// JobMessage carries everything the worker needs to run one conversion
// without consulting the API database first.
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

type producer struct {
	producer sarama.SyncProducer
}

func NewProducer(brokers []string) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &producer{producer: p}, nil
}

func (p *producer) SendJobMessage(ctx context.Context, topic string, message *JobMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(message.JobID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *producer) Close() error {
	return p.producer.Close()
}
