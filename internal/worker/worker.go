package worker

import (
	"context"
	"encoding/json"
	"time"

	"nhanhsync/internal/config"
	"nhanhsync/internal/events"
	"nhanhsync/internal/logger"
	"nhanhsync/internal/worker/processors"

	"github.com/segmentio/kafka-go"
)

type Worker struct {
	config    *config.Config
	logger    *logger.Logger
	reader    *kafka.Reader
	processor *processors.EventProcessor
	done      chan struct{}
}

func New(cfg *config.Config, logger *logger.Logger, processor *processors.EventProcessor) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.KafkaBrokers},
		GroupID:        "nhanhsync-worker",
		Topic:          cfg.EventsTopic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config:    cfg,
		logger:    logger,
		reader:    reader,
		processor: processor,
		done:      make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.logger.Info("Worker started, listening for store events...")

	for {
		select {
		case <-w.done:
			w.logger.Info("Worker stopped")
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			select {
			case <-w.done:
				w.logger.Info("Worker stopped")
				return
			default:
			}
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		w.logger.Debug("Received message: %s", string(message.Value))

		var event events.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			w.logger.Error("Failed to parse event: %v", err)
			continue
		}

		if err := w.processor.Process(context.Background(), event); err != nil {
			w.logger.Error("Failed to process %s event for %s: %v", event.Type, event.EntityID, err)
			continue
		}

		w.logger.Debug("Event processed successfully")
	}
}

// Stop shuts the consumer down; Start returns once the reader is closed.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.done)
	w.reader.Close()
}
