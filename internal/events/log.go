package events

import (
	"context"
	"log/slog"
)

// LogPublisher используется, когда брокер не настроен
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, key string, data any) error {
	p.log.Info("event published", slog.String("event", key), slog.Any("data", data))
	return nil
}
