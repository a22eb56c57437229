package bus

import (
  "context"
  "os"
  "strings"

  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/realtime"
)

// Bus fans unlock events out to SSE forwarders. Redis pub/sub when
// REDIS_ADDR is set (multi-instance deployments), otherwise an in-process
// channel.
type Bus interface {
  Publish(ctx context.Context, msg realtime.Message) error
  StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
  Close() error
}

func NewBus(log *logger.Logger) (Bus, error) {
  if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
    return NewRedisBus(log)
  }
  return NewMemoryBus(log), nil
}
