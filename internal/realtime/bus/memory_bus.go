package bus

import (
  "context"
  "sync"

  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/realtime"
)

type memoryBus struct {
  log    *logger.Logger
  mu     sync.Mutex
  subs   []func(m realtime.Message)
  closed bool
}

func NewMemoryBus(log *logger.Logger) Bus {
  return &memoryBus{log: log.With("service", "MemoryEventBus")}
}

func (b *memoryBus) Publish(ctx context.Context, msg realtime.Message) error {
  b.mu.Lock()
  subs := make([]func(m realtime.Message), len(b.subs))
  copy(subs, b.subs)
  closed := b.closed
  b.mu.Unlock()
  if closed {
    return nil
  }
  for _, fn := range subs {
    fn(msg)
  }
  return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
  b.mu.Lock()
  defer b.mu.Unlock()
  b.subs = append(b.subs, onMsg)
  return nil
}

func (b *memoryBus) Close() error {
  b.mu.Lock()
  defer b.mu.Unlock()
  b.closed = true
  b.subs = nil
  return nil
}
