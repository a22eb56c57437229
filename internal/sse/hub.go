package sse

import (
  "strings"
  "sync"
  "github.com/google/uuid"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/realtime"
)

type Client struct {
  ID       uuid.UUID
  UserID   uuid.UUID
  Channels map[string]bool
  Outbound chan realtime.Message
  done     chan struct{}
  once     sync.Once
}

func (c *Client) Done() <-chan struct{} {
  return c.done
}

func (c *Client) Close() {
  c.once.Do(func() {
    close(c.done)
  })
}

// Hub routes bus messages to connected SSE clients by channel name
// ("user:<uuid>"). Slow clients are skipped rather than blocking the
// forwarder.
type Hub struct {
  mu            sync.RWMutex
  logger        *logger.Logger
  subscriptions map[string]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
  return &Hub{
    logger:        log.With("component", "SSEHub"),
    subscriptions: make(map[string]map[*Client]bool),
  }
}

func (hub *Hub) NewClient(userID uuid.UUID) *Client {
  return &Client{
    ID:       uuid.New(),
    UserID:   userID,
    Channels: make(map[string]bool),
    Outbound: make(chan realtime.Message, 16),
    done:     make(chan struct{}),
  }
}

func (hub *Hub) AddChannel(client *Client, channel string) {
  hub.mu.Lock()
  defer hub.mu.Unlock()

  channel = strings.TrimSpace(channel)
  if channel == "" {
    return
  }

  client.Channels[channel] = true

  clients, exists := hub.subscriptions[channel]
  if !exists {
    clients = make(map[*Client]bool)
    hub.subscriptions[channel] = clients
  }
  clients[client] = true

  hub.logger.Debug("SSE client subscribed", "clientID", client.ID, "channel", channel)
}

func (hub *Hub) RemoveClient(client *Client) {
  hub.mu.Lock()
  defer hub.mu.Unlock()

  for channel := range client.Channels {
    if clients, ok := hub.subscriptions[channel]; ok {
      delete(clients, client)
      if len(clients) == 0 {
        delete(hub.subscriptions, channel)
      }
    }
  }
  client.Close()
}

func (hub *Hub) Publish(msg realtime.Message) {
  hub.mu.RLock()
  defer hub.mu.RUnlock()

  clients, ok := hub.subscriptions[msg.Channel]
  if !ok {
    return
  }
  for client := range clients {
    select {
    case client.Outbound <- msg:
    default:
      hub.logger.Warn("Dropping SSE message for slow client", "clientID", client.ID, "channel", msg.Channel)
    }
  }
}
