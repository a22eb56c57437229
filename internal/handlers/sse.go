package handlers

import (
  "encoding/json"
  "fmt"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/requestdata"
  "github.com/reefspotter/backend/internal/sse"
)

type SSEHandler struct {
  log *logger.Logger
  hub *sse.Hub
}

func NewSSEHandler(log *logger.Logger, hub *sse.Hub) *SSEHandler {
  return &SSEHandler{log: log.With("handler", "SSEHandler"), hub: hub}
}

// Stream pushes unlock events for the logged-in account until the client
// disconnects.
func (sh *SSEHandler) Stream(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "auth_required", fmt.Errorf("not logged in"))
    return
  }

  client := sh.hub.NewClient(rd.UserID)
  sh.hub.AddChannel(client, "user:"+rd.UserID.String())
  defer sh.hub.RemoveClient(client)

  c.Writer.Header().Set("Content-Type", "text/event-stream")
  c.Writer.Header().Set("Cache-Control", "no-cache")
  c.Writer.Header().Set("Connection", "keep-alive")
  c.Writer.Flush()

  ctx := c.Request.Context()
  for {
    select {
    case <-ctx.Done():
      return
    case <-client.Done():
      return
    case msg := <-client.Outbound:
      payload, err := json.Marshal(msg)
      if err != nil {
        sh.log.Warn("Failed to marshal SSE message", "error", err)
        continue
      }
      fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.Event, payload)
      c.Writer.Flush()
    }
  }
}
