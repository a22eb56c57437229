package realtime

type Event string

const (
  EventUnlockToggled       Event = "UnlockToggled"
  EventGuestProgressMerged Event = "GuestProgressMerged"
)

type Message struct {
  Channel string `json:"channel"`
  Event   Event  `json:"event"`
  Data    any    `json:"data,omitempty"`
}
