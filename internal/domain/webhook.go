package domain

// WebhookEventNote is delivered to the author's own hooks for every new
// note, in addition to the notification-reason events recipients get.
const WebhookEventNote = "note"

// Webhook is a local actor's registered delivery target for events.
type Webhook struct {
	ID      string   `json:"id"`
	ActorID string   `json:"actorId"`
	URL     string   `json:"url"`
	Secret  string   `json:"secret,omitempty"`
	On      []string `json:"on"`
	Active  bool     `json:"active"`
}

// Subscribed reports whether the webhook wants the given event kind.
func (w *Webhook) Subscribed(event string) bool {
	for _, e := range w.On {
		if e == event {
			return true
		}
	}
	return false
}

// Instance is the per-host federation record.
type Instance struct {
	Host                    string `json:"host"`
	IsBlocked               bool   `json:"isBlocked"`
	NotesCount              int64  `json:"notesCount"`
	LatestRequestReceivedAt *int64 `json:"latestRequestReceivedAt,omitempty"`
}
