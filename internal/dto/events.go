package dto

// MailMessage is a rendered email. It travels as the Kafka payload between
// the API and the mail worker.
type MailMessage struct {
	NotificationID string `json:"notification_id"`
	Kind           string `json:"kind"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	HTML           string `json:"html"`
}

// SocketEvent is one frame pushed to websocket clients.
type SocketEvent struct {
	Event     string `json:"event"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SocketInbound is a frame sent by a websocket client.
type SocketInbound struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}
