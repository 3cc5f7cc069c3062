package interfaces

import (
	"context"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
)

// Mailer delivers a rendered email. Implementations either send it directly
// or hand it to a queue.
type Mailer interface {
	Send(ctx context.Context, msg dto.MailMessage) error
}

// QueueingMailer is implemented by mailers that only enqueue; the dispatch
// record is then left as queued rather than sent.
type QueueingMailer interface {
	Mailer
	Queues() bool
}

// Broadcaster pushes realtime events to connected socket clients.
type Broadcaster interface {
	NotifyUser(userID uint, event string, data any)
	NotifyRole(role string, event string, data any)
	Broadcast(event string, data any)
}

// Uploader stores an already normalised image under folder/filename and
// returns its public HTTPS URL. Uploading to an existing name replaces it.
type Uploader interface {
	UploadBytes(ctx context.Context, folder, filename string, image []byte) (url string, err error)
}
