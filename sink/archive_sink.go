// Package sink contains the event consumers fed by the fanout worker.
package sink

import (
	"context"
	"fmt"
	"log/slog"

	"huddle/domain/event"
	"huddle/repositories"
)

// Archive mirrors posted and removed messages into the Badger-backed
// archive repository.
type Archive struct {
	repository repositories.IArchiveRepository
	log        *slog.Logger
}

func NewArchive(repository repositories.IArchiveRepository, log *slog.Logger) Archive {
	return Archive{repository: repository, log: log}
}

func (a Archive) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		return a.repository.StoreMessage(repositories.ArchivedMessage{
			ID:      evt.ID,
			Channel: evt.Channel,
			Sender:  evt.Sender,
			Body:    evt.Body,
			At:      evt.At,
		})
	case event.MessageRemoved:
		return a.repository.DeleteMessage(evt.Channel, evt.ID)
	default:
		a.log.Debug(fmt.Sprintf("Not implemented event : %v", evt))
		return nil
	}
}
