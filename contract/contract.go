package contract

import (
	"context"
	"reflect"

	"huddle/domain"
	"huddle/domain/event"
)

// Directory is the user/channel collaborator the core queries for
// identity, membership, ownership and global-owner status. The core calls
// these primitives but does not own the data behind them.
type Directory interface {
	ValidateSession(token string) (domain.UserID, error)
	ChannelExists(channel domain.ChannelID) bool
	ChannelMembers(channel domain.ChannelID) domain.UserSet
	ChannelOwners(channel domain.ChannelID) domain.UserSet
	IsGlobalOwner(user domain.UserID) bool
	HandleOf(user domain.UserID) string
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}
