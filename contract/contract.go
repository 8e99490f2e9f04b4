//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// The supervisor restarts it when it panics or fails
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision.
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

// EventSink receives every appended event after it has been fanned out to
// the live connections. Sinks are fed asynchronously and never slow down the hub.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry binds connections to identities and counts how many
// connections share each identity.
type IRegistry interface {
	Bind(connectionID domain.ConnectionID, identity domain.Identity) error
	Unbind(connectionID domain.ConnectionID) (domain.Identity, bool)
	DistinctIdentities() []domain.Identity
	Count(identity domain.Identity) int
	Len() int
}

// TextFilter rewrites chat text before it is appended.
// It returns the rewritten text and the dictionary words that matched.
type TextFilter interface {
	Censor(text string) (string, []string)
}

// EventArchive indexes appended events for history queries.
type EventArchive interface {
	Store(e event.Event) error
	Range(from uint64, limit int) ([]event.Event, error)
	History(identity domain.Identity, limit int) ([]event.Event, error)
}
