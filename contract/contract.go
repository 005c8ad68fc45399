//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"streamroom/domain/chat"
	"streamroom/runtime"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself. It runs until its context is cancelled or
// it fails; supervision (restart, panic recovery) lives elsewhere.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes, avoiding manual naming in the
// Worker interface.
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

// IChatService is the facade the transport layer talks to. It hides the
// registry, history and bus behind the three operations a session needs.
type IChatService interface {
	// Join atomically claims the username and returns the live
	// subscription plus the history snapshot to replay, in order.
	Join(username string) (*runtime.Subscription, []chat.Message, error)
	// Leave publishes the departure, cancels the subscription and
	// releases the username. Safe to call exactly once per joined session
	// regardless of how the session ended.
	Leave(username string, sub *runtime.Subscription)
	// Publish broadcasts a message to every current subscriber and
	// records it in the history ring.
	Publish(msg chat.Message)
	// Participants lists the active usernames, sorted.
	Participants() []string
}
