package appointment

import (
	"context"

	"github.com/byigitt/visa-checker/internal/domain/notification"
)

// SeenStore tracks which appointment states have already been observed.
// Implementations live in infra/seen/.
type SeenStore interface {
	// Touch increments and returns the sighting count for a key. A count of 1
	// means this state has not been seen within the store's TTL.
	Touch(ctx context.Context, key string) (int64, error)
}

// Source fetches the current appointment list from the upstream API.
// Implementations live in infra/visaapi/.
type Source interface {
	List(ctx context.Context) ([]Appointment, error)
}

// Notifier delivers a rendered notification for a matching slot.
// Satisfied by the notification.Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, ev *notification.Event) (bool, error)
}
