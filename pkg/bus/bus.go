// Package bus distributes cell updates to every interested party.
//
// Every subscriber, including the publisher itself, sees every update in publish order.
// Subscriptions are buffered without bound so a publisher never waits for a slow subscriber.
package bus

import (
	"context"

	"github.com/pkg/errors"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("bus is closed")

// Update is the new value of a cell.
type Update[V any] struct {
	ID    string `json:"id"`
	Value V      `json:"value"`
}

// Bus is a multicast channel of cell updates.
type Bus[V any] interface {
	// Subscribe returns the stream of updates published from now on and a function releasing
	// the subscription. The stream is closed once the subscription is released or the bus is
	// closed.
	Subscribe() (<-chan Update[V], func())
	// Publish sends the update to every subscriber.
	Publish(ctx context.Context, update Update[V]) error
}
