package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Broker defines the interface for the live-sync transport. It provides no
// delivery guarantee for disconnected subscribers; consumers must backfill
// from the store on (re)connect.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// RecipientChannel returns the broker channel carrying one recipient's
// notification pushes.
func RecipientChannel(recipientID uuid.UUID) string {
	return fmt.Sprintf("notifications:user:%s", recipientID)
}
