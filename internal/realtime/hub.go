// Package realtime carries store change signals between writers and the live
// queries that watch them.
package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Hub fans out change signals per topic. A signal carries no payload;
// subscribers reload their query.
type Hub interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription delivers coalesced change signals until closed.
type Subscription interface {
	C() <-chan struct{}
	Close() error
}

func CollegeNoticesTopic(collegeID uuid.UUID) string {
	return fmt.Sprintf("notices:college:%s", collegeID)
}

func ProfileTopic(userID uuid.UUID) string {
	return fmt.Sprintf("profiles:user:%s", userID)
}

// notify performs a non-blocking send on a one-slot channel, so bursts of
// signals collapse into a single pending reload.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
