package idgen

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)

	minULIDTime = ulid.Time(0)
	maxULIDTime = ulid.Time(ulid.MaxTime())
)

// NewMessageID returns a sortable id for messages the server did not number.
// Times a ULID cannot encode are replaced by the current time.
func NewMessageID(at time.Time) (string, error) {
	if at.Before(minULIDTime) || at.After(maxULIDTime) {
		at = time.Now()
	}

	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(at), entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate message id: %w", err)
	}
	return id.String(), nil
}

// NewRequestID tags one outgoing API call.
func NewRequestID() string {
	return uuid.NewString()
}
