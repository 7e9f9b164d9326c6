// SPDX-License-Identifier: AGPL-3.0-only

// Package oltpid generates per-call diagnostic trace ids, attached to log
// lines and tracing spans for a single planning or scheduling call so an
// operator can correlate the lines and spans of that one call, which a
// transaction id shared by several planning calls would not tell apart.
// Grounded on storegateway's use of ulid for block
// identity in this codebase's family: a ulid is lexicographically sortable
// by creation time, which makes log lines naturally time-ordered.
package oltpid

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a fresh, time-sortable trace id as a string.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
