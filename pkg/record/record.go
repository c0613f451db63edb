// Package record persists chat exchange transcripts. A Recorder stores one
// Exchange per completed (or failed) call; implementations live in the
// memory and postgres subpackages.
package record

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/frage-dev/frage/pkg/api"
)

// Sentinel errors for recorder operations.
var (
	// ErrNotFound is returned when an exchange does not exist.
	ErrNotFound = errors.New("exchange not found")

	// ErrConflict is returned when an exchange with the given ID already exists.
	ErrConflict = errors.New("exchange already exists")
)

// Exchange is the transcript of one completion call.
type Exchange struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"created_at"`
	Model        string        `json:"model"`
	Messages     []api.Message `json:"messages"`
	Response     string        `json:"response"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        *api.Usage    `json:"usage,omitempty"`
	Streamed     bool          `json:"streamed"`
	Error        string        `json:"error,omitempty"`
}

// Recorder stores exchange transcripts.
type Recorder interface {
	// Save persists an exchange. Returns ErrConflict if the ID exists.
	Save(ctx context.Context, ex *Exchange) error

	// Get retrieves an exchange by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Exchange, error)

	// List returns the most recent exchanges, newest first, up to limit.
	// A limit of 0 means no limit.
	List(ctx context.Context, limit int) ([]*Exchange, error)

	// Delete removes an exchange by ID. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Close releases recorder resources.
	Close() error
}

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	exchangeIDPrefix = "exch_"
)

// NewExchangeID generates an exchange ID with the "exch_" prefix followed
// by 24 cryptographically random alphanumeric characters.
func NewExchangeID() string {
	b := make([]byte, idLength)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand read failure is unrecoverable.
			panic(err)
		}
		b[i] = charset[n.Int64()]
	}
	return exchangeIDPrefix + string(b)
}
