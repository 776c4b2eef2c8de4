package waiting

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// Defaults for the reservation waiting room
const (
	DefaultMaxPermits   = 100
	DefaultAdmissionTTL = 10 * time.Minute
	AdmittedTokenType   = "ADMITTED"
)

// UserKey identifies one waiting session of a user: "{userID}:{uuid}".
// A user may wait in several tabs; each gets its own key.
type UserKey string

// NewUserKey creates a fresh session key for userID
func NewUserKey(userID uuid.UUID) UserKey {
	return UserKey(userID.String() + ":" + uuid.NewString())
}

// UserID extracts the owner of the key
func (k UserKey) UserID() (uuid.UUID, error) {
	parts := strings.Split(string(k), ":")
	if len(parts) != 2 {
		return uuid.Nil, shared.NewDomainError("INVALID_USER_KEY", "Invalid user key")
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, shared.NewDomainError("INVALID_USER_KEY", "Invalid user key")
	}
	return id, nil
}

// BelongsTo validates that the key was issued to userID
func (k UserKey) BelongsTo(userID uuid.UUID) error {
	owner, err := k.UserID()
	if err != nil {
		return err
	}
	if owner != userID {
		return shared.NewDomainError("FORBIDDEN", "User key does not belong to the current user")
	}
	return nil
}

// String implements fmt.Stringer
func (k UserKey) String() string {
	return string(k)
}

// Entry is a queued session with its enqueue score (unix millis)
type Entry struct {
	UserKey UserKey
	Score   float64
}

// Position is a session's place in line. Rank is 0-based and nil when the
// session is no longer queued.
type Position struct {
	UserKey      UserKey
	Rank         *int64
	TotalWaiting int64
}

// DisplayRank returns the 1-based rank, or 0 when not queued
func (p Position) DisplayRank() int64 {
	if p.Rank == nil {
		return 0
	}
	return *p.Rank + 1
}

// EnterResult is the outcome of joining the waiting room
type EnterResult struct {
	Admitted      bool
	AdmittedToken string
	UserKey       UserKey
	Rank          int64
	TotalWaiting  int64
}

// Admission is an issued admission token for a session
type Admission struct {
	ScheduleID uuid.UUID
	UserKey    UserKey
	Token      string
}
