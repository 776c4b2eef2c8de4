package reservation

import (
	"sort"

	"github.com/google/uuid"
)

// ExpiringSoonThreshold is how close to expiry a hold counts as expiring soon
const ExpiringSoonThreshold = 60

// HoldSeat is a read model of seats temporarily held by one user
type HoldSeat struct {
	ScheduleID uuid.UUID   `json:"schedule_id"`
	SeatIDs    []uuid.UUID `json:"seat_ids"`
	UserID     uuid.UUID   `json:"user_id"`
	TTLSeconds int64       `json:"ttl_seconds"`
}

// IsExpired reports whether the hold has no time left
func (h HoldSeat) IsExpired() bool {
	return h.TTLSeconds <= 0
}

// IsExpiringSoon reports whether the hold expires within a minute
func (h HoldSeat) IsExpiringSoon() bool {
	return h.TTLSeconds > 0 && h.TTLSeconds <= ExpiringSoonThreshold
}

// NormalizeSeatIDs removes duplicates and sorts seat IDs.
// Sorted order gives every caller the same lock acquisition order.
func NormalizeSeatIDs(seatIDs []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(seatIDs))
	out := make([]uuid.UUID, 0, len(seatIDs))
	for _, id := range seatIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
