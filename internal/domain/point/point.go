package point

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
)

// Unit is the smallest chargeable/rewardable point step in won
const Unit = 100

// RewardPercent of the original payment amount is credited back as points
const RewardPercent = 10

// Point is a user's point wallet. Version guards concurrent updates.
type Point struct {
	UserID    uuid.UUID
	Amount    valueobject.Amount
	Version   int
	UpdatedAt time.Time
}

// NewPoint creates an empty wallet for a user
func NewPoint(userID uuid.UUID) *Point {
	return &Point{
		UserID:    userID,
		Amount:    valueobject.ZeroAmount(),
		Version:   0,
		UpdatedAt: time.Now(),
	}
}

// Charge adds a positive multiple of 100 won
func (p *Point) Charge(amount valueobject.Amount) error {
	if !amount.IsMultipleOf(Unit) {
		return shared.NewDomainError("INVALID_AMOUNT", "Points can only be charged in units of 100 won")
	}
	return p.add(amount)
}

// Reward credits earned points; same unit rule as Charge
func (p *Point) Reward(amount valueobject.Amount) error {
	if !amount.IsMultipleOf(Unit) {
		return shared.NewDomainError("INVALID_AMOUNT", "Points can only be rewarded in units of 100 won")
	}
	return p.add(amount)
}

// Use spends points, failing when the balance is too low
func (p *Point) Use(amount valueobject.Amount) error {
	if amount.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount to use must be greater than 0")
	}
	if !p.Amount.GreaterThanOrEqual(amount) {
		return shared.ErrInsufficientBalance
	}
	next, err := p.Amount.Subtract(amount)
	if err != nil {
		return shared.ErrInsufficientBalance
	}
	p.Amount = next
	p.touch()
	return nil
}

// Refund returns at least 1 won of previously used points
func (p *Point) Refund(amount valueobject.Amount) error {
	if amount.Value() < 1 {
		return shared.NewDomainError("INVALID_AMOUNT", "Refund amount must be at least 1 won")
	}
	return p.add(amount)
}

func (p *Point) add(amount valueobject.Amount) error {
	next, err := p.Amount.Add(amount)
	if err != nil {
		return shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}
	p.Amount = next
	p.touch()
	return nil
}

func (p *Point) touch() {
	p.UpdatedAt = time.Now()
	p.Version++
}

// RewardFor computes the reward for a payment: 10% of the original amount floored to 100 won
func RewardFor(originalAmount valueobject.Amount) valueobject.Amount {
	return originalAmount.PercentFloor(RewardPercent, Unit)
}
