package identity

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roovies/concert-reservation/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusDeleted UserStatus = "DELETED"
)

// Password cost for bcrypt
const bcryptCost = 12

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is a member who can reserve seats and pay with points
type User struct {
	shared.BaseAggregateRoot
	Email        string
	PasswordHash string
	Name         string
	Nickname     string
	Status       UserStatus
	DeletedAt    *time.Time
}

// NewUser registers a new active member
func NewUser(email, password, name, nickname string) (*User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateNickname(nickname); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		PasswordHash:      passwordHash,
		Name:              strings.TrimSpace(name),
		Nickname:          strings.TrimSpace(nickname),
		Status:            UserStatusActive,
	}, nil
}

// UpdateProfile changes name and/or nickname. Nil leaves the field unchanged.
func (u *User) UpdateProfile(name, nickname *string) error {
	if u.IsDeleted() {
		return shared.NewDomainError("USER_DELETED", "User has been deleted")
	}
	if name != nil {
		if err := validateName(*name); err != nil {
			return err
		}
		u.Name = strings.TrimSpace(*name)
	}
	if nickname != nil {
		if err := validateNickname(*nickname); err != nil {
			return err
		}
		u.Nickname = strings.TrimSpace(*nickname)
	}
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// ChangePassword verifies the current password and replaces it
func (u *User) ChangePassword(currentPassword, newPassword string) error {
	if !u.VerifyPassword(currentPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	if currentPassword == newPassword {
		return shared.NewDomainError("INVALID_PASSWORD", "New password must differ from the current one")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// VerifyPassword checks if the given password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Delete soft-deletes the member after confirming the password
func (u *User) Delete(password string) error {
	if u.IsDeleted() {
		return shared.NewDomainError("USER_DELETED", "User has already been deleted")
	}
	if !u.VerifyPassword(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password is incorrect")
	}
	now := time.Now()
	u.Status = UserStatusDeleted
	u.DeletedAt = &now
	u.UpdatedAt = now
	u.IncrementVersion()
	return nil
}

// IsDeleted returns true if the user was soft-deleted
func (u *User) IsDeleted() bool {
	return u.Status == UserStatusDeleted || u.DeletedAt != nil
}

// CanLogin returns true if the user may authenticate
func (u *User) CanLogin() bool {
	return u.Status == UserStatusActive && u.DeletedAt == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	// bcrypt ignores input past 72 bytes
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 50 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 50 characters")
	}
	return nil
}

func validateNickname(nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return shared.NewDomainError("INVALID_NICKNAME", "Nickname cannot be empty")
	}
	if utf8.RuneCountInString(nickname) > 30 {
		return shared.NewDomainError("INVALID_NICKNAME", "Nickname cannot exceed 30 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
