package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/identity"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRevoker struct {
	mock.Mock
}

func (m *mockRevoker) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func TestUserService_Register(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewUserService(repo, new(mockRevoker), zap.NewNop())

	repo.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	dto, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  New@Example.com ",
		Password: testPassword,
		Name:     "New Fan",
		Nickname: "newbie",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", dto.Email)
	assert.Equal(t, string(identity.UserStatusActive), dto.Status)
	repo.AssertExpectations(t)
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewUserService(repo, new(mockRevoker), zap.NewNop())
	repo.On("ExistsByEmail", mock.Anything, "fan@example.com").Return(true, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "fan@example.com", Password: testPassword, Name: "Kim", Nickname: "k",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_Register_InvalidPassword(t *testing.T) {
	svc := NewUserService(new(MockUserRepository), new(mockRevoker), zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "fan@example.com", Password: "short", Name: "Kim", Nickname: "k",
	})
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_PASSWORD", de.Code)
}

func TestUserService_UpdateMe(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewUserService(repo, new(mockRevoker), zap.NewNop())
	user := createTestUser(t)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	nickname := "superfan"
	dto, err := svc.UpdateMe(context.Background(), user.ID, UpdateProfileInput{Nickname: &nickname})
	require.NoError(t, err)
	assert.Equal(t, "superfan", dto.Nickname)
	assert.Equal(t, "Kim Fan", dto.Name)
}

func TestUserService_ChangePassword_WrongCurrent(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewUserService(repo, new(mockRevoker), zap.NewNop())
	user := createTestUser(t)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	err := svc.ChangePassword(context.Background(), user.ID, ChangePasswordInput{
		CurrentPassword: "not-the-password",
		NewPassword:     "another-password",
	})
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_PASSWORD", de.Code)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_Delete_RevokesTokens(t *testing.T) {
	repo := new(MockUserRepository)
	revoker := new(mockRevoker)
	svc := NewUserService(repo, revoker, zap.NewNop())
	user := createTestUser(t)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)
	revoker.On("RevokeAll", mock.Anything, user.ID).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), user.ID, testPassword))
	assert.True(t, user.IsDeleted())
	revoker.AssertExpectations(t)

	_, err := svc.GetMe(context.Background(), user.ID)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "USER_DELETED", de.Code)
}

func TestUserService_Delete_RevokeFailure(t *testing.T) {
	repo := new(MockUserRepository)
	revoker := new(mockRevoker)
	svc := NewUserService(repo, revoker, zap.NewNop())
	user := createTestUser(t)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)
	revoker.On("RevokeAll", mock.Anything, user.ID).Return(errors.New("redis down"))

	assert.Error(t, svc.Delete(context.Background(), user.ID, testPassword))
}
