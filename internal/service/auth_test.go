package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"cropscan/internal/auth"
	"cropscan/internal/model"
	repoMocks "cropscan/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	tokens := auth.NewTokenManager([]byte("test-secret"), 30*time.Minute)

	t.Run("happy path", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByUsername", ctx, "alice").Return(nil, sql.ErrNoRows)
		mRepo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
			return u.Username == "alice" &&
				u.PasswordHash != "" && u.PasswordHash != "pw" && u.ID != ""
		})).Return(&model.User{ID: "gen-id", Username: "alice"}, nil)

		svc := NewAuthService(mRepo, tokens)
		user, err := svc.Register(ctx, "alice", "pw")

		require.NoError(t, err)
		assert.Equal(t, "gen-id", user.ID)
		mRepo.AssertExpectations(t)
	})

	t.Run("username taken", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByUsername", ctx, "alice").
			Return(&model.User{ID: "existing", Username: "alice"}, nil)

		svc := NewAuthService(mRepo, tokens)
		_, err := svc.Register(ctx, "alice", "pw")

		assert.ErrorIs(t, err, ErrUsernameTaken)
		mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("empty credentials", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		svc := NewAuthService(mRepo, tokens)

		_, err := svc.Register(ctx, "", "pw")
		assert.Error(t, err)
		_, err = svc.Register(ctx, "alice", "")
		assert.Error(t, err)
	})

	t.Run("lookup error", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByUsername", ctx, "alice").Return(nil, errors.New("db down"))

		svc := NewAuthService(mRepo, tokens)
		_, err := svc.Register(ctx, "alice", "pw")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrUsernameTaken)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	tokens := auth.NewTokenManager([]byte("test-secret"), 30*time.Minute)

	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	stored := &model.User{ID: "u-1", Username: "alice", PasswordHash: hash}

	t.Run("happy path issues verifiable token", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByUsername", ctx, "alice").Return(stored, nil)

		svc := NewAuthService(mRepo, tokens)
		token, err := svc.Login(ctx, "alice", "correct-horse")
		require.NoError(t, err)

		subject, err := tokens.Verify(token, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "alice", subject)
	})

	t.Run("unknown user", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByUsername", ctx, "nobody").Return(nil, sql.ErrNoRows)

		svc := NewAuthService(mRepo, tokens)
		_, err := svc.Login(ctx, "nobody", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByUsername", ctx, "alice").Return(stored, nil)

		svc := NewAuthService(mRepo, tokens)
		_, err := svc.Login(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("lookup error", func(t *testing.T) {
		mRepo := new(repoMocks.MockUserRepository)
		mRepo.On("FindByUsername", ctx, "alice").Return(nil, errors.New("db down"))

		svc := NewAuthService(mRepo, tokens)
		_, err := svc.Login(ctx, "alice", "correct-horse")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	// Register/login round trip against an in-memory repository stand-in.
	ctx := context.Background()
	tokens := auth.NewTokenManager([]byte("test-secret"), 30*time.Minute)

	var saved *model.User
	mRepo := new(repoMocks.MockUserRepository)
	mRepo.On("FindByUsername", ctx, "bob").Return(nil, sql.ErrNoRows).Once()
	mRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*model.User)
	}).Return(&model.User{ID: "u-2", Username: "bob"}, nil)

	svc := NewAuthService(mRepo, tokens)
	_, err := svc.Register(ctx, "bob", "hunter2")
	require.NoError(t, err)
	require.NotNil(t, saved)

	mRepo.On("FindByUsername", ctx, "bob").
		Return(&model.User{ID: "u-2", Username: "bob", PasswordHash: saved.PasswordHash}, nil)

	token, err := svc.Login(ctx, "bob", "hunter2")
	require.NoError(t, err)

	subject, err := tokens.Verify(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "bob", subject)
}
