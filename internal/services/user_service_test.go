package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamyadav31/BOT-GPT/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterValidation(t *testing.T) {
	gdb, _ := newMockDB(t)
	service := NewUserService(gdb)

	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"missing name", CreateUserRequest{Email: "a@b.com", Password: "secret123"}},
		{"bad email", CreateUserRequest{Name: "alice", Email: "not-an-email", Password: "secret123"}},
		{"short password", CreateUserRequest{Name: "alice", Email: "a@b.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
		})
	}
}

func TestRegisterSuccess(t *testing.T) {
	gdb, mock := newMockDB(t)
	service := NewUserService(gdb)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	user, err := service.Register(context.Background(), CreateUserRequest{
		Name:     "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, uint(1), user.ID)
	assert.Equal(t, "alice", user.Name)
	// 密码以bcrypt散列存储
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticate(t *testing.T) {
	gdb, mock := newMockDB(t)
	service := NewUserService(gdb)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	userRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
			AddRow(1, "alice", "alice@example.com", string(hash), time.Now())
	}

	t.Run("correct password", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows())

		user, err := service.Authenticate(context.Background(), LoginRequest{
			Email:    "alice@example.com",
			Password: "secret123",
		})
		require.NoError(t, err)
		assert.Equal(t, uint(1), user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows())

		_, err := service.Authenticate(context.Background(), LoginRequest{
			Email:    "alice@example.com",
			Password: "wrong-password",
		})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
	})

	t.Run("unknown email", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash"}))

		_, err := service.Authenticate(context.Background(), LoginRequest{
			Email:    "nobody@example.com",
			Password: "whatever",
		})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
	})
}

func TestGetUserNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	service := NewUserService(gdb)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	_, err := service.GetUser(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeResourceNotFound))
}
