package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"campusattend/internal/attendance"
	"campusattend/internal/logging"
)

// Roles.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// HashPassword hashes with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserStore is the subset of the repository the auth flows need.
type UserStore interface {
	CreateUser(ctx context.Context, u attendance.User) (attendance.User, error)
	GetUserByUsername(ctx context.Context, username string) (*attendance.User, error)
}

// Authenticate returns the user when username and password match.
func Authenticate(ctx context.Context, users UserStore, username, password string) (*attendance.User, error) {
	u, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Register creates a user with a hashed password.
func Register(ctx context.Context, users UserStore, username, password, role string) (attendance.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return attendance.User{}, err
	}
	return users.CreateUser(ctx, attendance.User{Username: username, PasswordHash: hash, Role: role})
}

// EnsureAdmin creates the bootstrap admin account unless it already exists.
func EnsureAdmin(ctx context.Context, users UserStore, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	existing, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if _, err := Register(ctx, users, username, password, RoleAdmin); err != nil && !errors.Is(err, attendance.ErrDuplicate) {
		return err
	}
	logging.FromContext(ctx).Info("admin account created", "username", username)
	return nil
}
