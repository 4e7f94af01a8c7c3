package user

import (
	"errors"
	"fmt"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameDuplicate  = fmt.Errorf("%w: username is not unique", ErrUserExists)
	ErrEmailDuplicate     = fmt.Errorf("%w: email is not unique", ErrUserExists)
	ErrInvalidCredentials = errors.New("username or password is invalid")
)

const (
	EventCreated  = "user.created"
	EventNewLogin = "user.login"
	EventDeleted  = "user.deleted"
)

type Hasher interface {
	Hash(password string) string
	Compare(hash, password string) bool
}

type Device struct {
	Browser   string
	OS        string
	IPAddress string
	Model     string
}

type User struct {
	domain.Aggregate `diff:"-"`
	UserID           int64     `diff:"-"`
	Username         string    `diff:"username"`
	Email            string    `diff:"email"`
	PasswordHash     string    `diff:"password_hash"`
	CreatedAt        time.Time `diff:"-"`
	UpdatedAt        time.Time `diff:"updated_at"`
}

func NewUser(username, email, password string, hasher Hasher) *User {
	now := time.Now().UTC()
	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hasher.Hash(password),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.PushEvent(CreatedEvent{
		At:       now,
		Username: username,
		Email:    email,
	})
	return u
}

func (u *User) ChangeUsername(username string) {
	if username == "" || username == u.Username {
		return
	}
	u.Username = username
	u.touch()
}

func (u *User) ChangeEmail(email string) {
	if email == "" || email == u.Email {
		return
	}
	u.Email = email
	u.touch()
}

func (u *User) ChangePassword(hasher Hasher, password string) {
	if password == "" {
		return
	}
	u.PasswordHash = hasher.Hash(password)
	u.touch()
}

func (u *User) Login(hasher Hasher, password string, dev Device) error {
	if !hasher.Compare(u.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	u.PushEvent(LoginEvent{
		At:     time.Now().UTC(),
		UserID: u.UserID,
		Device: dev,
	})
	return nil
}

func (u *User) MarkDeleted() {
	u.PushEvent(DeletedEvent{
		At:     time.Now().UTC(),
		UserID: u.UserID,
	})
}

func (u *User) touch() {
	u.UpdatedAt = time.Now().UTC()
}

type CreatedEvent struct {
	At       time.Time
	Username string
	Email    string
}

func (e CreatedEvent) Type() string {
	return EventCreated
}

func (e CreatedEvent) PublishedAt() time.Time {
	return e.At
}

type LoginEvent struct {
	At     time.Time
	UserID int64
	Device Device
}

func (e LoginEvent) Type() string {
	return EventNewLogin
}

func (e LoginEvent) PublishedAt() time.Time {
	return e.At
}

type DeletedEvent struct {
	At     time.Time
	UserID int64
}

func (e DeletedEvent) Type() string {
	return EventDeleted
}

func (e DeletedEvent) PublishedAt() time.Time {
	return e.At
}
