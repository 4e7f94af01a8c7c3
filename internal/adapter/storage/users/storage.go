package userstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage/sqlutil"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"github.com/burenotti/go_bmi_backend/internal/domain/user"
	"github.com/leporo/sqlf"
	"github.com/r3labs/diff"
	"log/slog"
	"time"
)

type Storage struct {
	base   *sqlutil.BaseStorage
	logger *slog.Logger
}

func NewStorage(db storage.DBContext, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		base:   sqlutil.NewBaseStorage(db),
		logger: logger,
	}
}

func (s *Storage) Add(ctx context.Context, u *user.User) error {
	q := sqlf.InsertInto("users").
		Set("username", u.Username).
		Set("email", u.Email).
		Set("password_hash", u.PasswordHash).
		Set("created_at", u.CreatedAt).
		Set("updated_at", u.UpdatedAt).
		Returning("user_id").To(&u.UserID)

	if err := q.QueryRowAndClose(ctx, s.base.DB); err != nil {
		return duplicateOrInternal(err)
	}

	s.base.MarkSeen(u)
	return nil
}

func (s *Storage) get(
	ctx context.Context,
	modify func(stmt *sqlf.Stmt),
) ([]*user.User, error) {
	var tmp userRow

	q := sqlf.From("users u").
		Select("u.user_id").To(&tmp.UserID).
		Select("u.username").To(&tmp.Username).
		Select("u.email").To(&tmp.Email).
		Select("u.password_hash").To(&tmp.PasswordHash).
		Select("u.created_at").To(&tmp.CreatedAt).
		Select("u.updated_at").To(&tmp.UpdatedAt)

	modify(q)

	var users []*user.User
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		users = append(users, tmp.toDomain())
	})

	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return users, nil
	}
	return nil, storage.InternalError(err)
}

func (s *Storage) getOne(ctx context.Context, where string, args ...any) (*user.User, error) {
	u, err := s.first(ctx, where, args...)
	if err != nil {
		return nil, err
	}

	s.base.MarkSeen(u)
	return u, nil
}

func (s *Storage) first(ctx context.Context, where string, args ...any) (*user.User, error) {
	users, err := s.get(ctx, func(stmt *sqlf.Stmt) {
		stmt.Where(where, args...).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, user.ErrUserNotFound
	}
	return users[0], nil
}

func (s *Storage) GetByID(ctx context.Context, userID int64) (*user.User, error) {
	return s.getOne(ctx, "u.user_id = ?", userID)
}

func (s *Storage) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.getOne(ctx, "u.email = ?", email)
}

func (s *Storage) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getOne(ctx, "u.username = ?", username)
}

// Exists reports whether a user with the username or the email is already registered.
func (s *Storage) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int
	q := sqlf.From("users").
		Select("COUNT(*)").To(&count).
		Where("(username = ? OR email = ?)", username, email)

	if err := q.QueryRowAndClose(ctx, s.base.DB); err != nil {
		return false, storage.InternalError(err)
	}
	return count > 0, nil
}

func (s *Storage) List(ctx context.Context, limit, offset int) ([]*user.User, error) {
	return s.get(ctx, func(stmt *sqlf.Stmt) {
		stmt.OrderBy("u.user_id").Limit(limit).Offset(offset)
	})
}

// Persist writes only the columns that differ from the stored row.
func (s *Storage) Persist(ctx context.Context, u *user.User) error {
	dbState, err := s.first(ctx, "u.user_id = ?", u.UserID)
	if err != nil {
		return err
	}

	changes, err := diff.Diff(dbState, u)
	if err != nil {
		return storage.InternalError(err)
	}
	if len(changes) == 0 {
		return nil
	}
	s.logger.Debug("persisting user", "user_id", u.UserID, "changed_fields", len(changes))

	q := sqlf.Update("users").Where("user_id = ?", u.UserID)
	q = sqlutil.MakeUpdateQuery(q, changes)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	if err != nil {
		return duplicateOrInternal(err)
	}
	if err := sqlutil.AssertUpdated(res, nil, user.ErrUserNotFound); err != nil {
		return fmt.Errorf("can't persist user: %w", err)
	}

	s.base.MarkSeen(u)
	return nil
}

func (s *Storage) Delete(ctx context.Context, u *user.User) error {
	q := sqlf.DeleteFrom("users").Where("user_id = ?", u.UserID)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	if err := sqlutil.AssertUpdated(res, err, user.ErrUserNotFound); err != nil {
		return err
	}

	s.base.MarkSeen(u)
	return nil
}

func (s *Storage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

func (s *Storage) Close() error {
	s.base.Close()
	return nil
}

func duplicateOrInternal(err error) error {
	switch {
	case sqlutil.ViolatesUnique(err, "users", "username"):
		return errors.Join(fmt.Errorf("user exists: %w", err), user.ErrUsernameDuplicate)
	case sqlutil.ViolatesUnique(err, "users", "email"):
		return errors.Join(fmt.Errorf("user exists: %w", err), user.ErrEmailDuplicate)
	default:
		return storage.InternalError(err)
	}
}

type userRow struct {
	UserID       int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *userRow) toDomain() *user.User {
	return &user.User{
		UserID:       r.UserID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}
