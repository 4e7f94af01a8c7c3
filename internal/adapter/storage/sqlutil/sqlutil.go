package sqlutil

import (
	"database/sql"
	"errors"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leporo/sqlf"
	"github.com/r3labs/diff"
	"strings"
	"sync"
)

// BaseStorage keeps track of aggregates touched during a unit of work,
// so their events can be published once it succeeds.
type BaseStorage struct {
	DB     storage.DBContext
	seenMu sync.Mutex
	seen   []domain.EventSource
}

func NewBaseStorage(db storage.DBContext) *BaseStorage {
	return &BaseStorage{
		DB: db,
	}
}

func (s *BaseStorage) MarkSeen(src domain.EventSource) {
	s.seenMu.Lock()
	s.seen = append(s.seen, src)
	s.seenMu.Unlock()
}

func (s *BaseStorage) CollectEvents() []domain.Event {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	var events []domain.Event
	for _, src := range s.seen {
		events = append(events, src.PopEvents()...)
	}
	s.seen = nil
	return events
}

func (s *BaseStorage) Close() {
	s.seenMu.Lock()
	s.seen = nil
	s.seenMu.Unlock()
}

// ViolatesUnique reports whether err is a unique constraint violation on table.column.
// Postgres is matched by the default constraint name, sqlite by its error message.
func ViolatesUnique(err error, table, column string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation &&
			pgErr.ConstraintName == table+"_"+column+"_key"
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed: "+table+"."+column)
}

func ViolatesForeignKey(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.ForeignKeyViolation
	}

	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// MakeUpdateQuery adds a SET clause for every changed top level field.
// Field paths come from diff struct tags and must match column names.
func MakeUpdateQuery(stmt *sqlf.Stmt, updates diff.Changelog) *sqlf.Stmt {
	for _, upd := range updates {
		if upd.Type != "update" {
			panic("invalid update type " + upd.Type)
		}
		if len(upd.Path) > 1 {
			panic("cannot process updates in nested structures")
		}

		stmt = stmt.Set(upd.Path[0], upd.To)
	}
	return stmt
}

func AssertUpdated(res sql.Result, err error, notUpdatedError error) error {
	if err != nil {
		return storage.InternalError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storage.InternalError(err)
	}

	if affected == 0 {
		return notUpdatedError
	}
	return nil
}
