package apperror

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind classifies a database failure.
type Kind string

// Known database failure kinds.
const (
	KindNotFound   Kind = "not_found"
	KindDuplicate  Kind = "duplicate"
	KindForeignKey Kind = "foreign_key"
	KindNotNull    Kind = "not_null"
	KindCheck      Kind = "check"
)

// Overrides replaces the default message of a kind at a call site.
type Overrides map[Kind]string

type mapping struct {
	status  int
	message string
}

var defaultMappings = map[Kind]mapping{
	KindNotFound:   {status: http.StatusNotFound, message: "record not found"},
	KindDuplicate:  {status: http.StatusConflict, message: "record already exists"},
	KindForeignKey: {status: http.StatusBadRequest, message: "related record does not exist"},
	KindNotNull:    {status: http.StatusBadRequest, message: "required field is missing"},
	KindCheck:      {status: http.StatusBadRequest, message: "value violates a constraint"},
}

var sqlStateKinds = map[string]Kind{
	"23505": KindDuplicate,
	"23503": KindForeignKey,
	"23502": KindNotNull,
	"23514": KindCheck,
}

// Classify reports which known kind err belongs to.
func Classify(err error) (Kind, bool) {
	if err == nil {
		return "", false
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound, true
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return KindDuplicate, true
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return KindForeignKey, true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := sqlStateKinds[pgErr.Code]; ok {
			return kind, true
		}
		return "", false
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key"):
		return KindDuplicate, true
	case strings.Contains(msg, "foreign key constraint failed"):
		return KindForeignKey, true
	case strings.Contains(msg, "not null constraint failed"):
		return KindNotNull, true
	case strings.Contains(msg, "check constraint failed"):
		return KindCheck, true
	}

	return "", false
}

// FromDatabase translates a known database failure into an *Error. Errors that are
// already *Error or that match no known kind are returned unchanged.
func FromDatabase(err error, overrides Overrides) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}

	kind, ok := Classify(err)
	if !ok {
		return err
	}

	m := defaultMappings[kind]
	if msg, ok := overrides[kind]; ok && msg != "" {
		m.message = msg
	}

	return New(m.status, m.message, err)
}
