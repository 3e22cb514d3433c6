package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bankline/backend/internal/models"
)

// ErrInvalidCursor rejects any token that is not a valid encoding of a
// (timestamp, id) pair.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a position in the transaction stream: the row's creation time
// in epoch milliseconds, tie-broken by row id. The wire form is
// "<epoch-ms>|<id>".
type Cursor struct {
	TimestampMS int64
	ID          int64
}

// ParseCursor is the strict inverse of Cursor.String: both fields must be
// positive base-10 integers, nothing else decodes.
func ParseCursor(token string) (Cursor, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 2 {
		return Cursor{}, ErrInvalidCursor
	}

	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || ms <= 0 {
		return Cursor{}, ErrInvalidCursor
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return Cursor{}, ErrInvalidCursor
	}

	return Cursor{TimestampMS: ms, ID: id}, nil
}

func (c Cursor) String() string {
	return fmt.Sprintf("%d|%d", c.TimestampMS, c.ID)
}

// Time converts the millisecond timestamp back to a point in time for SQL
// comparison.
func (c Cursor) Time() time.Time {
	return time.UnixMilli(c.TimestampMS).UTC()
}

func cursorForRow(row models.Transaction) string {
	return Cursor{TimestampMS: row.CreatedAt.UnixMilli(), ID: row.ID}.String()
}
