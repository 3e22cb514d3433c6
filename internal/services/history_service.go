package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bankline/backend/internal/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ErrConflictingCursors rejects requests carrying both a before and an
// after cursor.
var ErrConflictingCursors = errors.New("use only one: before or after")

// TransactionPage is one page of history, always newest-first.
// NextCursor resumes towards older rows (pass as before); PrevCursor
// towards newer rows (pass as after). Either is nil when there is nothing
// in that direction.
type TransactionPage struct {
	Items      []models.Transaction `json:"items"`
	NextCursor *string              `json:"nextCursor"`
	PrevCursor *string              `json:"prevCursor"`
}

// HistoryService pages over the append-only transaction stream with keyset
// cursors on (created_at, id). Because rows are immutable, walking forward
// and backward never skips or repeats a row.
type HistoryService struct {
	db *sql.DB
}

func NewHistoryService(db *sql.DB) *HistoryService {
	return &HistoryService{db: db}
}

// ListTransactions returns up to limit rows for the account. One extra row
// is fetched internally to detect whether more pages exist in the
// direction of travel.
func (s *HistoryService) ListTransactions(ctx context.Context, accountID int64, limit int, before, after *Cursor) (*TransactionPage, error) {
	if before != nil && after != nil {
		return nil, ErrConflictingCursors
	}

	if limit < 1 {
		limit = defaultPageSize
	} else if limit > maxPageSize {
		limit = maxPageSize
	}
	probe := limit + 1

	var (
		rows *sql.Rows
		err  error
	)
	switch {
	case before != nil:
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, account_id, amount, tx_type, reference_id, created_at
			 FROM transactions
			 WHERE account_id = $1 AND (created_at < $2 OR (created_at = $2 AND id < $3))
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			accountID, before.Time(), before.ID, probe)
	case after != nil:
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, account_id, amount, tx_type, reference_id, created_at
			 FROM transactions
			 WHERE account_id = $1 AND (created_at > $2 OR (created_at = $2 AND id > $3))
			 ORDER BY created_at ASC, id ASC
			 LIMIT $4`,
			accountID, after.Time(), after.ID, probe)
	default:
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, account_id, amount, tx_type, reference_id, created_at
			 FROM transactions
			 WHERE account_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			accountID, probe)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	defer rows.Close()

	items := make([]models.Transaction, 0, probe)
	for rows.Next() {
		var t models.Transaction
		if err = rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.TxType, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		items = append(items, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	// After-pages are fetched oldest-first; the response is always
	// newest-first.
	if after != nil {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	page := &TransactionPage{Items: items}
	if len(items) == 0 {
		return page, nil
	}

	oldest := cursorForRow(items[len(items)-1])
	newest := cursorForRow(items[0])

	switch {
	case after != nil:
		// We navigated here from older rows, so an older page exists.
		page.NextCursor = &oldest
		if hasMore {
			page.PrevCursor = &newest
		}
	case before != nil:
		if hasMore {
			page.NextCursor = &oldest
		}
		page.PrevCursor = &newest
	default:
		if hasMore {
			page.NextCursor = &oldest
		}
	}

	return page, nil
}
