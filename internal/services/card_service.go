package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"

	"github.com/lib/pq"

	"github.com/bankline/backend/internal/models"
)

var (
	ErrCardNotFound  = errors.New("card not found")
	ErrDuplicateLink = errors.New("card already linked to this account")
	ErrLinkNotFound  = errors.New("link not found")
)

const uniqueViolation = pq.ErrorCode("23505")

// CardService is the administrative surface for cards and card-account
// links. It never touches balances and it is the only path that can
// revert a locked card to active.
type CardService struct {
	db *sql.DB
}

func NewCardService(db *sql.DB) *CardService {
	return &CardService{db: db}
}

// CreateCard issues a card for a customer. The PIN is stored as an
// argon2id digest only; the card number is generated and retried on the
// unlikely collision.
func (s *CardService) CreateCard(ctx context.Context, customerID int64, pin, status string) (*models.Card, error) {
	pinHash, err := hashPIN(pin)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	card := &models.Card{
		CustomerID: customerID,
		Status:     status,
	}

	for attempt := 0; attempt < 3; attempt++ {
		card.CardNumber = generateCardNumber()
		err = s.db.QueryRowContext(ctx,
			`INSERT INTO cards (customer_id, card_number, pin_hash, status) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
			customerID, card.CardNumber, pinHash, status).Scan(&card.ID, &card.CreatedAt)
		if err == nil {
			return card, nil
		}
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
			break
		}
	}
	return nil, fmt.Errorf("create card: %w", err)
}

func (s *CardService) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	var card models.Card
	err := s.db.QueryRowContext(ctx,
		`SELECT id, customer_id, card_number, status, created_at FROM cards WHERE id = $1`,
		id).Scan(&card.ID, &card.CustomerID, &card.CardNumber, &card.Status, &card.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("read card %d: %w", id, err)
	}
	return &card, nil
}

// UpdateCard sets the administrative status and optionally a new PIN.
// Unlocking a card clears its failure counter, the one reset path outside
// a successful login.
func (s *CardService) UpdateCard(ctx context.Context, id int64, status string, pin *string) error {
	var (
		result sql.Result
		err    error
	)
	if pin != nil {
		var pinHash string
		if pinHash, err = hashPIN(*pin); err != nil {
			return fmt.Errorf("hash pin: %w", err)
		}
		result, err = s.db.ExecContext(ctx,
			`UPDATE cards SET status = $1, pin_hash = $2,
			        failed_pin_attempts = CASE WHEN $1 = 'active' THEN 0 ELSE failed_pin_attempts END
			 WHERE id = $3`,
			status, pinHash, id)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE cards SET status = $1,
			        failed_pin_attempts = CASE WHEN $1 = 'active' THEN 0 ELSE failed_pin_attempts END
			 WHERE id = $2`,
			status, id)
	}
	if err != nil {
		return fmt.Errorf("update card %d: %w", id, err)
	}
	return requireRow(result, ErrCardNotFound)
}

func (s *CardService) DeleteCard(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}
	return requireRow(result, ErrCardNotFound)
}

// CreateLink ties a card to an account with a role. The pair is unique.
func (s *CardService) CreateLink(ctx context.Context, cardID, accountID int64, role string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO card_accounts (card_id, account_id, role) VALUES ($1, $2, $3)`,
		cardID, accountID, role)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateLink
		}
		return fmt.Errorf("link card %d to account %d: %w", cardID, accountID, err)
	}
	return nil
}

func (s *CardService) ListLinks(ctx context.Context) ([]models.CardAccountLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT card_id, account_id, role, created_at FROM card_accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []models.CardAccountLink
	for rows.Next() {
		var link models.CardAccountLink
		if err = rows.Scan(&link.CardID, &link.AccountID, &link.Role, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (s *CardService) DeleteLink(ctx context.Context, cardID, accountID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM card_accounts WHERE card_id = $1 AND account_id = $2`, cardID, accountID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return requireRow(result, ErrLinkNotFound)
}

func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func generateCardNumber() string {
	const digits = "0123456789"
	b := make([]byte, 16)
	for i := range b {
		b[i] = digits[rand.Intn(len(digits))]
	}
	return string(b)
}
