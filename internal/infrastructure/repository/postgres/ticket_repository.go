package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

// TicketRepository stores bulk classification runs.
type TicketRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db, now: time.Now}
}

// SaveRun writes every ticket of a run in one transaction. Re-running with
// the same runID overwrites earlier rows.
func (r *TicketRepository) SaveRun(ctx context.Context, runID string, tickets []domain.ClassifiedTicket) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	classifiedAt := r.now().UTC()
	for _, t := range tickets {
		topics, err := json.Marshal(t.Classification.Topics)
		if err != nil {
			return fmt.Errorf("marshal topics for %s: %w", t.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO ticket_classifications (run_id, ticket_id, subject, body, topics, sentiment, priority, fallback, classified_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (run_id, ticket_id) DO UPDATE
SET subject = EXCLUDED.subject, body = EXCLUDED.body, topics = EXCLUDED.topics,
	sentiment = EXCLUDED.sentiment, priority = EXCLUDED.priority,
	fallback = EXCLUDED.fallback, classified_at = EXCLUDED.classified_at
`, runID, t.ID, t.Subject, t.Body, topics, string(t.Classification.Sentiment), string(t.Classification.Priority), t.Classification.Fallback, classifiedAt)
		if err != nil {
			return fmt.Errorf("insert ticket classification %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save run tx: %w", err)
	}
	return nil
}

func (r *TicketRepository) ListRun(ctx context.Context, runID string) ([]domain.ClassifiedTicket, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT ticket_id, subject, body, topics, sentiment, priority, fallback
FROM ticket_classifications
WHERE run_id = $1
ORDER BY ticket_id
`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ClassifiedTicket, 0)
	for rows.Next() {
		t, err := scanClassifiedTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClassifiedTicket(row rowScanner) (domain.ClassifiedTicket, error) {
	var t domain.ClassifiedTicket
	var topicsRaw []byte
	var sentiment, priority string
	if err := row.Scan(&t.ID, &t.Subject, &t.Body, &topicsRaw, &sentiment, &priority, &t.Classification.Fallback); err != nil {
		return domain.ClassifiedTicket{}, fmt.Errorf("scan ticket classification: %w", err)
	}
	if err := json.Unmarshal(topicsRaw, &t.Classification.Topics); err != nil {
		return domain.ClassifiedTicket{}, fmt.Errorf("unmarshal topics: %w", err)
	}
	t.Classification.Sentiment = domain.Sentiment(sentiment)
	t.Classification.Priority = domain.Priority(priority)
	return t, nil
}
