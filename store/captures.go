package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soocke/card-scan-go/domain/scan"
)

// CaptureRecord is one persisted capture. Image holds JPEG bytes and is only
// populated by CaptureImage.
type CaptureRecord struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"event_id"`
	CardID     string    `json:"card_id,omitempty"`
	Side       string    `json:"side"`
	Manual     bool      `json:"manual"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Image      []byte    `json:"-"`
	CapturedAt time.Time `json:"captured_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Card holds the latest front and back images captured for a card.
type Card struct {
	ID         string
	FrontImage []byte
	BackImage  []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SaveCapture encodes ev as JPEG and stores it. When the event names a card,
// the card's image for that side is replaced as well.
func (db *DB) SaveCapture(ctx context.Context, ev scan.CaptureEvent, quality int) (*CaptureRecord, error) {
	if ev.Image == nil {
		return nil, errors.New("store: capture has no image")
	}
	data, err := EncodeJPEG(ev.Image, quality)
	if err != nil {
		return nil, err
	}
	b := ev.Image.Bounds()
	now := time.Now()
	capturedAt := ev.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}
	rec := &CaptureRecord{
		EventID:    ev.ID,
		CardID:     ev.CardID,
		Side:       ev.Side.String(),
		Manual:     ev.Manual,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Image:      data,
		CapturedAt: capturedAt,
		CreatedAt:  now,
	}
	err = db.ExecTx(ctx, func(tx *sql.Tx) error {
		var cardID any
		if ev.CardID != "" {
			cardID = ev.CardID
			if err := upsertCardImage(tx, ev.CardID, ev.Side, data, now); err != nil {
				return err
			}
		}
		res, err := tx.Exec(`
			INSERT INTO captures (
				event_id, card_id, side, manual, width, height,
				image, captured_at, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.EventID, cardID, rec.Side, rec.Manual, rec.Width, rec.Height,
			data, rec.CapturedAt, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("store: insert capture: %w", err)
		}
		rec.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func upsertCardImage(tx *sql.Tx, cardID string, side scan.Side, data []byte, now time.Time) error {
	query := `
		INSERT INTO cards (id, front_image, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET front_image = excluded.front_image, updated_at = excluded.updated_at
	`
	if side == scan.SideBack {
		query = `
		INSERT INTO cards (id, back_image, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET back_image = excluded.back_image, updated_at = excluded.updated_at
	`
	}
	if _, err := tx.Exec(query, cardID, data, now, now); err != nil {
		return fmt.Errorf("store: upsert card %s: %w", cardID, err)
	}
	return nil
}

// Captures returns capture metadata, newest first.
func (db *DB) Captures(ctx context.Context, limit int) ([]*CaptureRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			id, event_id, COALESCE(card_id, ''), side, manual,
			width, height, captured_at, created_at
		FROM captures
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*CaptureRecord{}
	for rows.Next() {
		r := &CaptureRecord{}
		if err := rows.Scan(&r.ID, &r.EventID, &r.CardID, &r.Side, &r.Manual,
			&r.Width, &r.Height, &r.CapturedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CaptureImage returns the JPEG bytes of capture id.
func (db *DB) CaptureImage(ctx context.Context, id int64) ([]byte, error) {
	var data []byte
	err := db.conn.QueryRowContext(ctx, `SELECT image FROM captures WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return data, err
}

// Card returns the stored images for card id.
func (db *DB) Card(ctx context.Context, id string) (*Card, error) {
	c := &Card{}
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, front_image, back_image, created_at, updated_at
		FROM cards
		WHERE id = ?
	`, id).Scan(&c.ID, &c.FrontImage, &c.BackImage, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CaptureCount returns the number of stored captures.
func (db *DB) CaptureCount(ctx context.Context) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM captures`).Scan(&n)
	return n, err
}
