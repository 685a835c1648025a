package store

import (
	"database/sql"
	"errors"
	"time"
)

// Cast is a journaled spell decision. Gesture and voice fields are empty when
// that modality did not take part.
type Cast struct {
	ID                string    `json:"id"`
	Spell             string    `json:"spell"`
	Policy            string    `json:"policy"`
	GestureLabel      string    `json:"gesture_label,omitempty"`
	GestureSource     string    `json:"gesture_source,omitempty"`
	GestureConfidence float64   `json:"gesture_confidence,omitempty"`
	VoiceLabel        string    `json:"voice_label,omitempty"`
	VoiceConfidence   float64   `json:"voice_confidence,omitempty"`
	FrameTime         int64     `json:"frame_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

// SpellCount is the number of casts of a spell.
type SpellCount struct {
	Spell string `json:"spell"`
	Count int    `json:"count"`
}

// CastRepository provides journal operations for casts.
type CastRepository struct {
	db *sql.DB
}

// Casts returns the cast repository for this store.
func (s *Store) Casts() *CastRepository {
	return &CastRepository{db: s.db}
}

// Create appends a cast to the journal.
func (r *CastRepository) Create(c *Cast) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO casts (id, spell, policy, gesture_label, gesture_source, gesture_confidence,
			voice_label, voice_confidence, frame_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Spell, c.Policy,
		nullString(c.GestureLabel), nullString(c.GestureSource), c.GestureConfidence,
		nullString(c.VoiceLabel), c.VoiceConfidence,
		c.FrameTime, c.CreatedAt,
	)
	return err
}

// GetByID retrieves a cast by its ID.
func (r *CastRepository) GetByID(id string) (*Cast, error) {
	row := r.db.QueryRow(
		`SELECT id, spell, policy, gesture_label, gesture_source, gesture_confidence,
			voice_label, voice_confidence, frame_ms, created_at
		 FROM casts WHERE id = ?`,
		id,
	)

	c, err := scanCast(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns the most recent casts, newest first. limit <= 0 means 50.
func (r *CastRepository) List(limit int) ([]*Cast, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, spell, policy, gesture_label, gesture_source, gesture_confidence,
			voice_label, voice_confidence, frame_ms, created_at
		 FROM casts ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	casts := []*Cast{}
	for rows.Next() {
		c, err := scanCast(rows)
		if err != nil {
			return nil, err
		}
		casts = append(casts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return casts, nil
}

// CountBySpell returns how often each spell was cast.
func (r *CastRepository) CountBySpell() ([]SpellCount, error) {
	rows, err := r.db.Query(`SELECT spell, COUNT(*) FROM casts GROUP BY spell ORDER BY COUNT(*) DESC, spell`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []SpellCount{}
	for rows.Next() {
		var c SpellCount
		if err := rows.Scan(&c.Spell, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCast(s scanner) (*Cast, error) {
	c := &Cast{}
	var gestureLabel, gestureSource, voiceLabel sql.NullString
	var gestureConfidence, voiceConfidence sql.NullFloat64

	err := s.Scan(&c.ID, &c.Spell, &c.Policy,
		&gestureLabel, &gestureSource, &gestureConfidence,
		&voiceLabel, &voiceConfidence, &c.FrameTime, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.GestureLabel = gestureLabel.String
	c.GestureSource = gestureSource.String
	c.GestureConfidence = gestureConfidence.Float64
	c.VoiceLabel = voiceLabel.String
	c.VoiceConfidence = voiceConfidence.Float64
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
