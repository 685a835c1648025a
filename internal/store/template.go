package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Point is a stored template point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Template is a catalog entry for a template file.
type Template struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	FileName  string    `json:"file_name"`
	Points    int       `json:"points"`
	Path      []Point   `json:"path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LabelCount is the number of templates recorded for a label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TemplateRepository provides catalog operations for templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Upsert inserts a template or replaces the entry with the same file name.
func (r *TemplateRepository) Upsert(t *Template) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Points = len(t.Path)

	path, err := json.Marshal(t.Path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO templates (id, label, file_name, points, path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_name) DO UPDATE SET
			id = excluded.id,
			label = excluded.label,
			points = excluded.points,
			path = excluded.path,
			created_at = excluded.created_at`,
		t.ID, t.Label, t.FileName, t.Points, string(path), t.CreatedAt,
	)
	return err
}

// GetByID retrieves a template by its ID, including its points.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	t := &Template{}
	var path string

	err := r.db.QueryRow(
		`SELECT id, label, file_name, points, path, created_at
		 FROM templates WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.Label, &t.FileName, &t.Points, &path, &t.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(path), &t.Path); err != nil {
		return nil, fmt.Errorf("decode path: %w", err)
	}
	return t, nil
}

// List retrieves all templates in creation order without their points.
// An empty label lists every template.
func (r *TemplateRepository) List(label string) ([]*Template, error) {
	query := `SELECT id, label, file_name, points, created_at FROM templates`
	args := []any{}
	if label != "" {
		query += ` WHERE label = ?`
		args = append(args, label)
	}
	query += ` ORDER BY created_at, file_name`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []*Template{}
	for rows.Next() {
		t := &Template{}
		if err := rows.Scan(&t.ID, &t.Label, &t.FileName, &t.Points, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// CountByLabel returns how many templates exist for each label.
func (r *TemplateRepository) CountByLabel() ([]LabelCount, error) {
	rows, err := r.db.Query(`SELECT label, COUNT(*) FROM templates GROUP BY label ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []LabelCount{}
	for rows.Next() {
		var c LabelCount
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Prune removes catalog entries whose file is not in keep.
func (r *TemplateRepository) Prune(keep []string) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TEMP TABLE IF NOT EXISTS keep_files (file_name TEXT PRIMARY KEY)`); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`DELETE FROM keep_files`); err != nil {
		return 0, err
	}
	for _, name := range keep {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO keep_files (file_name) VALUES (?)`, name); err != nil {
			return 0, err
		}
	}

	result, err := tx.Exec(`DELETE FROM templates WHERE file_name NOT IN (SELECT file_name FROM keep_files)`)
	if err != nil {
		return 0, err
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return removed, tx.Commit()
}

// Delete removes a template from the catalog by its ID.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
