package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-vault-api/internal/models"
)

const noteColumns = `id, title, description, category, blob_id, filename, upload_timestamp, share_token, sort_order`

// noteOrderings maps sort keys to ORDER BY clauses. seq breaks ties in insertion order.
var noteOrderings = map[models.NoteSort]string{
	models.SortDateDesc: "upload_timestamp DESC, seq ASC",
	models.SortDateAsc:  "upload_timestamp ASC, seq ASC",
	models.SortNameAsc:  "LOWER(title) ASC, seq ASC",
	models.SortNameDesc: "LOWER(title) DESC, seq ASC",
	models.SortCategory: "category ASC, seq ASC",
	models.SortCustom:   "sort_order ASC, seq ASC",
}

// NoteRepository persists note metadata in PostgreSQL.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs the repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a note, filling id and timestamp when absent.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.ShareToken == "" {
		note.ShareToken = note.ID
	}
	if note.UploadedAt.IsZero() {
		note.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notes (` + noteColumns + `)
	VALUES (:id, :title, :description, :category, :blob_id, :filename, :upload_timestamp, :share_token, :sort_order)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// GetByID returns one note or sql.ErrNoRows.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	const query = `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, id); err != nil {
		return nil, err
	}
	return &note, nil
}

// List returns notes matching the filter in the requested order.
// Unknown sort keys fall back to insertion order.
func (r *NoteRepository) List(ctx context.Context, filter models.NoteFilter) ([]models.Note, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + noteColumns + ` FROM notes`)
	args := make([]interface{}, 0, 1)

	if filter.Category != "" {
		args = append(args, filter.Category)
		b.WriteString(fmt.Sprintf(" WHERE category = $%d", len(args)))
	}

	order, ok := noteOrderings[filter.Sort]
	if !ok {
		order = "seq ASC"
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(order)

	if filter.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	notes := make([]models.Note, 0)
	if err := r.db.SelectContext(ctx, &notes, b.String(), args...); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Update applies the supplied fields. Returns sql.ErrNoRows when the note is gone.
func (r *NoteRepository) Update(ctx context.Context, id string, changes models.NoteChanges) error {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.Title != nil {
		add("title", *changes.Title)
	}
	if changes.Description != nil {
		add("description", *changes.Description)
	}
	if changes.Category != nil {
		add("category", *changes.Category)
	}
	if changes.Order != nil {
		add("sort_order", *changes.Order)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE notes SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return expectRow(res, "update note")
}

// Delete removes a note. Returns sql.ErrNoRows when nothing matched.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return expectRow(res, "delete note")
}

// Ping checks the database connection.
func (r *NoteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func expectRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
