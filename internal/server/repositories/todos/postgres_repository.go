package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/dbx"
	"github.com/dmitrijs2005/gophtodo/internal/server/cursor"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
)

const todoColumns = "id, title, completed, aged, due_date, created_at, updated_at"

var postgresColumns = map[models.Field]string{
	models.FieldTitle:     "title",
	models.FieldCompleted: "completed",
	models.FieldDueDate:   "due_date",
	models.FieldAged:      "aged",
}

// PostgresRepository implements Repository over a dbx.DBTX. Listing is
// ordered by created_at DESC, id DESC with a keyset cursor.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	var (
		t   models.Todo
		due sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.Aged, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if due.Valid {
		t.DueDate = models.DatePtr(models.Date(due.Time.Format(models.DateLayout)))
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func dateArg(d *models.Date) any {
	if d == nil {
		return nil
	}
	return string(*d)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`

	t, err := scanTodo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int, after cursor.Key) ([]*models.Todo, cursor.Key, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit < 1 {
		limit = 1
	}

	// one extra row tells whether another page exists
	if after == nil {
		query := `SELECT ` + todoColumns + ` FROM todos
			ORDER BY created_at DESC, id DESC LIMIT $1`
		rows, err = r.db.QueryContext(ctx, query, limit+1)
	} else {
		createdAt, id, perr := parseKeysetKey(after)
		if perr != nil {
			return nil, nil, perr
		}
		query := `SELECT ` + todoColumns + ` FROM todos
			WHERE (created_at, id) < ($1, $2)
			ORDER BY created_at DESC, id DESC LIMIT $3`
		rows, err = r.db.QueryContext(ctx, query, createdAt, id, limit+1)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select todos: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Todo, 0, limit)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(result) <= limit {
		return result, nil, nil
	}
	result = result[:limit]
	last := result[limit-1]
	return result, cursor.Key{"createdAt": last.CreatedAt.Format(time.RFC3339Nano), "id": last.ID}, nil
}

func parseKeysetKey(k cursor.Key) (time.Time, string, error) {
	ts, ok := k.String("createdAt")
	id, ok2 := k.String("id")
	if !ok || !ok2 {
		return time.Time{}, "", fmt.Errorf("%w: missing createdAt/id", common.ErrorDecode)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", common.ErrorDecode, err)
	}
	return createdAt, id, nil
}

func (r *PostgresRepository) Put(ctx context.Context, t *models.Todo) error {
	query := `INSERT INTO todos (` + todoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			completed = EXCLUDED.completed,
			aged = EXCLUDED.aged,
			due_date = EXCLUDED.due_date,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Completed, t.Aged, dateArg(t.DueDate), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateFields renders the patch into a single UPDATE ... RETURNING, so the
// existence check and the write are one statement.
func (r *PostgresRepository) UpdateFields(ctx context.Context, id string, patch models.Patch, updatedAt time.Time) (*models.Todo, error) {
	sets := make([]string, 0, patch.Len()+1)
	args := make([]any, 0, patch.Len()+2)

	for _, f := range patch.Fields() {
		column, ok := postgresColumns[f]
		if !ok {
			return nil, fmt.Errorf("no column for field %q", f)
		}
		v, _ := patch.Get(f)
		if d, isDate := v.(*models.Date); isDate {
			v = dateArg(d)
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	args = append(args, updatedAt.UTC())
	sets = append(sets, fmt.Sprintf("updated_at = GREATEST(updated_at, $%d)", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE todos SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), todoColumns)

	t, err := scanTodo(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
