package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"tracker/internal/models"
	"tracker/internal/storage"
)

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

type collection[T models.Entity] struct {
	db    *sql.DB
	table string
	kind  string
}

func newCollection[T models.Entity](db *sql.DB, table, kind string) *collection[T] {
	return &collection[T]{db: db, table: table, kind: kind}
}

// Insert stores a new document, generating its id when empty.
func (c *collection[T]) Insert(ctx context.Context, doc T) error {
	if doc.EntityID() == "" {
		doc.SetEntityID(uuid.NewString())
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.kind, err)
	}

	_, err = c.db.ExecContext(ctx, `INSERT INTO `+c.table+`(id, doc) VALUES(?, ?)`, doc.EntityID(), string(data))
	if err != nil {
		return c.writeErr("insert", err)
	}
	return nil
}

// Get fetches a single document by id.
func (c *collection[T]) Get(ctx context.Context, id string) (T, error) {
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT doc FROM `+c.table+` WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", c.kind, id, models.ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("get %s: %w", c.kind, err)
	}
	return c.decode(raw)
}

// FindOne returns the first document matching q.
func (c *collection[T]) FindOne(ctx context.Context, q storage.Query) (T, error) {
	docs, err := c.find(ctx, q, 1)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(docs) == 0 {
		var zero T
		return zero, fmt.Errorf("%s: %w", c.kind, models.ErrNotFound)
	}
	return docs[0], nil
}

// Find returns every document matching q. Without explicit sort orders the
// documents come back in insertion order.
func (c *collection[T]) Find(ctx context.Context, q storage.Query) ([]T, error) {
	return c.find(ctx, q, 0)
}

// Count returns the number of documents matching q.
func (c *collection[T]) Count(ctx context.Context, q storage.Query) (int64, error) {
	where, args, err := buildWhere(q)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.kind, err)
	}
	return n, nil
}

// Update replaces the stored document with the same id.
func (c *collection[T]) Update(ctx context.Context, doc T) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.kind, err)
	}

	res, err := c.db.ExecContext(ctx, `UPDATE `+c.table+` SET doc = ? WHERE id = ?`, string(data), doc.EntityID())
	if err != nil {
		return c.writeErr("update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", c.kind, doc.EntityID(), models.ErrNotFound)
	}
	return nil
}

// Delete removes a document by id.
func (c *collection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM `+c.table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", c.kind, id, models.ErrNotFound)
	}
	return nil
}

func (c *collection[T]) find(ctx context.Context, q storage.Query, limit int) ([]T, error) {
	where, args, err := buildWhere(q)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(q)
	if err != nil {
		return nil, err
	}

	query := `SELECT doc FROM ` + c.table + where + order
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.kind, err)
	}
	defer rows.Close()

	var docs []T
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.kind, err)
		}
		doc, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (c *collection[T]) decode(raw string) (T, error) {
	var doc T
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", c.kind, err)
	}
	return doc, nil
}

func (c *collection[T]) writeErr(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%s %s: %w", op, c.kind, models.ErrConflict)
	}
	return fmt.Errorf("%s %s: %w", op, c.kind, err)
}

func column(field string) (string, error) {
	if field == "id" {
		return "id", nil
	}
	if !fieldName.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return fmt.Sprintf("json_extract(doc, '$.%s')", field), nil
}

func buildCond(cond storage.Cond) (string, []any, error) {
	col, err := column(cond.Field)
	if err != nil {
		return "", nil, err
	}
	switch cond.Op {
	case storage.Eq:
		return col + " = ?", []any{cond.Value}, nil
	case storage.Contains:
		return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(doc, '$.%s') WHERE json_each.value = ?)", cond.Field), []any{cond.Value}, nil
	case storage.Match:
		return fmt.Sprintf("instr(lower(coalesce(%s, '')), lower(?)) > 0", col), []any{cond.Value}, nil
	case storage.Missing:
		return fmt.Sprintf("coalesce(%s, '') = ''", col), nil, nil
	case storage.Present:
		return fmt.Sprintf("coalesce(%s, '') <> ''", col), nil, nil
	case storage.In:
		values, _ := cond.Value.([]string)
		if len(values) == 0 {
			return "0", nil, nil
		}
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = v
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")), args, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %d", cond.Op)
	}
}

func buildWhere(q storage.Query) (string, []any, error) {
	var clauses []string
	var args []any

	for _, cond := range q.All {
		sqlCond, condArgs, err := buildCond(cond)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, sqlCond)
		args = append(args, condArgs...)
	}

	if len(q.Any) > 0 {
		var alts []string
		for _, cond := range q.Any {
			sqlCond, condArgs, err := buildCond(cond)
			if err != nil {
				return "", nil, err
			}
			alts = append(alts, sqlCond)
			args = append(args, condArgs...)
		}
		clauses = append(clauses, "("+strings.Join(alts, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// timeFields hold RFC 3339 text whose fraction has no fixed width, so they
// are ordered by julianday rather than by string comparison.
var timeFields = map[string]bool{
	"createdAt": true,
	"updatedAt": true,
	"startDate": true,
	"endDate":   true,
	"dueDate":   true,
	"lastLogin": true,
}

func buildOrder(q storage.Query) (string, error) {
	var parts []string
	for _, o := range q.Sort {
		col, err := column(o.Field)
		if err != nil {
			return "", err
		}
		if timeFields[o.Field] {
			col = "julianday(" + col + ")"
		}
		if o.Desc {
			parts = append(parts, col+" DESC")
		} else {
			parts = append(parts, col+" ASC")
		}
	}
	parts = append(parts, "rowid ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}
