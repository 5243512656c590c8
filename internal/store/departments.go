package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no department has the requested id.
var ErrNotFound = errors.New("department not found")

// DuplicateError is returned when a write would violate a unique column.
type DuplicateError struct {
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("department with %s %q already exists", e.Field, e.Value)
}

// OrderError is returned for an ordering on a column that cannot be sorted.
type OrderError struct {
	Field string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("cannot order by %q", e.Field)
}

// Queryer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Department is a stored department.
type Department struct {
	ID    uuid.UUID
	Title string
}

// Order is one term of a listing order.
type Order struct {
	Field string
	Desc  bool
}

// orderColumns whitelists sortable fields. Field names are interpolated
// into SQL, so nothing outside this map may reach a query.
var orderColumns = map[string]string{
	"id":    "id",
	"title": "title",
}

// ParseOrder parses ordering terms such as "title" or "-id".
func ParseOrder(fields []string) ([]Order, error) {
	orders := make([]Order, 0, len(fields))
	for _, f := range fields {
		o := Order{Field: f}
		if strings.HasPrefix(f, "-") {
			o = Order{Field: f[1:], Desc: true}
		}
		if _, ok := orderColumns[o.Field]; !ok {
			return nil, &OrderError{Field: f}
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Departments runs department queries on a Queryer.
type Departments struct {
	q Queryer
}

// NewDepartments returns queries bound to q.
func NewDepartments(q Queryer) *Departments {
	return &Departments{q: q}
}

// Create inserts d.
func (d *Departments) Create(ctx context.Context, dep Department) error {
	_, err := d.q.ExecContext(ctx,
		`INSERT INTO departments (id, title) VALUES (?, ?)`,
		dep.ID.String(), dep.Title)
	if err != nil {
		return translateWriteError(err, dep)
	}
	return nil
}

// Get returns the department with the given id.
func (d *Departments) Get(ctx context.Context, id uuid.UUID) (Department, error) {
	row := d.q.QueryRowContext(ctx,
		`SELECT id, title FROM departments WHERE id = ?`, id.String())

	dep, err := scanDepartment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Department{}, ErrNotFound
	}
	if err != nil {
		return Department{}, fmt.Errorf("get department %s: %w", id, err)
	}
	return dep, nil
}

// List returns all departments ordered by orders, then by insertion.
func (d *Departments) List(ctx context.Context, orders []Order) ([]Department, error) {
	terms := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		col, ok := orderColumns[o.Field]
		if !ok {
			return nil, &OrderError{Field: o.Field}
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms = append(terms, fmt.Sprintf("%s %s", col, dir))
	}
	terms = append(terms, "seq ASC")

	rows, err := d.q.QueryContext(ctx,
		`SELECT id, title FROM departments ORDER BY `+strings.Join(terms, ", "))
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	deps := []Department{}
	for rows.Next() {
		dep, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("list departments: %w", err)
		}
		deps = append(deps, dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return deps, nil
}

// Update replaces the title of an existing department.
func (d *Departments) Update(ctx context.Context, dep Department) error {
	res, err := d.q.ExecContext(ctx,
		`UPDATE departments SET title = ? WHERE id = ?`,
		dep.Title, dep.ID.String())
	if err != nil {
		return translateWriteError(err, dep)
	}
	return requireRow(res)
}

// Delete removes the department with the given id.
func (d *Departments) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := d.q.ExecContext(ctx, `DELETE FROM departments WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete department %s: %w", id, err)
	}
	return requireRow(res)
}

// Count returns the number of departments.
func (d *Departments) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM departments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count departments: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDepartment(s scanner) (Department, error) {
	var id, title string
	if err := s.Scan(&id, &title); err != nil {
		return Department{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Department{}, fmt.Errorf("stored id %q: %w", id, err)
	}
	return Department{ID: parsed, Title: title}, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// translateWriteError maps unique constraint violations to *DuplicateError.
func translateWriteError(err error, dep Department) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		if strings.Contains(sqliteErr.Error(), "departments.title") {
			return &DuplicateError{Field: "title", Value: dep.Title}
		}
		return &DuplicateError{Field: "id", Value: dep.ID.String()}
	}
	return fmt.Errorf("write department %s: %w", dep.ID, err)
}
