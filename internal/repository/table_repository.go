package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// TableRepo provides read access to the restaurant_tables inventory.
// Tables are administered elsewhere; every method here is a plain
// query with no side effects.
type TableRepo struct {
    db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// ListAreas returns each distinct area label once, ascending.
func (r *TableRepo) ListAreas(ctx context.Context) ([]string, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT area FROM restaurant_tables ORDER BY area ASC`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    areas := make([]string, 0)
    for rows.Next() {
        var a string
        if err := rows.Scan(&a); err != nil {
            return nil, err
        }
        areas = append(areas, a)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return areas, nil
}

// ListTablesByAreaAndSeatsDesc returns every table ordered by area and,
// within an area, by seats descending.  Ties keep id order so the
// result is deterministic.
func (r *TableRepo) ListTablesByAreaAndSeatsDesc(ctx context.Context) ([]model.Table, error) {
    const q = `SELECT id, area, number, seats
               FROM restaurant_tables
               ORDER BY area ASC, seats DESC, id ASC`
    return r.queryTables(ctx, q)
}

// FreeTables returns the tables of an area whose number is not in
// excluded, largest first.  An empty exclusion list returns the whole
// area.
func (r *TableRepo) FreeTables(ctx context.Context, area string, excluded []int) ([]model.Table, error) {
    q := `SELECT id, area, number, seats FROM restaurant_tables WHERE area = ?`
    args := []interface{}{area}
    if len(excluded) > 0 {
        placeholders := make([]string, 0, len(excluded))
        for _, n := range excluded {
            placeholders = append(placeholders, "?")
            args = append(args, n)
        }
        q += ` AND number NOT IN (` + strings.Join(placeholders, ",") + `)`
    }
    q += ` ORDER BY seats DESC, id ASC`
    return r.queryTables(ctx, q, args...)
}

func (r *TableRepo) queryTables(ctx context.Context, q string, args ...interface{}) ([]model.Table, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    tables := make([]model.Table, 0)
    for rows.Next() {
        var t model.Table
        if err := rows.Scan(&t.ID, &t.Area, &t.Number, &t.Seats); err != nil {
            return nil, err
        }
        tables = append(tables, t)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return tables, nil
}
