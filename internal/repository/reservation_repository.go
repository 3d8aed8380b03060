package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ReservationRepo provides persistence for reservation requests and the
// tables assigned to them.  Table assignments are stored in the
// reservation_requests_tables join table.  Dates are DATE columns and
// start/end times are TIME columns holding offsets from midnight.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can start transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// ReservationRecord mirrors the schema of the reservation_requests table.
// It is used by the repository when inserting rows.  Business logic
// should use model.ReservationRequest instead.
type ReservationRecord struct {
    ID          uint64
    CustomerRef string
    Area        string
    PartySize   int
    Date        string // YYYY-MM-DD
    StartTime   model.Clock
    EndTime     model.Clock
    CreatedAt   time.Time
    UpdatedAt   time.Time
}

// FetchReservationsForDay returns every reservation of the given
// calendar day joined with its tables, ordered by area and then by id.
// Reservations without links come back with an empty table list.
func (r *ReservationRepo) FetchReservationsForDay(ctx context.Context, day time.Time) ([]model.ReservationSummary, error) {
    const q = `SELECT rr.id, rr.area, rr.party_size, rr.reservation_date, rr.start_time, rr.end_time,
                      GROUP_CONCAT(t.number ORDER BY t.number) AS table_numbers,
                      COALESCE(SUM(t.seats), 0) AS total_seats
               FROM reservation_requests rr
               LEFT JOIN reservation_requests_tables rrt ON rrt.reservation_request_id = rr.id
               LEFT JOIN restaurant_tables t ON t.id = rrt.table_id
               WHERE rr.reservation_date = ?
               GROUP BY rr.id, rr.area, rr.party_size, rr.reservation_date, rr.start_time, rr.end_time
               ORDER BY rr.area ASC, rr.id ASC`
    rows, err := r.db.QueryContext(ctx, q, day.Format(model.DateLayout))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.ReservationSummary, 0)
    for rows.Next() {
        var s model.ReservationSummary
        var date time.Time
        var numbers sql.NullString
        if err := rows.Scan(&s.ReservationRequestID, &s.Area, &s.PartySize, &date,
            &s.StartTime, &s.EndTime, &numbers, &s.TotalSeats); err != nil {
            return nil, err
        }
        s.Date = date.Format(model.DateLayout)
        s.TableNumbers, err = parseTableNumbers(numbers)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// parseTableNumbers decodes a GROUP_CONCAT list.  NULL and the empty
// string both decode to an empty slice.
func parseTableNumbers(v sql.NullString) ([]int, error) {
    nums := []int{}
    if !v.Valid || strings.TrimSpace(v.String) == "" {
        return nums, nil
    }
    for _, p := range strings.Split(v.String, ",") {
        p = strings.TrimSpace(p)
        if p == "" {
            continue
        }
        n, err := strconv.Atoi(p)
        if err != nil {
            return nil, fmt.Errorf("table_numbers %q: %w", v.String, err)
        }
        nums = append(nums, n)
    }
    return nums, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction.  It populates the generated ID and timestamps on the
// provided record.  The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *ReservationRecord) error {
    const q = `INSERT INTO reservation_requests (customer_ref, area, party_size, reservation_date, start_time, end_time)
               VALUES (?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q, res.CustomerRef, res.Area, res.PartySize, res.Date, res.StartTime, res.EndTime)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back the timestamps filled in by the database
    const sel = `SELECT created_at, updated_at FROM reservation_requests WHERE id = ?`
    return tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt)
}

// CreateTableLinksTx inserts multiple reservation_requests_tables rows in
// a single statement.  Passing an empty slice has no effect and returns
// nil.
func (r *ReservationRepo) CreateTableLinksTx(ctx context.Context, tx *sql.Tx, links []model.ReservationTableLink) error {
    if len(links) == 0 {
        return nil
    }
    query := `INSERT INTO reservation_requests_tables (reservation_request_id, table_id) VALUES `
    args := make([]interface{}, 0, len(links)*2)
    for i, l := range links {
        if i > 0 {
            query += ","
        }
        query += "(?, ?)"
        args = append(args, l.ReservationRequestID, l.TableID)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// ConflictingTablesTx locks and returns the ids of the given tables that
// hold a reservation whose window intersects [start, end) on day.  Windows
// are compared as absolute datetimes over day and its neighbours, so a
// seating that runs past midnight is caught from either side.  Rows are
// read FOR UPDATE so concurrent writers on the same tables queue behind
// this transaction.
func (r *ReservationRepo) ConflictingTablesTx(ctx context.Context, tx *sql.Tx, day time.Time, start, end model.Clock, tableIDs []uint64) ([]uint64, error) {
    if len(tableIDs) == 0 {
        return nil, nil
    }
    placeholders := make([]string, 0, len(tableIDs))
    args := make([]interface{}, 0, len(tableIDs)+4)
    for _, id := range tableIDs {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    args = append(args,
        day.AddDate(0, 0, -1).Format(model.DateLayout),
        day.AddDate(0, 0, 1).Format(model.DateLayout),
        end.On(day).Format(dateTimeLayout),
        start.On(day).Format(dateTimeLayout),
    )
    q := `SELECT rrt.table_id
          FROM reservation_requests_tables rrt
          JOIN reservation_requests rr ON rr.id = rrt.reservation_request_id
          WHERE rrt.table_id IN (` + strings.Join(placeholders, ",") + `)
            AND rr.reservation_date BETWEEN ? AND ?
            AND TIMESTAMP(rr.reservation_date, rr.start_time) < ?
            AND TIMESTAMP(rr.reservation_date, rr.end_time) > ?
          FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return ids, nil
}

// CreateWithTables persists a reservation and its table links in one
// transaction.  It first re-checks the chosen tables for overlapping
// reservations and returns ErrConflict when another booking got there
// first, or when InnoDB aborts the transaction on a deadlock or lock wait
// timeout; nothing is written in either case.  On success
// the generated ID and CreatedAt are set on res.
func (r *ReservationRepo) CreateWithTables(ctx context.Context, res *model.ReservationRequest) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    date := res.Date.Format(model.DateLayout)
    taken, err := r.ConflictingTablesTx(ctx, tx, res.Date, res.StartTime, res.EndTime, res.TableIDs())
    if err != nil {
        return lockConflict(err)
    }
    if len(taken) > 0 {
        return fmt.Errorf("tables %v already booked: %w", taken, ErrConflict)
    }
    rec := &ReservationRecord{
        CustomerRef: res.CustomerRef,
        Area:        res.Area,
        PartySize:   res.PartySize,
        Date:        date,
        StartTime:   res.StartTime,
        EndTime:     res.EndTime,
    }
    if err := r.CreateTx(ctx, tx, rec); err != nil {
        return lockConflict(err)
    }
    links := make([]model.ReservationTableLink, 0, len(res.Tables))
    for _, t := range res.Tables {
        links = append(links, model.ReservationTableLink{ReservationRequestID: rec.ID, TableID: t.ID})
    }
    if err := r.CreateTableLinksTx(ctx, tx, links); err != nil {
        return lockConflict(err)
    }
    if err := tx.Commit(); err != nil {
        return lockConflict(err)
    }
    committed = true
    res.ID = rec.ID
    res.CreatedAt = rec.CreatedAt
    return nil
}

// dateTimeLayout matches MySQL DATETIME literals.
const dateTimeLayout = "2006-01-02 15:04:05"

// InnoDB error numbers for an aborted lock acquisition.
const (
    errLockWaitTimeout = 1205
    errDeadlock        = 1213
)

// lockConflict maps deadlock and lock wait timeout errors to ErrConflict;
// the transaction was rolled back and the whole write can be retried.
func lockConflict(err error) error {
    var me *mysql.MySQLError
    if errors.As(err, &me) && (me.Number == errDeadlock || me.Number == errLockWaitTimeout) {
        return fmt.Errorf("%w: %w", ErrConflict, err)
    }
    return err
}
