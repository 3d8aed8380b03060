package repository

import (
    "context"
    "database/sql"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func newMockReservationRepo(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    return NewReservationRepo(db), mock
}

var summaryColumns = []string{"id", "area", "party_size", "reservation_date", "start_time", "end_time", "table_numbers", "total_seats"}

func TestFetchReservationsForDay(t *testing.T) {
    repo, mock := newMockReservationRepo(t)
    day := time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC)

    rows := sqlmock.NewRows(summaryColumns).
        AddRow(int64(1), "A", int64(5), day, "18:00:00", "20:00:00", "1,2", "6").
        AddRow(int64(4), "A", int64(2), day, "21:00:00", "23:00:00", nil, "0").
        AddRow(int64(2), "B", int64(3), day, "17:00:00", "19:00:00", "", "0")
    mock.ExpectQuery(regexp.QuoteMeta("FROM reservation_requests rr")).
        WithArgs("2025-12-22").
        WillReturnRows(rows)

    got, err := repo.FetchReservationsForDay(context.Background(), day)
    require.NoError(t, err)
    require.Len(t, got, 3)

    assert.Equal(t, model.ReservationSummary{
        ReservationRequestID: 1,
        Area:                 "A",
        PartySize:            5,
        Date:                 "2025-12-22",
        StartTime:            model.MustParseClock("18:00"),
        EndTime:              model.MustParseClock("20:00"),
        TableNumbers:         []int{1, 2},
        TotalSeats:           6,
    }, got[0])
    // NULL and empty aggregates decode to an empty list
    assert.Equal(t, []int{}, got[1].TableNumbers)
    assert.Equal(t, []int{}, got[2].TableNumbers)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchReservationsForDay_BadTableNumbers(t *testing.T) {
    repo, mock := newMockReservationRepo(t)
    day := time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC)

    rows := sqlmock.NewRows(summaryColumns).
        AddRow(int64(1), "A", int64(5), day, "18:00:00", "20:00:00", "1,x", "6")
    mock.ExpectQuery(regexp.QuoteMeta("FROM reservation_requests rr")).WillReturnRows(rows)

    _, err := repo.FetchReservationsForDay(context.Background(), day)
    assert.Error(t, err)
}

func TestFetchReservationsForDay_QueryError(t *testing.T) {
    repo, mock := newMockReservationRepo(t)
    mock.ExpectQuery(regexp.QuoteMeta("FROM reservation_requests rr")).WillReturnError(sql.ErrConnDone)

    _, err := repo.FetchReservationsForDay(context.Background(), time.Now())
    assert.ErrorIs(t, err, sql.ErrConnDone)
}

func newReservation() *model.ReservationRequest {
    return &model.ReservationRequest{
        CustomerRef: "user:7",
        Area:        "A",
        PartySize:   5,
        Date:        time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC),
        StartTime:   model.MustParseClock("18:00"),
        EndTime:     model.MustParseClock("20:00"),
        Tables: []model.Table{
            {ID: 1, Area: "A", Number: 1, Seats: 4},
            {ID: 2, Area: "A", Number: 2, Seats: 2},
        },
    }
}

func TestCreateWithTables(t *testing.T) {
    repo, mock := newMockReservationRepo(t)
    created := time.Date(2025, 12, 20, 15, 0, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("SELECT rrt.table_id")).
        WithArgs(1, 2, "2025-12-21", "2025-12-23", "2025-12-22 20:00:00", "2025-12-22 18:00:00").
        WillReturnRows(sqlmock.NewRows([]string{"table_id"}))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_requests (customer_ref")).
        WithArgs("user:7", "A", 5, "2025-12-22", "18:00:00", "20:00:00").
        WillReturnResult(sqlmock.NewResult(42, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at, updated_at FROM reservation_requests")).
        WithArgs(42).
        WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_requests_tables")).
        WithArgs(42, 1, 42, 2).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectCommit()

    res := newReservation()
    require.NoError(t, repo.CreateWithTables(context.Background(), res))
    assert.Equal(t, uint64(42), res.ID)
    assert.Equal(t, created, res.CreatedAt)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithTables_ConflictRollsBack(t *testing.T) {
    repo, mock := newMockReservationRepo(t)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("SELECT rrt.table_id")).
        WillReturnRows(sqlmock.NewRows([]string{"table_id"}).AddRow(int64(1)))
    mock.ExpectRollback()

    res := newReservation()
    err := repo.CreateWithTables(context.Background(), res)
    require.Error(t, err)
    assert.True(t, errors.Is(err, ErrConflict))
    assert.Zero(t, res.ID)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictingTablesTx_LateSeatingComparesAbsoluteWindow(t *testing.T) {
    repo, mock := newMockReservationRepo(t)
    friday := time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("TIMESTAMP(rr.reservation_date, rr.start_time) < ?")).
        WithArgs(3, "2025-12-25", "2025-12-27", "2025-12-27 01:00:00", "2025-12-26 23:00:00").
        WillReturnRows(sqlmock.NewRows([]string{"table_id"}).AddRow(int64(3)))
    mock.ExpectRollback()

    tx, err := repo.DB().BeginTx(context.Background(), nil)
    require.NoError(t, err)
    ids, err := repo.ConflictingTablesTx(context.Background(), tx, friday,
        model.MustParseClock("23:00"), model.MustParseClock("23:00").Add(2*time.Hour), []uint64{3})
    require.NoError(t, err)
    assert.Equal(t, []uint64{3}, ids)
    require.NoError(t, tx.Rollback())
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithTables_DeadlockIsConflict(t *testing.T) {
    for _, num := range []uint16{1213, 1205} {
        repo, mock := newMockReservationRepo(t)

        mock.ExpectBegin()
        mock.ExpectQuery(regexp.QuoteMeta("SELECT rrt.table_id")).
            WillReturnError(&mysql.MySQLError{Number: num, Message: "lock"})
        mock.ExpectRollback()

        err := repo.CreateWithTables(context.Background(), newReservation())
        assert.ErrorIs(t, err, ErrConflict, "error %d", num)
        assert.NoError(t, mock.ExpectationsWereMet())
    }

    repo, mock := newMockReservationRepo(t)
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("SELECT rrt.table_id")).
        WillReturnError(&mysql.MySQLError{Number: 1146, Message: "no such table"})
    mock.ExpectRollback()
    err := repo.CreateWithTables(context.Background(), newReservation())
    assert.Error(t, err)
    assert.NotErrorIs(t, err, ErrConflict)
}

func TestCreateWithTables_LinkFailureRollsBack(t *testing.T) {
    repo, mock := newMockReservationRepo(t)
    now := time.Now()

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("SELECT rrt.table_id")).
        WillReturnRows(sqlmock.NewRows([]string{"table_id"}))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_requests (customer_ref")).
        WillReturnResult(sqlmock.NewResult(9, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at, updated_at")).
        WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_requests_tables")).
        WillReturnError(assert.AnError)
    mock.ExpectRollback()

    err := repo.CreateWithTables(context.Background(), newReservation())
    assert.ErrorIs(t, err, assert.AnError)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTableLinksTx_Empty(t *testing.T) {
    repo, _ := newMockReservationRepo(t)
    assert.NoError(t, repo.CreateTableLinksTx(context.Background(), nil, nil))
}
