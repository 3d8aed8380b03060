package model

// Table describes a physical table in the dining room.  Tables are
// grouped into seating areas ("A", "B", ...) and carry a unique,
// human-facing number.  Rows are administered out of band; the
// reservation core only reads them.
//
// Fields:
//  ID     – primary key identifier.
//  Area   – seating area label.
//  Number – display number printed on the table, unique.
//  Seats  – seating capacity (positive).
type Table struct {
    ID     uint64 `json:"id"`     // restaurant_tables.id
    Area   string `json:"area"`   // restaurant_tables.area
    Number int    `json:"number"` // restaurant_tables.number
    Seats  int    `json:"seats"`  // restaurant_tables.seats
}

// TotalSeats sums the seats of the given tables.
func TotalSeats(tables []Table) int {
    n := 0
    for _, t := range tables {
        n += t.Seats
    }
    return n
}
