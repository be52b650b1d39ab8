package models

type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
	TableReserved  TableStatus = "RESERVED"
)

// Table is a physical table. Number and Capacity are fixed by the seating plan.
type Table struct {
	Number   int
	Capacity int
	Status   TableStatus
}

func NewTable(number, capacity int) (*Table, error) {
	if number <= 0 {
		return nil, &ValidationError{Field: "tableNumber", Reason: "must be positive"}
	}
	if capacity <= 0 {
		return nil, &ValidationError{Field: "capacity", Reason: "must be positive"}
	}
	return &Table{Number: number, Capacity: capacity, Status: TableAvailable}, nil
}

func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
