package data

// Index is an in-memory index on a single column
type Index struct {
	Column string
	Data   map[any][]int // value → row positions
	Unique bool
}

// NewIndex creates an empty index for the column
func NewIndex(column string, unique bool) *Index {
	return &Index{
		Column: column,
		Data:   make(map[any][]int),
		Unique: unique,
	}
}

// Rebuild recomputes value → positions from the given rows
func (idx *Index) Rebuild(rows []Row) {
	idx.Data = make(map[any][]int, len(rows))
	for pos, row := range rows {
		if val, ok := row[idx.Column]; ok {
			idx.Data[val] = append(idx.Data[val], pos)
		}
	}
}

// Positions returns the row positions holding value
func (idx *Index) Positions(value any) []int {
	return idx.Data[value]
}
