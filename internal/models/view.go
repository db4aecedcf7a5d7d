package models

// Filter narrows the task list. A zero-valued field puts no constraint on its dimension.
type Filter struct {
	Status   Status
	Category Category
	Priority Priority
	Search   string
}

// IsZero reports whether the filter constrains nothing
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// SortField names the task attribute used for ordering
type SortField string

const (
	SortID          SortField = "id"
	SortTitle       SortField = "title"
	SortDescription SortField = "description"
	SortCreatedAt   SortField = "createdAt"
	SortUpdatedAt   SortField = "updatedAt"
	SortDueDate     SortField = "dueDate"
	SortCategory    SortField = "category"
	SortStatus      SortField = "status"
	SortPriority    SortField = "priority"
)

// SortFields lists every sortable field in the order the list view cycles them
var SortFields = []SortField{
	SortTitle, SortDescription, SortCreatedAt, SortUpdatedAt, SortDueDate, SortCategory, SortStatus, SortPriority, SortID,
}

func (f SortField) Valid() bool {
	switch f {
	case SortID, SortTitle, SortDescription, SortCreatedAt, SortUpdatedAt, SortDueDate, SortCategory, SortStatus, SortPriority:
		return true
	}
	return false
}

// Direction is the sort order
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort pairs a field with a direction
type Sort struct {
	Field     SortField
	Direction Direction
}

// DefaultSort shows the newest tasks first
var DefaultSort = Sort{Field: SortCreatedAt, Direction: Desc}
