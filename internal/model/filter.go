package model

// TypeAll is the type filter value that matches every event type.
const TypeAll = "all"

// FilterState is the user-controlled filter applied to a loaded collection.
type FilterState struct {
	Query           string `json:"query"`
	Type            string `json:"type"`
	HideToolDetails bool   `json:"hideToolDetails"`
}

// DefaultFilters matches every event.
func DefaultFilters() FilterState {
	return FilterState{Type: TypeAll}
}

// IsDefault reports whether f filters nothing out.
func (f FilterState) IsDefault() bool {
	return f.Query == "" && (f.Type == "" || f.Type == TypeAll) && !f.HideToolDetails
}
