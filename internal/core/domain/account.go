package domain

// Account is the demo chart-of-accounts entity. Beyond a required name and
// type it carries no invariants.
type Account struct {
	ID          int64
	Name        string
	Type        string
	Description *string
	Balance     float64
}
