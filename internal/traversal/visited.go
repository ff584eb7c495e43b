package traversal

// VisitedSet holds accounts whose followers have been fetched. It only grows.
type VisitedSet struct {
	accounts map[string]struct{}
}

// NewVisitedSet constructs an empty visited set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{accounts: make(map[string]struct{})}
}

// Mark adds account and reports whether it was newly added.
func (visited *VisitedSet) Mark(account string) bool {
	if _, exists := visited.accounts[account]; exists {
		return false
	}
	visited.accounts[account] = struct{}{}
	return true
}

// Contains reports whether account was visited.
func (visited *VisitedSet) Contains(account string) bool {
	_, exists := visited.accounts[account]
	return exists
}

// Len returns the number of visited accounts.
func (visited *VisitedSet) Len() int {
	return len(visited.accounts)
}
