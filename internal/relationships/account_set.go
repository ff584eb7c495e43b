package relationships

// AccountSet is an insertion-ordered collection of distinct account logins.
type AccountSet struct {
	orderedAccounts []string
	members         map[string]struct{}
}

// NewAccountSet builds a set from accounts, dropping duplicates and empty values.
func NewAccountSet(accounts ...string) *AccountSet {
	accountSet := &AccountSet{members: make(map[string]struct{}, len(accounts))}
	for _, account := range accounts {
		accountSet.Add(account)
	}
	return accountSet
}

// Add appends account when it is not already present and reports whether the set changed.
func (accountSet *AccountSet) Add(account string) bool {
	if len(account) == 0 {
		return false
	}
	if accountSet.members == nil {
		accountSet.members = make(map[string]struct{})
	}
	if _, exists := accountSet.members[account]; exists {
		return false
	}
	accountSet.members[account] = struct{}{}
	accountSet.orderedAccounts = append(accountSet.orderedAccounts, account)
	return true
}

// Remove deletes account and reports whether it was present.
func (accountSet *AccountSet) Remove(account string) bool {
	if _, exists := accountSet.members[account]; !exists {
		return false
	}
	delete(accountSet.members, account)
	for accountIndex, orderedAccount := range accountSet.orderedAccounts {
		if orderedAccount == account {
			accountSet.orderedAccounts = append(accountSet.orderedAccounts[:accountIndex], accountSet.orderedAccounts[accountIndex+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether account is a member.
func (accountSet *AccountSet) Contains(account string) bool {
	if accountSet == nil {
		return false
	}
	_, exists := accountSet.members[account]
	return exists
}

// Len returns the number of members.
func (accountSet *AccountSet) Len() int {
	if accountSet == nil {
		return 0
	}
	return len(accountSet.orderedAccounts)
}

// Accounts returns the members in insertion order.
func (accountSet *AccountSet) Accounts() []string {
	if accountSet == nil {
		return nil
	}
	duplicated := make([]string, len(accountSet.orderedAccounts))
	copy(duplicated, accountSet.orderedAccounts)
	return duplicated
}

// Difference returns the members absent from other, preserving this set's order.
func (accountSet *AccountSet) Difference(other *AccountSet) []string {
	difference := make([]string, 0)
	for _, account := range accountSet.Accounts() {
		if other.Contains(account) {
			continue
		}
		difference = append(difference, account)
	}
	return difference
}

// SessionFollowedSet records accounts that received a follow during the current run, including simulated follows.
type SessionFollowedSet struct {
	accounts AccountSet
}

// NewSessionFollowedSet constructs an empty session-followed set.
func NewSessionFollowedSet() *SessionFollowedSet {
	return &SessionFollowedSet{}
}

// Record marks account as followed in this run.
func (sessionFollowed *SessionFollowedSet) Record(account string) {
	sessionFollowed.accounts.Add(account)
}

// Contains reports whether account was followed in this run.
func (sessionFollowed *SessionFollowedSet) Contains(account string) bool {
	if sessionFollowed == nil {
		return false
	}
	return sessionFollowed.accounts.Contains(account)
}

// Len returns how many accounts were followed in this run.
func (sessionFollowed *SessionFollowedSet) Len() int {
	if sessionFollowed == nil {
		return 0
	}
	return sessionFollowed.accounts.Len()
}

// Accounts returns the followed accounts in the order they were recorded.
func (sessionFollowed *SessionFollowedSet) Accounts() []string {
	if sessionFollowed == nil {
		return nil
	}
	return sessionFollowed.accounts.Accounts()
}
