// Package relationships models the authenticated user's follow graph and
// the primitives that read and change it.
//
// AccountSet keeps insertion-ordered, duplicate-free logins and
// SessionFollowedSet remembers every follow issued during a run. Fetcher walks
// paginated GitHub lists with fixed pacing between pages, filters out the
// authenticated account, and caps third-party follower lists. ActionExecutor
// applies follows and unfollows (or simulates them in dry-run mode) and keeps
// a ledger of per-account failures instead of aborting the run.
package relationships
