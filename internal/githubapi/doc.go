// Package githubapi provides a typed client for the GitHub REST endpoints that
// manage the authenticated user's follow graph.
//
// Client lists following and followers with page/per_page pagination, follows
// and unfollows accounts, and checks whether an account is already followed.
// Requests are paced by a token bucket limiter and guarded by a circuit
// breaker that opens after consecutive server or rate-limit failures. Errors
// are typed: StatusError matches ErrNotFound for missing or forbidden
// accounts and ErrRateLimited for throttled calls, and every failure is
// wrapped in an OperationError naming the workflow that produced it.
package githubapi
