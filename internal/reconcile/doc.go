// Package reconcile computes and applies the follow-back and unfollow plan
// that makes the authenticated user's following list mirror their followers.
package reconcile
