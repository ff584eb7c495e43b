// Package run orchestrates one ghfollow run: it authenticates, loads both relationship lists, reconciles
// them into mutual follows and then traverses the follower networks of any seed accounts.
package run
