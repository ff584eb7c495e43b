// Package githubcli wraps the GitHub CLI.
//
// ghfollow uses it to reuse credentials stored by `gh auth login`. Calls go
// through execshell so tests can substitute the executable.
package githubcli
