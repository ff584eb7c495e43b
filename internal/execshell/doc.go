// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and keeps the GitHub CLI invocation used for
// token discovery testable.
package execshell
