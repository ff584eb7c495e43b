// Package githubauth resolves the bearer token used to authenticate GitHub API requests.
package githubauth
