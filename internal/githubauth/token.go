package githubauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/ghfollow/internal/execshell"
	"github.com/temirov/ghfollow/internal/githubcli"
	pathutils "github.com/temirov/ghfollow/internal/utils/path"
)

// Environment variable names consulted when no explicit token source is configured.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

const (
	tokenSourceSeparatorConstant               = ":"
	environmentTokenSourceTypeValueConstant    = "env"
	fileTokenSourceTypeValueConstant           = "file"
	githubCLITokenSourceTypeValueConstant      = "gh"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "token file path must be provided"
	environmentTokenMissingTemplateConstant    = "environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read token file %s: %w"
	fileTokenEmptyErrorTemplateConstant        = "token file %s is empty"
	unsupportedTokenSourceTemplateConstant     = "unsupported token source type %q"
	githubCLITokenErrorTemplateConstant        = "unable to read token from gh: %w"
	missingTokenTemplateConstant               = "%w: set %s or pass --token-source env:NAME|file:/path|gh"
)

// ErrTokenMissing indicates that no bearer credential could be located.
var ErrTokenMissing = errors.New("github token not found")

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// TokenSourceType enumerates the supported token retrieval mechanisms.
type TokenSourceType string

// Token source type enumerations.
const (
	TokenSourceTypeEnvironment TokenSourceType = TokenSourceType(environmentTokenSourceTypeValueConstant)
	TokenSourceTypeFile        TokenSourceType = TokenSourceType(fileTokenSourceTypeValueConstant)
	TokenSourceTypeGitHubCLI   TokenSourceType = TokenSourceType(githubCLITokenSourceTypeValueConstant)
)

// TokenSource specifies how to locate a bearer token.
type TokenSource struct {
	Type      TokenSourceType
	Reference string
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// CLITokenReader reads the token stored by the GitHub CLI for a host.
type CLITokenReader interface {
	AuthToken(executionContext context.Context, hostname string) (string, error)
}

// ParseTokenSource interprets textual token source declarations such as env:GH_TOKEN, file:~/.config/ghfollow/token
// or gh:github.example.com. A bare gh reads the GitHub CLI default host; any other value without a type prefix names an
// environment variable.
func ParseTokenSource(sourceValue string) (TokenSource, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return TokenSource{}, ErrTokenMissing
	}

	components := strings.SplitN(trimmedValue, tokenSourceSeparatorConstant, 2)
	if len(components) == 1 {
		if strings.EqualFold(trimmedValue, githubCLITokenSourceTypeValueConstant) {
			return TokenSource{Type: TokenSourceTypeGitHubCLI}, nil
		}
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceType {
	case environmentTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return TokenSource{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: reference}, nil
	case fileTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return TokenSource{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeFile, Reference: reference}, nil
	case githubCLITokenSourceTypeValueConstant:
		return TokenSource{Type: TokenSourceTypeGitHubCLI, Reference: reference}, nil
	default:
		return TokenSource{}, fmt.Errorf(unsupportedTokenSourceTemplateConstant, sourceType)
	}
}

// TokenResolver locates the bearer token used for GitHub API calls.
type TokenResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
	homeExpander      *pathutils.HomeExpander
	cliTokenReader    CLITokenReader
}

// NewTokenResolver creates a token resolver with optional dependency overrides.
func NewTokenResolver(environmentLookup EnvironmentLookup, fileReader FileReader) *TokenResolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	return &TokenResolver{
		environmentLookup: environmentLookup,
		fileReader:        fileReader,
		homeExpander:      pathutils.NewHomeExpander(),
	}
}

// WithGitHubCLI replaces the reader used for gh token sources.
func (resolver *TokenResolver) WithGitHubCLI(reader CLITokenReader) *TokenResolver {
	resolver.cliTokenReader = reader
	return resolver
}

// Resolve returns the token named by sourceValue. An empty sourceValue falls back to
// GH_TOKEN, GITHUB_TOKEN, and GITHUB_API_TOKEN in that order.
func (resolver *TokenResolver) Resolve(resolutionContext context.Context, sourceValue string) (string, error) {
	if len(strings.TrimSpace(sourceValue)) == 0 {
		return resolver.resolveFromPreference()
	}

	source, parseError := ParseTokenSource(sourceValue)
	if parseError != nil {
		return "", parseError
	}
	return resolver.ResolveSource(resolutionContext, source)
}

// ResolveSource reads the token described by source.
func (resolver *TokenResolver) ResolveSource(resolutionContext context.Context, source TokenSource) (string, error) {
	switch source.Type {
	case TokenSourceTypeEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		trimmedValue := strings.TrimSpace(value)
		if !found || len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	case TokenSourceTypeFile:
		filePath := resolver.homeExpander.Expand(source.Reference)
		contents, readError := resolver.fileReader(filePath)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, filePath, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(fileTokenEmptyErrorTemplateConstant, filePath)
		}
		return trimmedValue, nil
	case TokenSourceTypeGitHubCLI:
		reader, readerError := resolver.githubCLI()
		if readerError != nil {
			return "", fmt.Errorf(githubCLITokenErrorTemplateConstant, readerError)
		}
		token, tokenError := reader.AuthToken(resolutionContext, source.Reference)
		if tokenError != nil {
			return "", fmt.Errorf(githubCLITokenErrorTemplateConstant, tokenError)
		}
		return token, nil
	default:
		return "", fmt.Errorf(unsupportedTokenSourceTemplateConstant, source.Type)
	}
}

func (resolver *TokenResolver) githubCLI() (CLITokenReader, error) {
	if resolver.cliTokenReader != nil {
		return resolver.cliTokenReader, nil
	}
	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	if executorError != nil {
		return nil, executorError
	}
	return githubcli.NewClient(executor)
}

func (resolver *TokenResolver) resolveFromPreference() (string, error) {
	for _, key := range tokenPreference {
		value, found := resolver.environmentLookup(key)
		if !found {
			continue
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			return trimmedValue, nil
		}
	}
	return "", fmt.Errorf(missingTokenTemplateConstant, ErrTokenMissing, strings.Join(tokenPreference, ", "))
}
