package relationships

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/ghfollow/internal/githubapi"
	"github.com/temirov/ghfollow/internal/metrics"
)

// ListKind names the relationship list a fetch walks.
type ListKind string

// Relationship list kinds.
const (
	ListKindFollowing   ListKind = "following"
	ListKindFollowers   ListKind = "followers"
	ListKindFollowersOf ListKind = "followers_of"
)

const (
	// DefaultPageSize is the page size requested when none is configured. GitHub caps per_page at 100.
	DefaultPageSize = 100
	// DefaultSelfPageDelay separates page requests for the authenticated account's lists.
	DefaultSelfPageDelay = 100 * time.Millisecond
	// DefaultAccountPageDelay separates page requests for third-party follower lists.
	DefaultAccountPageDelay = 250 * time.Millisecond

	maximumPageSizeConstant                = 100
	fetchFailureTemplateConstant           = "failed to fetch %s page %d: %w"
	pageSizeInvalidTemplateConstant        = "page size %d must be between 1 and %d"
	listerMissingMessageConstant           = "relationship lister not configured"
	followersUnavailableLogMessageConstant = "Followers unavailable, continuing with partial list"
	followersFailedLogMessageConstant      = "Follower lookup failed, continuing with partial list"
	fetchCompletedLogMessageConstant       = "Relationship list fetched"
	listLogFieldConstant                   = "list"
	accountLogFieldConstant                = "account"
	pageLogFieldConstant                   = "page"
	countLogFieldConstant                  = "count"
	truncatedLogFieldConstant              = "truncated"
)

// ErrListerNotConfigured indicates the fetcher was constructed without an API lister.
var ErrListerNotConfigured = errors.New(listerMissingMessageConstant)

// RelationshipLister reads single pages of relationship lists.
type RelationshipLister interface {
	ListFollowing(executionContext context.Context, page int, pageSize int) ([]string, error)
	ListFollowers(executionContext context.Context, page int, pageSize int) ([]string, error)
	ListFollowersOf(executionContext context.Context, account string, page int, pageSize int) ([]string, error)
}

// FetcherConfiguration controls paging and pacing.
type FetcherConfiguration struct {
	PageSize         int
	SelfPageDelay    time.Duration
	AccountPageDelay time.Duration
}

// FetcherDependencies enumerates collaborators used by Fetcher.
type FetcherDependencies struct {
	Logger  *zap.Logger
	Lister  RelationshipLister
	Sleeper Sleeper
	Metrics metrics.Recorder
}

// Fetcher walks paginated relationship lists, filtering out the authenticated account and duplicates.
type Fetcher struct {
	logger        *zap.Logger
	lister        RelationshipLister
	sleeper       Sleeper
	metrics       metrics.Recorder
	configuration FetcherConfiguration
	selfAccount   string
	failures      []ActionFailure
}

// NewFetcher constructs a Fetcher for the authenticated account selfAccount.
func NewFetcher(dependencies FetcherDependencies, configuration FetcherConfiguration, selfAccount string) (*Fetcher, error) {
	if dependencies.Lister == nil {
		return nil, ErrListerNotConfigured
	}
	if configuration.PageSize == 0 {
		configuration.PageSize = DefaultPageSize
	}
	if configuration.PageSize < 1 || configuration.PageSize > maximumPageSizeConstant {
		return nil, fmt.Errorf(pageSizeInvalidTemplateConstant, configuration.PageSize, maximumPageSizeConstant)
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleeper := dependencies.Sleeper
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	recorder := dependencies.Metrics
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}

	return &Fetcher{
		logger:        logger,
		lister:        dependencies.Lister,
		sleeper:       sleeper,
		metrics:       recorder,
		configuration: configuration,
		selfAccount:   selfAccount,
	}, nil
}

// FetchFollowing returns every account the authenticated user follows. Any failure is returned.
func (fetcher *Fetcher) FetchFollowing(executionContext context.Context) (*AccountSet, error) {
	return fetcher.fetch(executionContext, ListKindFollowing, "", 0)
}

// FetchFollowers returns every account following the authenticated user. Any failure is returned.
func (fetcher *Fetcher) FetchFollowers(executionContext context.Context) (*AccountSet, error) {
	return fetcher.fetch(executionContext, ListKindFollowers, "", 0)
}

// FetchFollowersOf returns up to limit followers of account; a limit of zero fetches every page.
// A lookup failure is logged and recorded in Failures, and whatever was collected before the failure
// is returned together with the error.
func (fetcher *Fetcher) FetchFollowersOf(executionContext context.Context, account string, limit int) ([]string, error) {
	followers, fetchError := fetcher.fetch(executionContext, ListKindFollowersOf, account, limit)
	if fetchError == nil {
		return followers.Accounts(), nil
	}
	if executionContext.Err() != nil {
		return followers.Accounts(), fetchError
	}

	logMessage := followersFailedLogMessageConstant
	if errors.Is(fetchError, githubapi.ErrNotFound) {
		logMessage = followersUnavailableLogMessageConstant
	}
	fetcher.logger.Warn(
		logMessage,
		zap.String(accountLogFieldConstant, account),
		zap.Int(countLogFieldConstant, followers.Len()),
		zap.Error(fetchError),
	)
	fetcher.failures = append(fetcher.failures, ActionFailure{Kind: ActionKindFetchFollowers, Account: account, Reason: fetchError.Error()})
	return followers.Accounts(), fetchError
}

// Failures returns every follower lookup that failed, in the order they happened.
func (fetcher *Fetcher) Failures() []ActionFailure {
	duplicated := make([]ActionFailure, len(fetcher.failures))
	copy(duplicated, fetcher.failures)
	return duplicated
}

func (fetcher *Fetcher) fetch(executionContext context.Context, listKind ListKind, account string, limit int) (*AccountSet, error) {
	collected := NewAccountSet()
	pageSize := fetcher.configuration.PageSize
	pageDelay := fetcher.configuration.SelfPageDelay
	if listKind == ListKindFollowersOf {
		pageDelay = fetcher.configuration.AccountPageDelay
	}

	for page := 1; ; page++ {
		if page > 1 {
			if sleepError := fetcher.sleeper.Sleep(executionContext, pageDelay); sleepError != nil {
				return collected, fmt.Errorf(fetchFailureTemplateConstant, listKind, page, sleepError)
			}
		}

		entries, listError := fetcher.listPage(executionContext, listKind, account, page, pageSize)
		if listError != nil {
			outcome := metrics.OutcomeFailure
			if errors.Is(listError, githubapi.ErrNotFound) {
				outcome = metrics.OutcomeNotFound
			}
			fetcher.metrics.PageRequested(string(listKind), outcome)
			return collected, fmt.Errorf(fetchFailureTemplateConstant, listKind, page, listError)
		}
		fetcher.metrics.PageRequested(string(listKind), metrics.OutcomeSuccess)

		for _, entry := range entries {
			if entry == fetcher.selfAccount {
				continue
			}
			collected.Add(entry)
			if limit > 0 && collected.Len() >= limit {
				fetcher.logFetchCompleted(listKind, account, page, collected.Len(), true)
				return collected, nil
			}
		}

		if len(entries) < pageSize {
			fetcher.logFetchCompleted(listKind, account, page, collected.Len(), false)
			return collected, nil
		}
	}
}

func (fetcher *Fetcher) listPage(executionContext context.Context, listKind ListKind, account string, page int, pageSize int) ([]string, error) {
	switch listKind {
	case ListKindFollowing:
		return fetcher.lister.ListFollowing(executionContext, page, pageSize)
	case ListKindFollowers:
		return fetcher.lister.ListFollowers(executionContext, page, pageSize)
	default:
		return fetcher.lister.ListFollowersOf(executionContext, account, page, pageSize)
	}
}

func (fetcher *Fetcher) logFetchCompleted(listKind ListKind, account string, pages int, count int, truncated bool) {
	fetcher.logger.Debug(
		fetchCompletedLogMessageConstant,
		zap.String(listLogFieldConstant, string(listKind)),
		zap.String(accountLogFieldConstant, account),
		zap.Int(pageLogFieldConstant, pages),
		zap.Int(countLogFieldConstant, count),
		zap.Bool(truncatedLogFieldConstant, truncated),
	)
}
