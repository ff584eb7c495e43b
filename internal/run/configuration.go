package run

import (
	"strings"
	"time"

	"github.com/temirov/ghfollow/internal/relationships"
	"github.com/temirov/ghfollow/internal/traversal"
)

const (
	defaultCountdownSecondsConstant   = 5
	defaultRequestsPerSecondConstant  = 5.0
	defaultRequestBurstConstant       = 1
	defaultBreakerFailuresConstant    = 5
	defaultBreakerOpenTimeoutConstant = 30 * time.Second
	defaultRequestTimeoutConstant     = 30 * time.Second
	defaultActionDelayConstant        = time.Second
)

// APIConfiguration captures how the GitHub API is reached and paged.
type APIConfiguration struct {
	BaseURL            string        `mapstructure:"base_url"`
	TokenSource        string        `mapstructure:"token_source"`
	UserAgent          string        `mapstructure:"user_agent"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`
	RequestBurst       int           `mapstructure:"request_burst"`
	BreakerFailures    uint32        `mapstructure:"breaker_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
	PageSize           int           `mapstructure:"page_size"`
	SelfPageDelay      time.Duration `mapstructure:"self_page_delay"`
	AccountPageDelay   time.Duration `mapstructure:"account_page_delay"`
}

// ExecutionConfiguration captures persistent settings for the reconciliation phases.
type ExecutionConfiguration struct {
	DryRun             bool          `mapstructure:"dry_run"`
	AssumeYes          bool          `mapstructure:"assume_yes"`
	SkipFollowBack     bool          `mapstructure:"skip_follow_back"`
	SkipUnfollow       bool          `mapstructure:"skip_unfollow"`
	VerifyBeforeFollow bool          `mapstructure:"verify_before_follow"`
	Countdown          int           `mapstructure:"countdown"`
	ActionDelay        time.Duration `mapstructure:"action_delay"`
	MetricsFile        string        `mapstructure:"metrics_file"`
	SummaryFile        string        `mapstructure:"summary_file"`
}

// TraversalConfiguration captures persistent traversal settings. Nil bounds fall back to the limits profile.
type TraversalConfiguration struct {
	Seeds             []string         `mapstructure:"seeds"`
	Strategy          string           `mapstructure:"strategy"`
	Limits            string           `mapstructure:"limits"`
	MaxDepth          *traversal.Bound `mapstructure:"max_depth"`
	MaxFollowsPerNode *traversal.Bound `mapstructure:"max_follows_per_node"`
	VisitedScope      string           `mapstructure:"visited_scope"`
}

// CommandConfiguration groups every setting the run command reads.
type CommandConfiguration struct {
	API       APIConfiguration       `mapstructure:"api"`
	Execution ExecutionConfiguration `mapstructure:"run"`
	Traversal TraversalConfiguration `mapstructure:"traversal"`
}

// DefaultCommandConfiguration returns baseline configuration values for the run command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		API: APIConfiguration{
			RequestTimeout:     defaultRequestTimeoutConstant,
			RequestsPerSecond:  defaultRequestsPerSecondConstant,
			RequestBurst:       defaultRequestBurstConstant,
			BreakerFailures:    defaultBreakerFailuresConstant,
			BreakerOpenTimeout: defaultBreakerOpenTimeoutConstant,
			PageSize:           relationships.DefaultPageSize,
			SelfPageDelay:      relationships.DefaultSelfPageDelay,
			AccountPageDelay:   relationships.DefaultAccountPageDelay,
		},
		Execution: ExecutionConfiguration{
			Countdown:   defaultCountdownSecondsConstant,
			ActionDelay: defaultActionDelayConstant,
		},
		Traversal: TraversalConfiguration{
			Strategy:     string(traversal.StrategyDepthFirst),
			Limits:       string(traversal.LimitsProfileClassic),
			VisitedScope: string(traversal.VisitedScopeTraversal),
		},
	}
}

// DefaultConfigurationValues flattens DefaultCommandConfiguration into configuration keys under the given section prefixes.
func DefaultConfigurationValues(apiPrefix string, executionPrefix string, traversalPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		joinKey(apiPrefix, "request_timeout"):      defaults.API.RequestTimeout,
		joinKey(apiPrefix, "requests_per_second"):  defaults.API.RequestsPerSecond,
		joinKey(apiPrefix, "request_burst"):        defaults.API.RequestBurst,
		joinKey(apiPrefix, "breaker_failures"):     defaults.API.BreakerFailures,
		joinKey(apiPrefix, "breaker_open_timeout"): defaults.API.BreakerOpenTimeout,
		joinKey(apiPrefix, "page_size"):            defaults.API.PageSize,
		joinKey(apiPrefix, "self_page_delay"):      defaults.API.SelfPageDelay,
		joinKey(apiPrefix, "account_page_delay"):   defaults.API.AccountPageDelay,
		joinKey(executionPrefix, "countdown"):      defaults.Execution.Countdown,
		joinKey(executionPrefix, "action_delay"):   defaults.Execution.ActionDelay,
		joinKey(traversalPrefix, "strategy"):       defaults.Traversal.Strategy,
		joinKey(traversalPrefix, "limits"):         defaults.Traversal.Limits,
		joinKey(traversalPrefix, "visited_scope"):  defaults.Traversal.VisitedScope,
	}
}

func joinKey(prefix string, key string) string {
	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) == 0 {
		return key
	}
	return trimmedPrefix + "." + key
}

// OptionalConfigurationKeys lists traversal keys without defaults that still accept environment overrides.
func OptionalConfigurationKeys(traversalPrefix string) []string {
	return []string{
		joinKey(traversalPrefix, "max_depth"),
		joinKey(traversalPrefix, "max_follows_per_node"),
	}
}
