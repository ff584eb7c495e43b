package relationships

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/ghfollow/internal/metrics"
)

// ActionKind names a relationship mutation.
type ActionKind string

// Relationship action kinds.
const (
	ActionKindFollow         ActionKind = "follow"
	ActionKindUnfollow       ActionKind = "unfollow"
	ActionKindFetchFollowers ActionKind = "fetch_followers"
)

const (
	mutatorMissingMessageConstant              = "relationship mutator not configured"
	sessionFollowedMissingMessageConstant      = "session-followed set not configured"
	dryRunFollowLogMessageConstant             = "Dry run: would follow account"
	dryRunUnfollowLogMessageConstant           = "Dry run: would unfollow account"
	followedLogMessageConstant                 = "Followed account"
	unfollowedLogMessageConstant               = "Unfollowed account"
	alreadyFollowingLogMessageConstant         = "Account already followed, skipping follow request"
	actionFailedLogMessageConstant             = "Relationship action failed"
	verificationFailedLogMessageConstant       = "Follow verification failed, attempting follow"
	actionExecutorAccountLogFieldConstant      = "account"
	actionExecutorActionLogFieldConstant       = "action"
	actionExecutorReasonLogFieldConstant       = "reason"
	actionExecutorVerificationLogFieldConstant = "verification_error"
)

var (
	// ErrMutatorNotConfigured indicates the executor was constructed without an API mutator.
	ErrMutatorNotConfigured = errors.New(mutatorMissingMessageConstant)
	// ErrSessionFollowedNotConfigured indicates the executor was constructed without a session-followed set.
	ErrSessionFollowedNotConfigured = errors.New(sessionFollowedMissingMessageConstant)
)

// RelationshipMutator changes and inspects follow relationships of the authenticated account.
type RelationshipMutator interface {
	Follow(executionContext context.Context, account string) error
	Unfollow(executionContext context.Context, account string) error
	IsFollowing(executionContext context.Context, account string) (bool, error)
}

// ActionFailure records one failed relationship action or follower lookup.
type ActionFailure struct {
	Kind    ActionKind `yaml:"kind"`
	Account string     `yaml:"account"`
	Reason  string     `yaml:"reason"`
}

// ExecutorConfiguration controls how actions are applied.
type ExecutorConfiguration struct {
	DryRun             bool
	VerifyBeforeFollow bool
}

// ExecutorDependencies enumerates collaborators used by ActionExecutor.
type ExecutorDependencies struct {
	Logger          *zap.Logger
	Mutator         RelationshipMutator
	SessionFollowed *SessionFollowedSet
	Metrics         metrics.Recorder
}

// ActionExecutor applies follow and unfollow actions, absorbing per-account failures.
type ActionExecutor struct {
	logger          *zap.Logger
	mutator         RelationshipMutator
	sessionFollowed *SessionFollowedSet
	metrics         metrics.Recorder
	configuration   ExecutorConfiguration
	failures        []ActionFailure
}

// NewActionExecutor constructs an ActionExecutor.
func NewActionExecutor(dependencies ExecutorDependencies, configuration ExecutorConfiguration) (*ActionExecutor, error) {
	if dependencies.Mutator == nil && !configuration.DryRun {
		return nil, ErrMutatorNotConfigured
	}
	if dependencies.SessionFollowed == nil {
		return nil, ErrSessionFollowedNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := dependencies.Metrics
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}

	return &ActionExecutor{
		logger:          logger,
		mutator:         dependencies.Mutator,
		sessionFollowed: dependencies.SessionFollowed,
		metrics:         recorder,
		configuration:   configuration,
	}, nil
}

// DryRun reports whether actions are simulated.
func (executor *ActionExecutor) DryRun() bool {
	return executor.configuration.DryRun
}

// Follow follows account and reports success. Successful and simulated follows are recorded in the session-followed set.
func (executor *ActionExecutor) Follow(executionContext context.Context, account string) bool {
	if executor.configuration.DryRun {
		executor.logger.Info(dryRunFollowLogMessageConstant, zap.String(actionExecutorAccountLogFieldConstant, account))
		executor.sessionFollowed.Record(account)
		executor.metrics.ActionCompleted(string(ActionKindFollow), metrics.OutcomeSimulated)
		return true
	}

	if executor.configuration.VerifyBeforeFollow && executor.alreadyFollowing(executionContext, account) {
		executor.logger.Info(alreadyFollowingLogMessageConstant, zap.String(actionExecutorAccountLogFieldConstant, account))
		executor.sessionFollowed.Record(account)
		executor.metrics.ActionCompleted(string(ActionKindFollow), metrics.OutcomeAlreadyFollowing)
		return true
	}

	if followError := executor.mutator.Follow(executionContext, account); followError != nil {
		executor.recordFailure(ActionKindFollow, account, followError)
		return false
	}

	executor.logger.Info(followedLogMessageConstant, zap.String(actionExecutorAccountLogFieldConstant, account))
	executor.sessionFollowed.Record(account)
	executor.metrics.ActionCompleted(string(ActionKindFollow), metrics.OutcomeSuccess)
	return true
}

// Unfollow unfollows account and reports success.
func (executor *ActionExecutor) Unfollow(executionContext context.Context, account string) bool {
	if executor.configuration.DryRun {
		executor.logger.Info(dryRunUnfollowLogMessageConstant, zap.String(actionExecutorAccountLogFieldConstant, account))
		executor.metrics.ActionCompleted(string(ActionKindUnfollow), metrics.OutcomeSimulated)
		return true
	}

	if unfollowError := executor.mutator.Unfollow(executionContext, account); unfollowError != nil {
		executor.recordFailure(ActionKindUnfollow, account, unfollowError)
		return false
	}

	executor.logger.Info(unfollowedLogMessageConstant, zap.String(actionExecutorAccountLogFieldConstant, account))
	executor.metrics.ActionCompleted(string(ActionKindUnfollow), metrics.OutcomeSuccess)
	return true
}

// Failures returns every failed action in the order it happened.
func (executor *ActionExecutor) Failures() []ActionFailure {
	duplicated := make([]ActionFailure, len(executor.failures))
	copy(duplicated, executor.failures)
	return duplicated
}

func (executor *ActionExecutor) alreadyFollowing(executionContext context.Context, account string) bool {
	isFollowing, verificationError := executor.mutator.IsFollowing(executionContext, account)
	if verificationError != nil {
		executor.logger.Debug(
			verificationFailedLogMessageConstant,
			zap.String(actionExecutorAccountLogFieldConstant, account),
			zap.String(actionExecutorVerificationLogFieldConstant, verificationError.Error()),
		)
		return false
	}
	return isFollowing
}

func (executor *ActionExecutor) recordFailure(kind ActionKind, account string, cause error) {
	failure := ActionFailure{Kind: kind, Account: account, Reason: cause.Error()}
	executor.failures = append(executor.failures, failure)
	executor.metrics.ActionCompleted(string(kind), metrics.OutcomeFailure)
	executor.logger.Warn(
		actionFailedLogMessageConstant,
		zap.String(actionExecutorActionLogFieldConstant, string(kind)),
		zap.String(actionExecutorAccountLogFieldConstant, account),
		zap.String(actionExecutorReasonLogFieldConstant, failure.Reason),
	)
}
