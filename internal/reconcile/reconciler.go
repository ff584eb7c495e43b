package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/ghfollow/internal/relationships"
)

const (
	// DefaultActionDelay separates consecutive live follow or unfollow requests.
	DefaultActionDelay = time.Second

	actionPerformerMissingMessageConstant = "action performer not configured"
	followingSetMissingMessageConstant    = "following set not configured"
	phaseSkippedLogMessageConstant        = "Reconciliation phase skipped"
	phaseCompletedLogMessageConstant      = "Reconciliation phase completed"
	phaseLogFieldConstant                 = "phase"
	succeededLogFieldConstant             = "succeeded"
	failedLogFieldConstant                = "failed"
	followBackPhaseNameConstant           = "follow_back"
	unfollowPhaseNameConstant             = "unfollow"
)

var (
	// ErrActionPerformerNotConfigured indicates the reconciler was constructed without an action performer.
	ErrActionPerformerNotConfigured = errors.New(actionPerformerMissingMessageConstant)
	// ErrFollowingSetNotConfigured indicates the reconciler was constructed without the following set.
	ErrFollowingSetNotConfigured = errors.New(followingSetMissingMessageConstant)
)

// ActionPerformer applies single relationship actions and reports success.
type ActionPerformer interface {
	Follow(executionContext context.Context, account string) bool
	Unfollow(executionContext context.Context, account string) bool
}

// Sleeper pauses between actions.
type Sleeper interface {
	Sleep(executionContext context.Context, duration time.Duration) error
}

// Observer receives one notification per attempted action.
type Observer interface {
	ActionCompleted(kind relationships.ActionKind, account string, succeeded bool)
}

// Plan lists the corrective actions needed to make the follow graph mutual.
type Plan struct {
	ToFollow   []string
	ToUnfollow []string
}

// Empty reports whether the plan contains no actions.
func (plan Plan) Empty() bool {
	return len(plan.ToFollow) == 0 && len(plan.ToUnfollow) == 0
}

// ExecutionOptions controls which phases run and how they are paced.
type ExecutionOptions struct {
	SkipFollowBack bool
	SkipUnfollow   bool
	DryRun         bool
	ActionDelay    time.Duration
}

// Result summarizes an executed plan.
type Result struct {
	Followed         int  `yaml:"followed"`
	FollowFailures   int  `yaml:"follow_failures"`
	Unfollowed       int  `yaml:"unfollowed"`
	UnfollowFailures int  `yaml:"unfollow_failures"`
	FollowSkipped    bool `yaml:"follow_skipped"`
	UnfollowSkipped  bool `yaml:"unfollow_skipped"`
}

// Dependencies enumerates collaborators used by Reconciler.
type Dependencies struct {
	Logger    *zap.Logger
	Performer ActionPerformer
	Sleeper   Sleeper
	Following *relationships.AccountSet
	Observer  Observer
}

// Reconciler makes the authenticated user's following list match their followers.
type Reconciler struct {
	logger    *zap.Logger
	performer ActionPerformer
	sleeper   Sleeper
	following *relationships.AccountSet
	observer  Observer
}

// BuildPlan computes followers minus following (in followers order) and following minus followers (in following order).
func BuildPlan(following *relationships.AccountSet, followers *relationships.AccountSet) Plan {
	return Plan{
		ToFollow:   followers.Difference(following),
		ToUnfollow: following.Difference(followers),
	}
}

// NewReconciler constructs a Reconciler. Following is updated in place as actions succeed.
func NewReconciler(dependencies Dependencies) (*Reconciler, error) {
	if dependencies.Performer == nil {
		return nil, ErrActionPerformerNotConfigured
	}
	if dependencies.Following == nil {
		return nil, ErrFollowingSetNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleeper := dependencies.Sleeper
	if sleeper == nil {
		sleeper = relationships.TimerSleeper{}
	}

	return &Reconciler{
		logger:    logger,
		performer: dependencies.Performer,
		sleeper:   sleeper,
		following: dependencies.Following,
		observer:  dependencies.Observer,
	}, nil
}

// Execute runs the follow-back phase and then the unfollow phase. Per-account failures are counted, not returned;
// only context cancellation stops execution early.
func (reconciler *Reconciler) Execute(executionContext context.Context, plan Plan, options ExecutionOptions) (Result, error) {
	result := Result{FollowSkipped: options.SkipFollowBack, UnfollowSkipped: options.SkipUnfollow}

	if options.SkipFollowBack {
		reconciler.logger.Info(phaseSkippedLogMessageConstant, zap.String(phaseLogFieldConstant, followBackPhaseNameConstant))
	} else {
		succeeded, failed, phaseError := reconciler.runPhase(executionContext, relationships.ActionKindFollow, plan.ToFollow, options)
		result.Followed = succeeded
		result.FollowFailures = failed
		if phaseError != nil {
			return result, phaseError
		}
	}

	if options.SkipUnfollow {
		reconciler.logger.Info(phaseSkippedLogMessageConstant, zap.String(phaseLogFieldConstant, unfollowPhaseNameConstant))
	} else {
		succeeded, failed, phaseError := reconciler.runPhase(executionContext, relationships.ActionKindUnfollow, plan.ToUnfollow, options)
		result.Unfollowed = succeeded
		result.UnfollowFailures = failed
		if phaseError != nil {
			return result, phaseError
		}
	}

	return result, nil
}

func (reconciler *Reconciler) runPhase(executionContext context.Context, kind relationships.ActionKind, accounts []string, options ExecutionOptions) (int, int, error) {
	succeeded := 0
	failed := 0

	for accountIndex, account := range accounts {
		if contextError := executionContext.Err(); contextError != nil {
			return succeeded, failed, contextError
		}

		if reconciler.apply(executionContext, kind, account) {
			succeeded++
		} else {
			failed++
		}

		isLast := accountIndex == len(accounts)-1
		if isLast || options.DryRun || options.ActionDelay <= 0 {
			continue
		}
		if sleepError := reconciler.sleeper.Sleep(executionContext, options.ActionDelay); sleepError != nil {
			return succeeded, failed, sleepError
		}
	}

	phaseName := followBackPhaseNameConstant
	if kind == relationships.ActionKindUnfollow {
		phaseName = unfollowPhaseNameConstant
	}
	reconciler.logger.Info(
		phaseCompletedLogMessageConstant,
		zap.String(phaseLogFieldConstant, phaseName),
		zap.Int(succeededLogFieldConstant, succeeded),
		zap.Int(failedLogFieldConstant, failed),
	)

	return succeeded, failed, nil
}

func (reconciler *Reconciler) apply(executionContext context.Context, kind relationships.ActionKind, account string) bool {
	var succeeded bool
	switch kind {
	case relationships.ActionKindFollow:
		succeeded = reconciler.performer.Follow(executionContext, account)
		if succeeded {
			reconciler.following.Add(account)
		}
	default:
		succeeded = reconciler.performer.Unfollow(executionContext, account)
		if succeeded {
			reconciler.following.Remove(account)
		}
	}

	if reconciler.observer != nil {
		reconciler.observer.ActionCompleted(kind, account, succeeded)
	}
	return succeeded
}
