package report

import (
	"fmt"
	"strings"

	"github.com/temirov/ghfollow/internal/relationships"
	"github.com/temirov/ghfollow/internal/traversal"
)

const (
	authenticatedMessageTemplateConstant        = "Authenticated as %s"
	relationshipsLoadedMessageTemplateConstant  = "Following %d accounts, followed by %d accounts"
	planMessageTemplateConstant                 = "Plan: follow back %d, unfollow %d"
	nothingToDoMessageConstant                  = "Nothing to do: following and followers are already mutual"
	countdownMessageTemplateConstant            = "Applying changes in %d..."
	phaseMessageTemplateConstant                = "== %s =="
	actionSucceededMessageTemplateConstant      = "%s %s"
	actionFailedMessageTemplateConstant         = "Failed to %s %s"
	dryRunPrefixConstant                        = "[dry run] "
	traversalStartedMessageTemplateConstant     = "Traversing followers of %s (%s, max depth %s, max follows per node %s)"
	nodeExpandingMessageTemplateConstant        = "Exploring followers of %s at depth %d"
	followerFollowedMessageTemplateConstant     = "followed %s via %s"
	nodePrunedMessageTemplateConstant           = "depth limit reached at %s (depth %d)"
	levelCompletedMessageTemplateConstant       = "Level %d complete: %d nodes"
	followersUnavailableMessageTemplateConstant = "followers of %s unavailable (depth %d): %s"
	unboundedWarningMessageTemplateConstant     = "Traversal from %s has no depth or fan-out limit and ends only when the reachable follower network is exhausted"
	traversalDeclinedMessageTemplateConstant    = "Traversal from %s skipped"
	indentConstant                              = "  "
	followedVerbConstant                        = "Followed"
	unfollowedVerbConstant                      = "Unfollowed"
)

// EventFormatter builds human-readable messages for run events.
type EventFormatter struct {
	DryRun bool
}

// Authenticated describes the resolved account.
func (formatter EventFormatter) Authenticated(account string) string {
	return fmt.Sprintf(authenticatedMessageTemplateConstant, account)
}

// RelationshipsLoaded describes the size of both relationship lists.
func (formatter EventFormatter) RelationshipsLoaded(following int, followers int) string {
	return fmt.Sprintf(relationshipsLoadedMessageTemplateConstant, following, followers)
}

// Plan describes the reconciliation plan sizes.
func (formatter EventFormatter) Plan(toFollow int, toUnfollow int) string {
	return fmt.Sprintf(planMessageTemplateConstant, toFollow, toUnfollow)
}

// NothingToDo describes a run with no work.
func (formatter EventFormatter) NothingToDo() string {
	return nothingToDoMessageConstant
}

// Countdown describes the seconds left before mutations start.
func (formatter EventFormatter) Countdown(remainingSeconds int) string {
	return fmt.Sprintf(countdownMessageTemplateConstant, remainingSeconds)
}

// Phase renders a phase heading.
func (formatter EventFormatter) Phase(name string) string {
	return fmt.Sprintf(phaseMessageTemplateConstant, name)
}

// ActionCompleted describes a follow or unfollow outcome.
func (formatter EventFormatter) ActionCompleted(kind relationships.ActionKind, account string, succeeded bool) string {
	if !succeeded {
		return fmt.Sprintf(actionFailedMessageTemplateConstant, kind, account)
	}
	verb := followedVerbConstant
	if kind == relationships.ActionKindUnfollow {
		verb = unfollowedVerbConstant
	}
	return formatter.prefix() + fmt.Sprintf(actionSucceededMessageTemplateConstant, verb, account)
}

// TraversalStarted describes a traversal and its bounds.
func (formatter EventFormatter) TraversalStarted(seed string, configuration traversal.Configuration) string {
	return fmt.Sprintf(
		traversalStartedMessageTemplateConstant,
		seed,
		strings.ToUpper(string(configuration.Strategy)),
		configuration.MaxDepth,
		configuration.MaxFollowsPerNode,
	)
}

// NodeExpanding describes a node whose followers are being fetched.
func (formatter EventFormatter) NodeExpanding(node traversal.Node) string {
	return fmt.Sprintf(nodeExpandingMessageTemplateConstant, node.Account, node.Depth)
}

// FollowerFollowed describes a follow made during traversal.
func (formatter EventFormatter) FollowerFollowed(account string, parent traversal.Node) string {
	return indentConstant + formatter.prefix() + fmt.Sprintf(followerFollowedMessageTemplateConstant, account, parent.Account)
}

// NodePruned describes a node left unexpanded by the depth bound.
func (formatter EventFormatter) NodePruned(node traversal.Node) string {
	return indentConstant + fmt.Sprintf(nodePrunedMessageTemplateConstant, node.Account, node.Depth)
}

// FollowersUnavailable describes a node whose follower lookup failed.
func (formatter EventFormatter) FollowersUnavailable(node traversal.Node, reason string) string {
	return indentConstant + fmt.Sprintf(followersUnavailableMessageTemplateConstant, node.Account, node.Depth, reason)
}

// LevelCompleted describes a finished breadth-first level.
func (formatter EventFormatter) LevelCompleted(depth int, nodes int) string {
	return fmt.Sprintf(levelCompletedMessageTemplateConstant, depth, nodes)
}

// UnboundedTraversalWarning describes a traversal without limits.
func (formatter EventFormatter) UnboundedTraversalWarning(seed string) string {
	return fmt.Sprintf(unboundedWarningMessageTemplateConstant, seed)
}

// TraversalDeclined describes a traversal the operator did not confirm.
func (formatter EventFormatter) TraversalDeclined(seed string) string {
	return fmt.Sprintf(traversalDeclinedMessageTemplateConstant, seed)
}

func (formatter EventFormatter) prefix() string {
	if formatter.DryRun {
		return dryRunPrefixConstant
	}
	return ""
}
