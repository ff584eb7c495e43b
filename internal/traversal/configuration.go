package traversal

import (
	"fmt"
	"strings"
)

// Strategy selects the traversal order.
type Strategy string

// Supported traversal strategies.
const (
	StrategyDepthFirst   Strategy = "dfs"
	StrategyBreadthFirst Strategy = "bfs"
)

// VisitedScope selects how long the visited set lives.
type VisitedScope string

// Supported visited set scopes.
const (
	// VisitedScopeTraversal gives every seed traversal a fresh visited set.
	VisitedScopeTraversal VisitedScope = "traversal"
	// VisitedScopeRun shares one visited set across all seed traversals of a run.
	VisitedScopeRun VisitedScope = "run"
)

// LimitsProfile names a default pair of traversal bounds.
type LimitsProfile string

// Supported limits profiles.
const (
	// LimitsProfileClassic bounds depth to 3 and fan-out to 50 followers per node.
	LimitsProfileClassic LimitsProfile = "classic"
	// LimitsProfileUnbounded removes both bounds.
	LimitsProfileUnbounded LimitsProfile = "unbounded"
)

const (
	classicMaxDepthConstant          = 3
	classicMaxFollowsPerNodeConstant = 50
	strategyInvalidTemplateConstant  = "unsupported traversal strategy %q (expected dfs or bfs)"
	scopeInvalidTemplateConstant     = "unsupported visited scope %q (expected traversal or run)"
	profileInvalidTemplateConstant   = "unsupported limits profile %q (expected classic or unbounded)"
)

// Configuration is immutable for the duration of one traversal.
type Configuration struct {
	Strategy          Strategy
	MaxDepth          Bound
	MaxFollowsPerNode Bound
}

// ParseStrategy normalizes a strategy name.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case StrategyDepthFirst:
		return StrategyDepthFirst, nil
	case StrategyBreadthFirst:
		return StrategyBreadthFirst, nil
	default:
		return "", fmt.Errorf(strategyInvalidTemplateConstant, value)
	}
}

// ParseVisitedScope normalizes a visited scope name.
func ParseVisitedScope(value string) (VisitedScope, error) {
	switch VisitedScope(strings.ToLower(strings.TrimSpace(value))) {
	case VisitedScopeTraversal:
		return VisitedScopeTraversal, nil
	case VisitedScopeRun:
		return VisitedScopeRun, nil
	default:
		return "", fmt.Errorf(scopeInvalidTemplateConstant, value)
	}
}

// ParseLimitsProfile normalizes a limits profile name.
func ParseLimitsProfile(value string) (LimitsProfile, error) {
	switch LimitsProfile(strings.ToLower(strings.TrimSpace(value))) {
	case LimitsProfileClassic:
		return LimitsProfileClassic, nil
	case LimitsProfileUnbounded:
		return LimitsProfileUnbounded, nil
	default:
		return "", fmt.Errorf(profileInvalidTemplateConstant, value)
	}
}

// ProfileConfiguration returns the configuration a limits profile describes for strategy.
func ProfileConfiguration(profile LimitsProfile, strategy Strategy) Configuration {
	if profile == LimitsProfileUnbounded {
		return Configuration{Strategy: strategy, MaxDepth: Unbounded(), MaxFollowsPerNode: Unbounded()}
	}
	return Configuration{
		Strategy:          strategy,
		MaxDepth:          Bound{limit: classicMaxDepthConstant, bounded: true},
		MaxFollowsPerNode: Bound{limit: classicMaxFollowsPerNodeConstant, bounded: true},
	}
}

// FullyUnbounded reports whether neither depth nor fan-out is limited, in which case traversal
// ends only when the reachable follower graph is exhausted.
func (configuration Configuration) FullyUnbounded() bool {
	return !configuration.MaxDepth.IsBounded() && !configuration.MaxFollowsPerNode.IsBounded()
}

// Validate confirms the strategy is supported.
func (configuration Configuration) Validate() error {
	_, strategyError := ParseStrategy(string(configuration.Strategy))
	return strategyError
}
