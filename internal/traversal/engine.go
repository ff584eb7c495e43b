package traversal

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/ghfollow/internal/metrics"
	"github.com/temirov/ghfollow/internal/relationships"
)

const (
	followerSourceMissingMessageConstant   = "follower source not configured"
	followPerformerMissingMessageConstant  = "follow performer not configured"
	relationshipSetsMissingMessageConstant = "following and session-followed sets must be configured"
	seedMissingMessageConstant             = "traversal seed account must be provided"
	seedIsSelfMessageConstant              = "traversal seed must differ from the authenticated account"
	traversalStartedLogMessageConstant     = "Traversal started"
	traversalCompletedLogMessageConstant   = "Traversal completed"
	nodePrunedLogMessageConstant           = "Node pruned by depth"
	cycleSkippedLogMessageConstant         = "Node already visited"
	seedLogFieldConstant                   = "seed"
	strategyLogFieldConstant               = "strategy"
	maxDepthLogFieldConstant               = "max_depth"
	maxFollowsLogFieldConstant             = "max_follows_per_node"
	accountLogFieldConstant                = "account"
	depthLogFieldConstant                  = "depth"
	processedLogFieldConstant              = "processed"
	followedLogFieldConstant               = "followed"
)

var (
	// ErrFollowerSourceNotConfigured indicates the engine was constructed without a follower source.
	ErrFollowerSourceNotConfigured = errors.New(followerSourceMissingMessageConstant)
	// ErrFollowPerformerNotConfigured indicates the engine was constructed without a follow performer.
	ErrFollowPerformerNotConfigured = errors.New(followPerformerMissingMessageConstant)
	// ErrRelationshipSetsNotConfigured indicates the engine was constructed without relationship sets.
	ErrRelationshipSetsNotConfigured = errors.New(relationshipSetsMissingMessageConstant)
	// ErrSeedMissing indicates Run was called with an empty seed.
	ErrSeedMissing = errors.New(seedMissingMessageConstant)
	// ErrSeedIsSelf indicates Run was called with the authenticated account as seed.
	ErrSeedIsSelf = errors.New(seedIsSelfMessageConstant)
)

// FollowerSource fetches up to limit followers of an account; a limit of zero means every follower.
// A failed lookup returns the followers collected before the failure along with the error.
type FollowerSource interface {
	FetchFollowersOf(executionContext context.Context, account string, limit int) ([]string, error)
}

// FollowPerformer follows an account and reports success.
type FollowPerformer interface {
	Follow(executionContext context.Context, account string) bool
}

// Node is one account scheduled for processing.
type Node struct {
	Account string
	Depth   int
	Parent  string
}

// Observer receives traversal progress events.
type Observer interface {
	NodeExpanding(node Node)
	FollowerFollowed(account string, parent Node)
	NodePruned(node Node)
	FollowersUnavailable(node Node, reason string)
	LevelCompleted(depth int, nodes int)
}

// Statistics aggregates the outcome of one traversal.
type Statistics struct {
	NodesProcessed  int `yaml:"nodes_processed"`
	NodesExpanded   int `yaml:"nodes_expanded"`
	NodesPruned     int `yaml:"nodes_pruned"`
	CyclesSkipped   int `yaml:"cycles_skipped"`
	Followed        int `yaml:"followed"`
	Skipped         int `yaml:"skipped"`
	FollowFailures  int `yaml:"follow_failures"`
	FetchFailures   int `yaml:"fetch_failures"`
	MaxDepthReached int `yaml:"max_depth_reached"`
	LevelsProcessed int `yaml:"levels_processed"`
}

// Dependencies enumerates collaborators used by Engine.
type Dependencies struct {
	Logger          *zap.Logger
	Followers       FollowerSource
	Performer       FollowPerformer
	Following       *relationships.AccountSet
	SessionFollowed *relationships.SessionFollowedSet
	Visited         *VisitedSet
	Observer        Observer
	Metrics         metrics.Recorder
}

// Engine explores the follower network of a seed account. An Engine serves a single Run.
type Engine struct {
	logger          *zap.Logger
	followers       FollowerSource
	performer       FollowPerformer
	following       *relationships.AccountSet
	sessionFollowed *relationships.SessionFollowedSet
	visited         *VisitedSet
	observer        Observer
	metrics         metrics.Recorder
	configuration   Configuration
	selfAccount     string
	statistics      Statistics
}

type depthFirstFrame struct {
	node      Node
	followers []string
	nextIndex int
}

// NewEngine constructs an Engine. A nil Visited set gives the engine its own.
func NewEngine(dependencies Dependencies, configuration Configuration, selfAccount string) (*Engine, error) {
	if dependencies.Followers == nil {
		return nil, ErrFollowerSourceNotConfigured
	}
	if dependencies.Performer == nil {
		return nil, ErrFollowPerformerNotConfigured
	}
	if dependencies.Following == nil || dependencies.SessionFollowed == nil {
		return nil, ErrRelationshipSetsNotConfigured
	}
	if validationError := configuration.Validate(); validationError != nil {
		return nil, validationError
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	visited := dependencies.Visited
	if visited == nil {
		visited = NewVisitedSet()
	}
	observer := dependencies.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	recorder := dependencies.Metrics
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}

	return &Engine{
		logger:          logger,
		followers:       dependencies.Followers,
		performer:       dependencies.Performer,
		following:       dependencies.Following,
		sessionFollowed: dependencies.SessionFollowed,
		visited:         visited,
		observer:        observer,
		metrics:         recorder,
		configuration:   configuration,
		selfAccount:     selfAccount,
	}, nil
}

// Run traverses from seed with the configured strategy. Statistics gathered before a cancellation are returned with the context error.
func (engine *Engine) Run(executionContext context.Context, seed string) (Statistics, error) {
	if len(seed) == 0 {
		return Statistics{}, ErrSeedMissing
	}
	if seed == engine.selfAccount {
		return Statistics{}, ErrSeedIsSelf
	}

	engine.statistics = Statistics{}
	engine.logger.Info(
		traversalStartedLogMessageConstant,
		zap.String(seedLogFieldConstant, seed),
		zap.String(strategyLogFieldConstant, string(engine.configuration.Strategy)),
		zap.Stringer(maxDepthLogFieldConstant, engine.configuration.MaxDepth),
		zap.Stringer(maxFollowsLogFieldConstant, engine.configuration.MaxFollowsPerNode),
	)

	var runError error
	switch engine.configuration.Strategy {
	case StrategyBreadthFirst:
		runError = engine.runBreadthFirst(executionContext, seed)
	default:
		runError = engine.runDepthFirst(executionContext, seed)
	}

	engine.logger.Info(
		traversalCompletedLogMessageConstant,
		zap.String(seedLogFieldConstant, seed),
		zap.Int(processedLogFieldConstant, engine.statistics.NodesProcessed),
		zap.Int(followedLogFieldConstant, engine.statistics.Followed),
	)
	return engine.statistics, runError
}

// runDepthFirst keeps one frame per expanded node. A successful follow enters the child before the
// parent's next sibling is examined, which reproduces recursive descent order. Visited accounts,
// the seed included, are never followed.
func (engine *Engine) runDepthFirst(executionContext context.Context, seed string) error {
	stack := make([]*depthFirstFrame, 0)
	if frame := engine.enterDepthFirst(executionContext, Node{Account: seed}); frame != nil {
		stack = append(stack, frame)
	}

	for len(stack) > 0 {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}

		top := stack[len(stack)-1]
		if top.nextIndex >= len(top.followers) {
			stack = stack[:len(stack)-1]
			continue
		}

		follower := top.followers[top.nextIndex]
		top.nextIndex++

		if !engine.eligible(follower) || engine.visited.Contains(follower) {
			engine.statistics.Skipped++
			continue
		}
		if !engine.follow(executionContext, follower, top.node) {
			continue
		}

		child := Node{Account: follower, Depth: top.node.Depth + 1, Parent: top.node.Account}
		if frame := engine.enterDepthFirst(executionContext, child); frame != nil {
			stack = append(stack, frame)
		}
	}

	return nil
}

func (engine *Engine) enterDepthFirst(executionContext context.Context, node Node) *depthFirstFrame {
	if engine.configuration.MaxDepth.Reached(node.Depth) {
		engine.prune(node)
		return nil
	}
	if !engine.visited.Mark(node.Account) {
		engine.skipCycle(node)
		return nil
	}
	return &depthFirstFrame{node: node, followers: engine.expand(executionContext, node)}
}

func (engine *Engine) runBreadthFirst(executionContext context.Context, seed string) error {
	queue := []Node{{Account: seed}}
	queued := map[string]struct{}{seed: {}}
	currentLevel := 0
	levelNodes := 0

	for len(queue) > 0 {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}

		node := queue[0]
		queue = queue[1:]

		if node.Depth > currentLevel {
			engine.completeLevel(currentLevel, levelNodes)
			currentLevel = node.Depth
			levelNodes = 0
		}

		if engine.configuration.MaxDepth.Reached(node.Depth) {
			engine.prune(node)
			levelNodes++
			continue
		}
		if !engine.visited.Mark(node.Account) {
			engine.skipCycle(node)
			continue
		}
		levelNodes++

		for _, follower := range engine.expand(executionContext, node) {
			_, alreadyQueued := queued[follower]
			if !engine.eligible(follower) || alreadyQueued || engine.visited.Contains(follower) {
				engine.statistics.Skipped++
				continue
			}
			if !engine.follow(executionContext, follower, node) {
				continue
			}

			childDepth := node.Depth + 1
			if !engine.configuration.MaxDepth.Permits(childDepth) {
				continue
			}
			queue = append(queue, Node{Account: follower, Depth: childDepth, Parent: node.Account})
			queued[follower] = struct{}{}
		}
	}

	if engine.statistics.NodesProcessed > 0 {
		engine.completeLevel(currentLevel, levelNodes)
	}
	return nil
}

func (engine *Engine) eligible(account string) bool {
	if account == engine.selfAccount {
		return false
	}
	return !engine.following.Contains(account) && !engine.sessionFollowed.Contains(account)
}

func (engine *Engine) follow(executionContext context.Context, account string, parent Node) bool {
	if !engine.performer.Follow(executionContext, account) {
		engine.statistics.Skipped++
		engine.statistics.FollowFailures++
		return false
	}
	engine.statistics.Followed++
	engine.observer.FollowerFollowed(account, parent)
	return true
}

func (engine *Engine) expand(executionContext context.Context, node Node) []string {
	engine.recordProcessed(node)
	engine.statistics.NodesExpanded++
	engine.metrics.TraversalNode(metrics.NodeStateExpanded)
	engine.observer.NodeExpanding(node)
	followers, fetchError := engine.followers.FetchFollowersOf(executionContext, node.Account, engine.configuration.MaxFollowsPerNode.FetchLimit())
	if fetchError != nil && executionContext.Err() == nil {
		engine.statistics.FetchFailures++
		engine.observer.FollowersUnavailable(node, fetchError.Error())
	}
	return followers
}

func (engine *Engine) prune(node Node) {
	engine.recordProcessed(node)
	engine.statistics.NodesPruned++
	engine.metrics.TraversalNode(metrics.NodeStatePruned)
	engine.observer.NodePruned(node)
	engine.logger.Debug(nodePrunedLogMessageConstant, zap.String(accountLogFieldConstant, node.Account), zap.Int(depthLogFieldConstant, node.Depth))
}

func (engine *Engine) skipCycle(node Node) {
	engine.statistics.CyclesSkipped++
	engine.metrics.TraversalNode(metrics.NodeStateCycleSkipped)
	engine.logger.Debug(cycleSkippedLogMessageConstant, zap.String(accountLogFieldConstant, node.Account), zap.Int(depthLogFieldConstant, node.Depth))
}

func (engine *Engine) recordProcessed(node Node) {
	engine.statistics.NodesProcessed++
	if node.Depth > engine.statistics.MaxDepthReached {
		engine.statistics.MaxDepthReached = node.Depth
	}
	engine.metrics.TraversalDepth(node.Depth)
}

func (engine *Engine) completeLevel(depth int, nodes int) {
	engine.statistics.LevelsProcessed++
	engine.observer.LevelCompleted(depth, nodes)
}

type nopObserver struct{}

func (nopObserver) NodeExpanding(Node)                 {}
func (nopObserver) FollowerFollowed(string, Node)      {}
func (nopObserver) NodePruned(Node)                    {}
func (nopObserver) FollowersUnavailable(Node, string) {}
func (nopObserver) LevelCompleted(int, int)            {}
