package traversal_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/ghfollow/internal/relationships"
	"github.com/temirov/ghfollow/internal/traversal"
)

const (
	testSelfAccountConstant         = "hubot"
	testRootAccountConstant         = "root"
	testSubtestNameTemplateConstant = "%d_%s"
)

type fetchCall struct {
	account string
	limit   int
}

type graphSource struct {
	graph   map[string][]string
	failing map[string]error
	fetches []fetchCall
}

func (source *graphSource) FetchFollowersOf(executionContext context.Context, account string, limit int) ([]string, error) {
	source.fetches = append(source.fetches, fetchCall{account: account, limit: limit})
	if lookupError, failing := source.failing[account]; failing {
		return []string{}, lookupError
	}
	followers := source.graph[account]
	if limit > 0 && len(followers) > limit {
		followers = followers[:limit]
	}
	duplicated := make([]string, len(followers))
	copy(duplicated, followers)
	return duplicated, nil
}

func (source *graphSource) fetchedAccounts() []string {
	accounts := make([]string, 0, len(source.fetches))
	for _, fetch := range source.fetches {
		accounts = append(accounts, fetch.account)
	}
	return accounts
}

type sessionPerformer struct {
	sessionFollowed *relationships.SessionFollowedSet
	failing         map[string]bool
	attempts        []string
}

func (performer *sessionPerformer) Follow(executionContext context.Context, account string) bool {
	performer.attempts = append(performer.attempts, account)
	if performer.failing[account] {
		return false
	}
	performer.sessionFollowed.Record(account)
	return true
}

type recordingObserver struct {
	expanded    []traversal.Node
	followed    []string
	pruned      []traversal.Node
	unavailable []string
	levels      []int
}

func (observer *recordingObserver) NodeExpanding(node traversal.Node) {
	observer.expanded = append(observer.expanded, node)
}

func (observer *recordingObserver) FollowerFollowed(account string, parent traversal.Node) {
	observer.followed = append(observer.followed, account)
}

func (observer *recordingObserver) NodePruned(node traversal.Node) {
	observer.pruned = append(observer.pruned, node)
}

func (observer *recordingObserver) FollowersUnavailable(node traversal.Node, reason string) {
	observer.unavailable = append(observer.unavailable, node.Account+": "+reason)
}

func (observer *recordingObserver) LevelCompleted(depth int, nodes int) {
	observer.levels = append(observer.levels, depth)
}

type engineFixture struct {
	source          *graphSource
	performer       *sessionPerformer
	observer        *recordingObserver
	following       *relationships.AccountSet
	sessionFollowed *relationships.SessionFollowedSet
	visited         *traversal.VisitedSet
}

func newEngineFixture(graph map[string][]string, following ...string) *engineFixture {
	sessionFollowed := relationships.NewSessionFollowedSet()
	return &engineFixture{
		source:          &graphSource{graph: graph, failing: map[string]error{}},
		performer:       &sessionPerformer{sessionFollowed: sessionFollowed, failing: map[string]bool{}},
		observer:        &recordingObserver{},
		following:       relationships.NewAccountSet(following...),
		sessionFollowed: sessionFollowed,
		visited:         traversal.NewVisitedSet(),
	}
}

func (fixture *engineFixture) run(testInstance *testing.T, configuration traversal.Configuration, seed string) traversal.Statistics {
	testInstance.Helper()
	engine, engineError := traversal.NewEngine(traversal.Dependencies{
		Logger:          zap.NewNop(),
		Followers:       fixture.source,
		Performer:       fixture.performer,
		Following:       fixture.following,
		SessionFollowed: fixture.sessionFollowed,
		Visited:         fixture.visited,
		Observer:        fixture.observer,
	}, configuration, testSelfAccountConstant)
	require.NoError(testInstance, engineError)

	statistics, runError := engine.Run(context.Background(), seed)
	require.NoError(testInstance, runError)
	return statistics
}

func boundedConfiguration(testInstance *testing.T, strategy traversal.Strategy, maxDepth int, maxFollows int) traversal.Configuration {
	testInstance.Helper()
	configuration := traversal.Configuration{Strategy: strategy, MaxDepth: traversal.Unbounded(), MaxFollowsPerNode: traversal.Unbounded()}
	if maxDepth > 0 {
		depthBound, depthError := traversal.NewBound(maxDepth)
		require.NoError(testInstance, depthError)
		configuration.MaxDepth = depthBound
	}
	if maxFollows > 0 {
		followsBound, followsError := traversal.NewBound(maxFollows)
		require.NoError(testInstance, followsError)
		configuration.MaxFollowsPerNode = followsBound
	}
	return configuration
}

func TestEngineCycleScenarioFollowsEachAccountOnce(testInstance *testing.T) {
	for strategyIndex, strategy := range []traversal.Strategy{traversal.StrategyDepthFirst, traversal.StrategyBreadthFirst} {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, strategyIndex, strategy), func(testInstance *testing.T) {
			fixture := newEngineFixture(map[string][]string{
				testRootAccountConstant: {"x", "y"},
				"x":                     {"y"},
			})

			statistics := fixture.run(testInstance, boundedConfiguration(testInstance, strategy, 5, 0), testRootAccountConstant)

			require.Equal(testInstance, []string{"x", "y"}, fixture.performer.attempts)
			require.Equal(testInstance, 2, statistics.Followed)
			require.Equal(testInstance, 1, statistics.Skipped)
			require.ElementsMatch(testInstance, []string{testRootAccountConstant, "x", "y"}, fixture.source.fetchedAccounts())
			require.Equal(testInstance, 3, fixture.visited.Len())
		})
	}
}

func TestEngineNeverFollowsVisitedAccounts(testInstance *testing.T) {
	for strategyIndex, strategy := range []traversal.Strategy{traversal.StrategyDepthFirst, traversal.StrategyBreadthFirst} {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, strategyIndex, strategy), func(testInstance *testing.T) {
			fixture := newEngineFixture(map[string][]string{
				testRootAccountConstant: {"x"},
				"x":                     {testRootAccountConstant},
			})

			statistics := fixture.run(testInstance, boundedConfiguration(testInstance, strategy, 5, 0), testRootAccountConstant)

			require.Equal(testInstance, []string{"x"}, fixture.performer.attempts)
			require.Equal(testInstance, 1, statistics.Followed)
			require.Equal(testInstance, 1, statistics.Skipped)
			require.Zero(testInstance, statistics.CyclesSkipped)
			require.False(testInstance, fixture.sessionFollowed.Contains(testRootAccountConstant))
			require.Equal(testInstance, []string{testRootAccountConstant, "x"}, fixture.source.fetchedAccounts())
		})
	}
}

func TestEngineCountsFollowerLookupFailures(testInstance *testing.T) {
	for strategyIndex, strategy := range []traversal.Strategy{traversal.StrategyDepthFirst, traversal.StrategyBreadthFirst} {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, strategyIndex, strategy), func(testInstance *testing.T) {
			fixture := newEngineFixture(map[string][]string{
				testRootAccountConstant: {"a", "b"},
				"b":                     {"c"},
			})
			fixture.source.failing["a"] = errors.New("502 bad gateway")

			statistics := fixture.run(testInstance, boundedConfiguration(testInstance, strategy, 3, 0), testRootAccountConstant)

			require.Equal(testInstance, []string{"a", "b", "c"}, fixture.observer.followed)
			require.Equal(testInstance, 1, statistics.FetchFailures)
			require.Equal(testInstance, []string{"a: 502 bad gateway"}, fixture.observer.unavailable)
			require.Equal(testInstance, 4, statistics.NodesExpanded)
		})
	}
}

func TestEngineDepthFirstExhaustsBranchBeforeSibling(testInstance *testing.T) {
	fixture := newEngineFixture(map[string][]string{
		testRootAccountConstant: {"a", "b"},
		"a":                     {"c"},
		"c":                     {"d"},
		"b":                     {"e"},
	})

	statistics := fixture.run(testInstance, boundedConfiguration(testInstance, traversal.StrategyDepthFirst, 0, 0), testRootAccountConstant)

	require.Equal(testInstance, []string{"a", "c", "d", "b", "e"}, fixture.observer.followed)
	require.Equal(testInstance, []string{testRootAccountConstant, "a", "c", "d", "b", "e"}, fixture.source.fetchedAccounts())
	require.Equal(testInstance, 3, statistics.MaxDepthReached)
	require.Equal(testInstance, 6, statistics.NodesExpanded)
	require.Equal(testInstance, 6, statistics.NodesProcessed)
	require.Zero(testInstance, statistics.LevelsProcessed)

	for _, node := range fixture.observer.expanded {
		if node.Account == "d" {
			require.Equal(testInstance, 3, node.Depth)
			require.Equal(testInstance, "c", node.Parent)
		}
	}
}

func TestEngineBreadthFirstProcessesLevelsInOrder(testInstance *testing.T) {
	fixture := newEngineFixture(map[string][]string{
		testRootAccountConstant: {"a", "b"},
		"a":                     {"c"},
		"b":                     {"d"},
		"c":                     {"e"},
	})

	statistics := fixture.run(testInstance, boundedConfiguration(testInstance, traversal.StrategyBreadthFirst, 0, 0), testRootAccountConstant)

	require.Equal(testInstance, []string{"a", "b", "c", "d", "e"}, fixture.observer.followed)
	require.Equal(testInstance, []string{testRootAccountConstant, "a", "b", "c", "d", "e"}, fixture.source.fetchedAccounts())

	previousDepth := 0
	for _, node := range fixture.observer.expanded {
		require.GreaterOrEqual(testInstance, node.Depth, previousDepth)
		previousDepth = node.Depth
	}
	require.Equal(testInstance, []int{0, 1, 2, 3}, fixture.observer.levels)
	require.Equal(testInstance, 4, statistics.LevelsProcessed)
	require.Equal(testInstance, 3, statistics.MaxDepthReached)
}

func TestEngineRespectsDepthBound(testInstance *testing.T) {
	for strategyIndex, strategy := range []traversal.Strategy{traversal.StrategyDepthFirst, traversal.StrategyBreadthFirst} {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, strategyIndex, strategy), func(testInstance *testing.T) {
			fixture := newEngineFixture(map[string][]string{
				testRootAccountConstant: {"a"},
				"a":                     {"b"},
				"b":                     {"c"},
			})

			statistics := fixture.run(testInstance, boundedConfiguration(testInstance, strategy, 2, 0), testRootAccountConstant)

			require.Equal(testInstance, []string{testRootAccountConstant, "a"}, fixture.source.fetchedAccounts())
			require.Equal(testInstance, []string{"a", "b"}, fixture.performer.attempts)
			require.Len(testInstance, fixture.observer.pruned, 1)
			require.Equal(testInstance, "b", fixture.observer.pruned[0].Account)
			require.Equal(testInstance, 2, fixture.observer.pruned[0].Depth)
			require.False(testInstance, fixture.visited.Contains("b"))

			require.Equal(testInstance, 3, statistics.NodesProcessed)
			require.Equal(testInstance, 2, statistics.NodesExpanded)
			require.Equal(testInstance, 1, statistics.NodesPruned)
			require.Equal(testInstance, 2, statistics.Followed)
			require.Equal(testInstance, 2, statistics.MaxDepthReached)
			for _, expandedNode := range fixture.observer.expanded {
				require.Less(testInstance, expandedNode.Depth, 2)
			}
		})
	}
}

func TestEngineRespectsFanOutBound(testInstance *testing.T) {
	for strategyIndex, strategy := range []traversal.Strategy{traversal.StrategyDepthFirst, traversal.StrategyBreadthFirst} {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, strategyIndex, strategy), func(testInstance *testing.T) {
			fixture := newEngineFixture(map[string][]string{
				testRootAccountConstant: {"a", "b", "c", "d"},
			})

			statistics := fixture.run(testInstance, boundedConfiguration(testInstance, strategy, 1, 2), testRootAccountConstant)

			require.Equal(testInstance, []fetchCall{{account: testRootAccountConstant, limit: 2}}, fixture.source.fetches)
			require.Equal(testInstance, []string{"a", "b"}, fixture.performer.attempts)
			require.Equal(testInstance, 2, statistics.Followed)
		})
	}
}

func TestEngineSkipsIneligibleCandidates(testInstance *testing.T) {
	for strategyIndex, strategy := range []traversal.Strategy{traversal.StrategyDepthFirst, traversal.StrategyBreadthFirst} {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, strategyIndex, strategy), func(testInstance *testing.T) {
			fixture := newEngineFixture(map[string][]string{
				testRootAccountConstant: {testSelfAccountConstant, "known", "session", "fresh", "broken"},
			}, "known")
			fixture.sessionFollowed.Record("session")
			fixture.performer.failing["broken"] = true

			statistics := fixture.run(testInstance, boundedConfiguration(testInstance, strategy, 3, 0), testRootAccountConstant)

			require.Equal(testInstance, []string{"fresh", "broken"}, fixture.performer.attempts)
			require.Equal(testInstance, 1, statistics.Followed)
			require.Equal(testInstance, 4, statistics.Skipped)
			require.Equal(testInstance, 1, statistics.FollowFailures)
			require.Equal(testInstance, []string{testRootAccountConstant, "fresh"}, fixture.source.fetchedAccounts())
			require.False(testInstance, fixture.visited.Contains(testSelfAccountConstant))
		})
	}
}

func TestEngineUnboundedTerminatesOnCyclicGraph(testInstance *testing.T) {
	for strategyIndex, strategy := range []traversal.Strategy{traversal.StrategyDepthFirst, traversal.StrategyBreadthFirst} {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, strategyIndex, strategy), func(testInstance *testing.T) {
			fixture := newEngineFixture(map[string][]string{
				testRootAccountConstant: {"a"},
				"a":                     {"b", testRootAccountConstant},
				"b":                     {"a", "c", testRootAccountConstant},
				"c":                     {testRootAccountConstant, "a", "b"},
			})

			configuration := traversal.ProfileConfiguration(traversal.LimitsProfileUnbounded, strategy)
			require.True(testInstance, configuration.FullyUnbounded())

			statistics := fixture.run(testInstance, configuration, testRootAccountConstant)
			require.Equal(testInstance, 4, fixture.visited.Len())
			require.Equal(testInstance, 3, statistics.MaxDepthReached)

			fetchedAccounts := fixture.source.fetchedAccounts()
			require.ElementsMatch(testInstance, []string{testRootAccountConstant, "a", "b", "c"}, fetchedAccounts)
		})
	}
}

func TestEngineSharedVisitedSetAcrossSeeds(testInstance *testing.T) {
	fixture := newEngineFixture(map[string][]string{
		testRootAccountConstant: {"a"},
		"other":                 {"a", "b"},
	})
	configuration := boundedConfiguration(testInstance, traversal.StrategyBreadthFirst, 3, 0)

	firstStatistics := fixture.run(testInstance, configuration, testRootAccountConstant)
	require.Equal(testInstance, 1, firstStatistics.Followed)

	secondStatistics := fixture.run(testInstance, configuration, "other")
	require.Equal(testInstance, 1, secondStatistics.Followed)
	require.Equal(testInstance, 1, secondStatistics.Skipped)

	repeatedStatistics := fixture.run(testInstance, configuration, testRootAccountConstant)
	require.Equal(testInstance, 1, repeatedStatistics.CyclesSkipped)
	require.Zero(testInstance, repeatedStatistics.NodesProcessed)
	require.Zero(testInstance, repeatedStatistics.LevelsProcessed)
}

func TestEngineStopsOnCancelledContext(testInstance *testing.T) {
	for strategyIndex, strategy := range []traversal.Strategy{traversal.StrategyDepthFirst, traversal.StrategyBreadthFirst} {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, strategyIndex, strategy), func(testInstance *testing.T) {
			fixture := newEngineFixture(map[string][]string{testRootAccountConstant: {"a", "b"}})
			engine, engineError := traversal.NewEngine(traversal.Dependencies{
				Followers:       fixture.source,
				Performer:       fixture.performer,
				Following:       fixture.following,
				SessionFollowed: fixture.sessionFollowed,
			}, boundedConfiguration(testInstance, strategy, 3, 0), testSelfAccountConstant)
			require.NoError(testInstance, engineError)

			executionContext, cancel := context.WithCancel(context.Background())
			cancel()

			_, runError := engine.Run(executionContext, testRootAccountConstant)
			require.ErrorIs(testInstance, runError, context.Canceled)
			require.Empty(testInstance, fixture.performer.attempts)
		})
	}
}

func TestEngineRejectsInvalidSeeds(testInstance *testing.T) {
	fixture := newEngineFixture(map[string][]string{})
	engine, engineError := traversal.NewEngine(traversal.Dependencies{
		Followers:       fixture.source,
		Performer:       fixture.performer,
		Following:       fixture.following,
		SessionFollowed: fixture.sessionFollowed,
	}, traversal.ProfileConfiguration(traversal.LimitsProfileClassic, traversal.StrategyDepthFirst), testSelfAccountConstant)
	require.NoError(testInstance, engineError)

	_, selfError := engine.Run(context.Background(), testSelfAccountConstant)
	require.ErrorIs(testInstance, selfError, traversal.ErrSeedIsSelf)

	_, emptyError := engine.Run(context.Background(), "")
	require.ErrorIs(testInstance, emptyError, traversal.ErrSeedMissing)
	require.Empty(testInstance, fixture.source.fetches)
}

func TestNewEngineValidatesDependencies(testInstance *testing.T) {
	fixture := newEngineFixture(map[string][]string{})
	configuration := traversal.ProfileConfiguration(traversal.LimitsProfileClassic, traversal.StrategyBreadthFirst)

	_, sourceError := traversal.NewEngine(traversal.Dependencies{Performer: fixture.performer, Following: fixture.following, SessionFollowed: fixture.sessionFollowed}, configuration, testSelfAccountConstant)
	require.ErrorIs(testInstance, sourceError, traversal.ErrFollowerSourceNotConfigured)

	_, performerError := traversal.NewEngine(traversal.Dependencies{Followers: fixture.source, Following: fixture.following, SessionFollowed: fixture.sessionFollowed}, configuration, testSelfAccountConstant)
	require.ErrorIs(testInstance, performerError, traversal.ErrFollowPerformerNotConfigured)

	_, setsError := traversal.NewEngine(traversal.Dependencies{Followers: fixture.source, Performer: fixture.performer}, configuration, testSelfAccountConstant)
	require.ErrorIs(testInstance, setsError, traversal.ErrRelationshipSetsNotConfigured)

	configuration.Strategy = "astar"
	_, strategyError := traversal.NewEngine(traversal.Dependencies{Followers: fixture.source, Performer: fixture.performer, Following: fixture.following, SessionFollowed: fixture.sessionFollowed}, configuration, testSelfAccountConstant)
	require.Error(testInstance, strategyError)
}
