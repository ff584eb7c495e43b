package reconcile_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ghfollow/internal/reconcile"
	"github.com/temirov/ghfollow/internal/relationships"
)

const (
	testActionDelayConstant         = time.Second
	testSubtestNameTemplateConstant = "%d_%s"
)

type performedAction struct {
	kind    relationships.ActionKind
	account string
}

type stubPerformer struct {
	failing map[string]bool
	actions []performedAction
}

func (performer *stubPerformer) Follow(executionContext context.Context, account string) bool {
	performer.actions = append(performer.actions, performedAction{kind: relationships.ActionKindFollow, account: account})
	return !performer.failing[account]
}

func (performer *stubPerformer) Unfollow(executionContext context.Context, account string) bool {
	performer.actions = append(performer.actions, performedAction{kind: relationships.ActionKindUnfollow, account: account})
	return !performer.failing[account]
}

type recordingSleeper struct {
	durations []time.Duration
}

func (sleeper *recordingSleeper) Sleep(executionContext context.Context, duration time.Duration) error {
	sleeper.durations = append(sleeper.durations, duration)
	return nil
}

type recordingObserver struct {
	completed []performedAction
	outcomes  []bool
}

func (observer *recordingObserver) ActionCompleted(kind relationships.ActionKind, account string, succeeded bool) {
	observer.completed = append(observer.completed, performedAction{kind: kind, account: account})
	observer.outcomes = append(observer.outcomes, succeeded)
}

func TestBuildPlan(testInstance *testing.T) {
	testCases := []struct {
		name               string
		following          []string
		followers          []string
		expectedToFollow   []string
		expectedToUnfollow []string
	}{
		{
			name:               "PartialOverlap",
			following:          []string{"a", "b", "c"},
			followers:          []string{"b", "c", "d"},
			expectedToFollow:   []string{"d"},
			expectedToUnfollow: []string{"a"},
		},
		{
			name:               "AlreadyMutual",
			following:          []string{"a", "b"},
			followers:          []string{"b", "a"},
			expectedToFollow:   []string{},
			expectedToUnfollow: []string{},
		},
		{
			name:               "OrderFollowsSourceLists",
			following:          []string{"z", "y"},
			followers:          []string{"c", "b", "a"},
			expectedToFollow:   []string{"c", "b", "a"},
			expectedToUnfollow: []string{"z", "y"},
		},
		{
			name:               "Empty",
			expectedToFollow:   []string{},
			expectedToUnfollow: []string{},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			following := relationships.NewAccountSet(testCase.following...)
			followers := relationships.NewAccountSet(testCase.followers...)

			plan := reconcile.BuildPlan(following, followers)
			require.Equal(testInstance, testCase.expectedToFollow, plan.ToFollow)
			require.Equal(testInstance, testCase.expectedToUnfollow, plan.ToUnfollow)
			require.Equal(testInstance, len(testCase.expectedToFollow)+len(testCase.expectedToUnfollow) == 0, plan.Empty())

			for _, account := range plan.ToFollow {
				require.True(testInstance, followers.Contains(account))
				require.False(testInstance, following.Contains(account))
			}
			for _, account := range plan.ToUnfollow {
				require.True(testInstance, following.Contains(account))
				require.False(testInstance, followers.Contains(account))
			}
		})
	}
}

func TestReconcilerExecute(testInstance *testing.T) {
	testCases := []struct {
		name              string
		options           reconcile.ExecutionOptions
		failing           map[string]bool
		expectedActions   []performedAction
		expectedResult    reconcile.Result
		expectedSleeps    int
		expectedFollowing []string
	}{
		{
			name:    "BothPhasesWithDelays",
			options: reconcile.ExecutionOptions{ActionDelay: testActionDelayConstant},
			expectedActions: []performedAction{
				{kind: relationships.ActionKindFollow, account: "d"},
				{kind: relationships.ActionKindFollow, account: "e"},
				{kind: relationships.ActionKindUnfollow, account: "a"},
			},
			expectedResult:    reconcile.Result{Followed: 2, Unfollowed: 1},
			expectedSleeps:    1,
			expectedFollowing: []string{"b", "c", "d", "e"},
		},
		{
			name:    "DryRunSkipsDelays",
			options: reconcile.ExecutionOptions{DryRun: true, ActionDelay: testActionDelayConstant},
			expectedActions: []performedAction{
				{kind: relationships.ActionKindFollow, account: "d"},
				{kind: relationships.ActionKindFollow, account: "e"},
				{kind: relationships.ActionKindUnfollow, account: "a"},
			},
			expectedResult:    reconcile.Result{Followed: 2, Unfollowed: 1},
			expectedSleeps:    0,
			expectedFollowing: []string{"b", "c", "d", "e"},
		},
		{
			name:    "SkipFollowBack",
			options: reconcile.ExecutionOptions{SkipFollowBack: true, ActionDelay: testActionDelayConstant},
			expectedActions: []performedAction{
				{kind: relationships.ActionKindUnfollow, account: "a"},
			},
			expectedResult:    reconcile.Result{Unfollowed: 1, FollowSkipped: true},
			expectedSleeps:    0,
			expectedFollowing: []string{"b", "c"},
		},
		{
			name:    "SkipUnfollow",
			options: reconcile.ExecutionOptions{SkipUnfollow: true, ActionDelay: testActionDelayConstant},
			expectedActions: []performedAction{
				{kind: relationships.ActionKindFollow, account: "d"},
				{kind: relationships.ActionKindFollow, account: "e"},
			},
			expectedResult:    reconcile.Result{Followed: 2, UnfollowSkipped: true},
			expectedSleeps:    1,
			expectedFollowing: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:    "FailuresAreCounted",
			options: reconcile.ExecutionOptions{},
			failing: map[string]bool{"d": true, "a": true},
			expectedActions: []performedAction{
				{kind: relationships.ActionKindFollow, account: "d"},
				{kind: relationships.ActionKindFollow, account: "e"},
				{kind: relationships.ActionKindUnfollow, account: "a"},
			},
			expectedResult:    reconcile.Result{Followed: 1, FollowFailures: 1, UnfollowFailures: 1},
			expectedSleeps:    0,
			expectedFollowing: []string{"a", "b", "c", "e"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			following := relationships.NewAccountSet("a", "b", "c")
			followers := relationships.NewAccountSet("b", "c", "d", "e")
			performer := &stubPerformer{failing: testCase.failing}
			sleeper := &recordingSleeper{}
			observer := &recordingObserver{}

			reconciler, reconcilerError := reconcile.NewReconciler(reconcile.Dependencies{
				Performer: performer,
				Sleeper:   sleeper,
				Following: following,
				Observer:  observer,
			})
			require.NoError(testInstance, reconcilerError)

			plan := reconcile.BuildPlan(following, followers)
			result, executeError := reconciler.Execute(context.Background(), plan, testCase.options)
			require.NoError(testInstance, executeError)

			require.Equal(testInstance, testCase.expectedResult, result)
			require.Equal(testInstance, testCase.expectedActions, performer.actions)
			require.Equal(testInstance, testCase.expectedActions, observer.completed)
			require.Len(testInstance, sleeper.durations, testCase.expectedSleeps)
			for _, sleptDuration := range sleeper.durations {
				require.Equal(testInstance, testActionDelayConstant, sleptDuration)
			}
			require.ElementsMatch(testInstance, testCase.expectedFollowing, following.Accounts())
		})
	}
}

func TestReconcilerStopsOnCancelledContext(testInstance *testing.T) {
	following := relationships.NewAccountSet()
	performer := &stubPerformer{}
	reconciler, reconcilerError := reconcile.NewReconciler(reconcile.Dependencies{Performer: performer, Following: following})
	require.NoError(testInstance, reconcilerError)

	executionContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, executeError := reconciler.Execute(executionContext, reconcile.Plan{ToFollow: []string{"a"}}, reconcile.ExecutionOptions{})
	require.ErrorIs(testInstance, executeError, context.Canceled)
	require.Empty(testInstance, performer.actions)
}

func TestNewReconcilerRequiresCollaborators(testInstance *testing.T) {
	_, performerError := reconcile.NewReconciler(reconcile.Dependencies{Following: relationships.NewAccountSet()})
	require.ErrorIs(testInstance, performerError, reconcile.ErrActionPerformerNotConfigured)

	_, followingError := reconcile.NewReconciler(reconcile.Dependencies{Performer: &stubPerformer{}})
	require.ErrorIs(testInstance, followingError, reconcile.ErrFollowingSetNotConfigured)
}
