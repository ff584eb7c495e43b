package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/ghfollow/internal/run"
)

const (
	testSelfAccountConstant           = "hubot"
	testSeedAccountConstant           = "octocat"
	testConfigurationFileNameConstant = "config.yaml"
	testSubtestNameTemplateConstant   = "%d_%s"
	testConfigurationTemplateConstant = "common:\n  log_level: %s\nrun:\n  dry_run: %t\n  countdown: 0\ntraversal:\n  seeds:\n    - %s\n  strategy: %s\n  max_depth: %s\n"
)

type stubAPI struct {
	mutex       sync.Mutex
	following   []string
	followers   []string
	followersOf map[string][]string
	followCalls []string
	unfollows   []string
}

func (api *stubAPI) GetAuthenticatedAccount(executionContext context.Context) (string, error) {
	return testSelfAccountConstant, nil
}

func (api *stubAPI) ListFollowing(executionContext context.Context, page int, pageSize int) ([]string, error) {
	return firstPage(api.following, page), nil
}

func (api *stubAPI) ListFollowers(executionContext context.Context, page int, pageSize int) ([]string, error) {
	return firstPage(api.followers, page), nil
}

func (api *stubAPI) ListFollowersOf(executionContext context.Context, account string, page int, pageSize int) ([]string, error) {
	return firstPage(api.followersOf[account], page), nil
}

func (api *stubAPI) Follow(executionContext context.Context, account string) error {
	api.mutex.Lock()
	defer api.mutex.Unlock()
	api.followCalls = append(api.followCalls, account)
	return nil
}

func (api *stubAPI) Unfollow(executionContext context.Context, account string) error {
	api.mutex.Lock()
	defer api.mutex.Unlock()
	api.unfollows = append(api.unfollows, account)
	return nil
}

func (api *stubAPI) IsFollowing(executionContext context.Context, account string) (bool, error) {
	return false, nil
}

func firstPage(accounts []string, page int) []string {
	if page > 1 {
		return []string{}
	}
	return accounts
}

type instantSleeper struct{}

func (instantSleeper) Sleep(executionContext context.Context, duration time.Duration) error {
	return executionContext.Err()
}

type applicationFixture struct {
	api         *stubAPI
	application *Application
	output      *bytes.Buffer
}

func newApplicationFixture(testInstance *testing.T, api *stubAPI) *applicationFixture {
	testInstance.Helper()
	isolatedDirectory := testInstance.TempDir()
	testInstance.Setenv("HOME", isolatedDirectory)
	testInstance.Setenv("XDG_CONFIG_HOME", isolatedDirectory)

	application := newApplication(run.CommandBuilder{
		APIResolver: func(executionContext context.Context, configuration run.APIConfiguration, logger *zap.Logger) (run.RemoteAPI, error) {
			return api, nil
		},
		Sleeper: instantSleeper{},
	})
	require.NoError(testInstance, application.buildError)

	output := &bytes.Buffer{}
	application.rootCommand.SetOut(output)
	application.rootCommand.SetErr(&bytes.Buffer{})
	return &applicationFixture{api: api, application: application, output: output}
}

func (fixture *applicationFixture) execute(arguments ...string) error {
	fixture.application.rootCommand.SetArgs(arguments)
	return fixture.application.Execute()
}

func writeConfiguration(testInstance *testing.T, content string) string {
	testInstance.Helper()
	configurationPath := filepath.Join(testInstance.TempDir(), testConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(content), 0o600))
	return configurationPath
}

func TestApplicationAppliesConfigurationFile(testInstance *testing.T) {
	testCases := []struct {
		name              string
		dryRun            bool
		strategy          string
		maxDepth          string
		expectedHeader    string
		expectedFollowing []string
	}{
		{
			name:              "LiveBreadthFirst",
			strategy:          "bfs",
			maxDepth:          "2",
			expectedHeader:    "Traversing followers of octocat (BFS, max depth 2, max follows per node 50)",
			expectedFollowing: []string{"x", "y"},
		},
		{
			name:              "DryRunDepthFirst",
			dryRun:            true,
			strategy:          "dfs",
			maxDepth:          "1",
			expectedHeader:    "Traversing followers of octocat (DFS, max depth 1, max follows per node 50)",
			expectedFollowing: nil,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			api := &stubAPI{followersOf: map[string][]string{testSeedAccountConstant: {"x"}, "x": {"y"}}}
			fixture := newApplicationFixture(testInstance, api)
			configurationPath := writeConfiguration(testInstance, fmt.Sprintf(testConfigurationTemplateConstant, "warn", testCase.dryRun, testSeedAccountConstant, testCase.strategy, testCase.maxDepth))

			executeError := fixture.execute("--config", configurationPath)
			require.NoError(testInstance, executeError)

			require.Contains(testInstance, fixture.output.String(), testCase.expectedHeader)
			require.Equal(testInstance, testCase.expectedFollowing, api.followCalls)
			require.Equal(testInstance, configurationPath, fixture.application.configurationMetadata.ConfigFileUsed)
			require.Equal(testInstance, "warn", fixture.application.configuration.Common.LogLevel)
		})
	}
}

func TestApplicationFlagsOverrideConfiguration(testInstance *testing.T) {
	api := &stubAPI{following: []string{"a"}, followers: []string{"b"}}
	fixture := newApplicationFixture(testInstance, api)
	configurationPath := writeConfiguration(testInstance, fmt.Sprintf(testConfigurationTemplateConstant, "info", true, testSeedAccountConstant, "dfs", "unbounded"))

	executeError := fixture.execute("--config", configurationPath, "--dry-run=false", "--skip-unfollow", "--log-level", "error", "--max-depth", "3", "--max-follows", "5")
	require.NoError(testInstance, executeError)

	require.Equal(testInstance, []string{"b"}, api.followCalls)
	require.Empty(testInstance, api.unfollows)
	require.Equal(testInstance, "error", fixture.application.configuration.Common.LogLevel)
	require.Contains(testInstance, fixture.output.String(), "(DFS, max depth 3, max follows per node 5)")
}

func TestApplicationEnvironmentOverridesEmbeddedDefaults(testInstance *testing.T) {
	api := &stubAPI{following: []string{"a"}, followers: []string{"b"}}
	fixture := newApplicationFixture(testInstance, api)
	testInstance.Setenv("GHFOLLOW_RUN_DRY_RUN", "true")
	testInstance.Setenv("GHFOLLOW_TRAVERSAL_STRATEGY", "bfs")

	executeError := fixture.execute()
	require.NoError(testInstance, executeError)

	require.Empty(testInstance, api.followCalls)
	require.Empty(testInstance, api.unfollows)
	require.True(testInstance, fixture.application.configuration.Run.DryRun)
	require.Equal(testInstance, "bfs", fixture.application.configuration.Traversal.Strategy)
	require.Contains(testInstance, fixture.output.String(), "[dry run] Followed b")
}

func TestApplicationEnvironmentOverridesTraversalBounds(testInstance *testing.T) {
	api := &stubAPI{}
	fixture := newApplicationFixture(testInstance, api)
	testInstance.Setenv("GHFOLLOW_TRAVERSAL_MAX_DEPTH", "1")
	testInstance.Setenv("GHFOLLOW_TRAVERSAL_MAX_FOLLOWS_PER_NODE", "unbounded")

	executeError := fixture.execute("--dry-run")
	require.NoError(testInstance, executeError)

	maxDepth := fixture.application.configuration.Traversal.MaxDepth
	require.NotNil(testInstance, maxDepth)
	require.Equal(testInstance, "1", maxDepth.String())
	maxFollows := fixture.application.configuration.Traversal.MaxFollowsPerNode
	require.NotNil(testInstance, maxFollows)
	require.False(testInstance, maxFollows.IsBounded())
}

func TestApplicationReportsConfigurationErrors(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configuration string
		arguments     []string
		expectedText  string
	}{
		{
			name:          "InvalidBound",
			configuration: "traversal:\n  max_depth: 0\n",
			expectedText:  "unable to load configuration",
		},
		{
			name:          "UnsupportedLogLevel",
			configuration: "common:\n  log_level: chatty\n",
			expectedText:  "unable to create logger",
		},
		{
			name:          "UnsupportedLogFormatFlag",
			configuration: "common:\n  log_level: info\n",
			arguments:     []string{"--log-format", "xml"},
			expectedText:  "unable to create logger",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			api := &stubAPI{following: []string{"a"}, followers: []string{"b"}}
			fixture := newApplicationFixture(testInstance, api)
			configurationPath := writeConfiguration(testInstance, testCase.configuration)

			executeError := fixture.execute(append([]string{"--config", configurationPath}, testCase.arguments...)...)
			require.Error(testInstance, executeError)
			require.True(testInstance, strings.Contains(executeError.Error(), testCase.expectedText), executeError.Error())
			require.Empty(testInstance, api.followCalls)
		})
	}
}

func TestApplicationSyncLoggerInstanceIgnoresNilLogger(testInstance *testing.T) {
	application := &Application{}
	require.NoError(testInstance, application.syncLoggerInstance(nil))
	require.NoError(testInstance, application.syncLoggerInstance(zap.NewNop()))
}
