package pathutils_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/ghfollow/internal/utils/path"
)

const (
	testHomeDirectoryConstant       = "/home/octocat"
	testStateDirectoryConstant      = "/var/lib/ghfollow"
	testSubtestNameTemplateConstant = "%d_%s"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	testCases := []struct {
		name          string
		candidatePath string
		expectedPath  string
	}{
		{name: "TildeOnly", candidatePath: "~", expectedPath: testHomeDirectoryConstant},
		{name: "TildePrefix", candidatePath: "~/.config/ghfollow/token", expectedPath: filepath.Join(testHomeDirectoryConstant, ".config/ghfollow/token")},
		{name: "AbsolutePath", candidatePath: "/var/lib/ghfollow/metrics.prom", expectedPath: "/var/lib/ghfollow/metrics.prom"},
		{name: "OtherUserNotExpanded", candidatePath: "~other/token", expectedPath: "~other/token"},
		{name: "Empty", candidatePath: "", expectedPath: ""},
		{name: "BareVariable", candidatePath: "$STATE_DIRECTORY/metrics.prom", expectedPath: testStateDirectoryConstant + "/metrics.prom"},
		{name: "BracedVariable", candidatePath: "${STATE_DIRECTORY}/summary.yaml", expectedPath: testStateDirectoryConstant + "/summary.yaml"},
		{name: "VariableNamingHome", candidatePath: "$HOME_SHORTCUT/token", expectedPath: filepath.Join(testHomeDirectoryConstant, "token")},
		{name: "UnsetVariable", candidatePath: "$UNSET/summary.yaml", expectedPath: "/summary.yaml"},
	}

	environment := map[string]string{"STATE_DIRECTORY": testStateDirectoryConstant, "HOME_SHORTCUT": "~"}
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	}).WithEnvironmentLookup(func(name string) (string, bool) {
		value, found := environment[name]
		return value, found
	})

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.candidatePath))
		})
	}
}

func TestHomeExpanderProviderFailureKeepsPath(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home")
	})
	require.Equal(testInstance, "~/token", expander.Expand("~/token"))
}

func TestNilHomeExpanderReturnsInput(testInstance *testing.T) {
	var expander *pathutils.HomeExpander
	require.Equal(testInstance, "~/token", expander.Expand("~/token"))
}
