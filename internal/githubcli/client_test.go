package githubcli_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ghfollow/internal/execshell"
	"github.com/temirov/ghfollow/internal/githubcli"
)

const (
	testSubtestNameTemplateConstant = "%d_%s"
	testTokenConstant               = "gho_example"
	testHostnameConstant            = "github.example.com"
)

type stubGitHubExecutor struct {
	result          execshell.ExecutionResult
	executionError  error
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitHubExecutor) ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	return executor.result, executor.executionError
}

func TestClientAuthToken(testInstance *testing.T) {
	executionFailure := errors.New("gh: not logged in")

	testCases := []struct {
		name              string
		hostname          string
		result            execshell.ExecutionResult
		executionError    error
		expectedArguments []string
		expectedToken     string
		expectedCause     error
	}{
		{
			name:              "DefaultHost",
			result:            execshell.ExecutionResult{StandardOutput: testTokenConstant + "\n"},
			expectedArguments: []string{"auth", "token"},
			expectedToken:     testTokenConstant,
		},
		{
			name:              "ExplicitHost",
			hostname:          " " + testHostnameConstant + " ",
			result:            execshell.ExecutionResult{StandardOutput: testTokenConstant},
			expectedArguments: []string{"auth", "token", "--hostname", testHostnameConstant},
			expectedToken:     testTokenConstant,
		},
		{
			name:              "EmptyOutput",
			result:            execshell.ExecutionResult{StandardOutput: "  \n"},
			expectedArguments: []string{"auth", "token"},
			expectedCause:     githubcli.ErrEmptyToken,
		},
		{
			name:              "ExecutionFailure",
			executionError:    executionFailure,
			expectedArguments: []string{"auth", "token"},
			expectedCause:     executionFailure,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			executor := &stubGitHubExecutor{result: testCase.result, executionError: testCase.executionError}
			client, clientError := githubcli.NewClient(executor)
			require.NoError(testInstance, clientError)

			token, tokenError := client.AuthToken(context.Background(), testCase.hostname)

			require.Len(testInstance, executor.recordedDetails, 1)
			require.Equal(testInstance, testCase.expectedArguments, executor.recordedDetails[0].Arguments)
			require.Equal(testInstance, "1", executor.recordedDetails[0].EnvironmentVariables["GH_PROMPT_DISABLED"])

			if testCase.expectedCause != nil {
				require.ErrorIs(testInstance, tokenError, testCase.expectedCause)
				var operationError githubcli.OperationError
				require.ErrorAs(testInstance, tokenError, &operationError)
				require.Empty(testInstance, token)
				return
			}
			require.NoError(testInstance, tokenError)
			require.Equal(testInstance, testCase.expectedToken, token)
		})
	}
}

func TestNewClientRequiresExecutor(testInstance *testing.T) {
	_, clientError := githubcli.NewClient(nil)
	require.ErrorIs(testInstance, clientError, githubcli.ErrExecutorNotConfigured)
}
