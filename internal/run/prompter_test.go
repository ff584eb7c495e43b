package run_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ghfollow/internal/run"
)

const testPromptConstant = "Traverse without limits?"

func TestIOConfirmationPrompter(testInstance *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedAnswer bool
	}{
		{name: "ShortYes", input: "y\n", expectedAnswer: true},
		{name: "LongYesMixedCase", input: "  YeS \n", expectedAnswer: true},
		{name: "YesWithoutNewline", input: "yes", expectedAnswer: true},
		{name: "No", input: "n\n", expectedAnswer: false},
		{name: "EmptyLine", input: "\n", expectedAnswer: false},
		{name: "EndOfInput", input: "", expectedAnswer: false},
		{name: "Other", input: "sure\n", expectedAnswer: false},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			output := &bytes.Buffer{}
			prompter := run.NewIOConfirmationPrompter(strings.NewReader(testCase.input), output)

			confirmed, confirmError := prompter.Confirm(testPromptConstant)
			require.NoError(testInstance, confirmError)
			require.Equal(testInstance, testCase.expectedAnswer, confirmed)
			require.Equal(testInstance, testPromptConstant+" [y/N]: ", output.String())
		})
	}
}

func TestIOConfirmationPrompterReadsSuccessiveAnswers(testInstance *testing.T) {
	prompter := run.NewIOConfirmationPrompter(strings.NewReader("yes\nno\n"), nil)

	first, firstError := prompter.Confirm(testPromptConstant)
	require.NoError(testInstance, firstError)
	require.True(testInstance, first)

	second, secondError := prompter.Confirm(testPromptConstant)
	require.NoError(testInstance, secondError)
	require.False(testInstance, second)
}
