package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	testDepthFlagNameConstant = "max-depth"
)

func TestParsePositiveInteger(testInstance *testing.T) {
	testCases := []struct {
		name          string
		rawValue      string
		expectedValue int
		expectError   bool
	}{
		{name: "Positive", rawValue: "3", expectedValue: 3},
		{name: "Padded", rawValue: " 12 ", expectedValue: 12},
		{name: "Zero", rawValue: "0", expectError: true},
		{name: "Negative", rawValue: "-2", expectError: true},
		{name: "NotInteger", rawValue: "three", expectError: true},
		{name: "Fraction", rawValue: "1.5", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parsedValue, parseError := ParsePositiveInteger(testDepthFlagNameConstant, testCase.rawValue)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedValue, parsedValue)
		})
	}
}

func TestResolvePositiveIntegerFlag(testInstance *testing.T) {
	testCases := []struct {
		name             string
		arguments        []string
		expectedValue    PositiveIntegerFlagValue
		expectParseError bool
	}{
		{name: "NotProvided", arguments: []string{}, expectedValue: PositiveIntegerFlagValue{}},
		{name: "Provided", arguments: []string{"--max-depth", "4"}, expectedValue: PositiveIntegerFlagValue{Value: 4, Provided: true}},
		{name: "Invalid", arguments: []string{"--max-depth", "0"}, expectParseError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			command := &cobra.Command{Use: "test"}
			command.Flags().String(testDepthFlagNameConstant, "", "depth")
			require.NoError(testInstance, command.Flags().Parse(testCase.arguments))

			resolvedValue, resolveError := ResolvePositiveIntegerFlag(command, testDepthFlagNameConstant)
			if testCase.expectParseError {
				require.Error(testInstance, resolveError)
				return
			}
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedValue, resolvedValue)
		})
	}
}
