package flags

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const (
	positiveIntegerInvalidTemplate = "invalid --%s value %q: expected an integer of at least 1"
)

// PositiveIntegerFlagValue reports a positive integer flag and whether the user supplied it.
type PositiveIntegerFlagValue struct {
	Value    int
	Provided bool
}

// ResolvePositiveIntegerFlag reads a string flag that must hold an integer of at least one when present.
func ResolvePositiveIntegerFlag(command *cobra.Command, flagName string) (PositiveIntegerFlagValue, error) {
	if command == nil || command.Flags().Lookup(flagName) == nil {
		return PositiveIntegerFlagValue{}, nil
	}
	if !command.Flags().Changed(flagName) {
		return PositiveIntegerFlagValue{}, nil
	}

	rawValue, lookupError := command.Flags().GetString(flagName)
	if lookupError != nil {
		return PositiveIntegerFlagValue{}, lookupError
	}

	parsedValue, parseError := ParsePositiveInteger(flagName, rawValue)
	if parseError != nil {
		return PositiveIntegerFlagValue{}, parseError
	}

	return PositiveIntegerFlagValue{Value: parsedValue, Provided: true}, nil
}

// ParsePositiveInteger converts rawValue to an integer of at least one.
func ParsePositiveInteger(flagName string, rawValue string) (int, error) {
	parsedValue, parseError := strconv.Atoi(strings.TrimSpace(rawValue))
	if parseError != nil || parsedValue < 1 {
		return 0, fmt.Errorf(positiveIntegerInvalidTemplate, flagName, rawValue)
	}
	return parsedValue, nil
}
