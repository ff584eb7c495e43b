package run

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/ghfollow/internal/githubapi"
	"github.com/temirov/ghfollow/internal/githubauth"
	"github.com/temirov/ghfollow/internal/relationships"
	"github.com/temirov/ghfollow/internal/report"
	"github.com/temirov/ghfollow/internal/traversal"
	"github.com/temirov/ghfollow/internal/utils"
	"github.com/temirov/ghfollow/internal/utils/flags"
)

const (
	commandUseConstant                  = "ghfollow"
	commandShortDescriptionConstant     = "Reconcile GitHub follows into mutual relationships"
	commandLongDescriptionConstant      = "ghfollow follows back every follower, unfollows accounts that do not follow back and, with --ambitious, follows the follower network of seed accounts depth first or breadth first."
	ambitiousFlagNameConstant           = "ambitious"
	ambitiousFlagShorthandConstant      = "a"
	ambitiousFlagUsageConstant          = "Seed account whose follower network is traversed (repeatable)"
	maxDepthFlagNameConstant            = "max-depth"
	maxDepthFlagUsageConstant           = "Maximum traversal depth, a positive integer (overrides --limits)"
	maxFollowsFlagNameConstant          = "max-follows"
	maxFollowsFlagUsageConstant         = "Maximum followers fetched per traversed account, a positive integer (overrides --limits)"
	limitsFlagNameConstant              = "limits"
	limitsFlagDescriptionConstant       = "Default traversal bounds: classic is depth 3 and 50 followers per account, unbounded has no limits"
	strategyFlagNameConstant            = "strategy"
	strategyFlagDescriptionConstant     = "Traversal order: depth first or breadth first"
	visitedScopeFlagNameConstant        = "visited-scope"
	visitedScopeFlagDescriptionConstant = "Lifetime of the visited set: one traversal or the whole run"
	skipFollowBackFlagNameConstant      = "skip-follow-back"
	skipFollowBackFlagUsageConstant     = "Do not follow back followers"
	skipUnfollowFlagNameConstant        = "skip-unfollow"
	skipUnfollowFlagUsageConstant       = "Do not unfollow accounts that do not follow back"
	verifyFlagNameConstant              = "verify-before-follow"
	verifyFlagUsageConstant             = "Check whether an account is already followed before following it"
	countdownFlagNameConstant           = "countdown"
	countdownFlagUsageConstant          = "Seconds to wait before applying changes, 0 disables the countdown"
	actionDelayFlagNameConstant         = "action-delay"
	actionDelayFlagUsageConstant        = "Pause between consecutive follow or unfollow requests"
	metricsFileFlagNameConstant         = "metrics-file"
	metricsFileFlagUsageConstant        = "Write Prometheus metrics in text format to this file"
	summaryFileFlagNameConstant         = "summary-file"
	summaryFileFlagUsageConstant        = "Write the run summary as YAML to this file"
	tokenSourceFlagNameConstant         = "token-source"
	tokenSourceFlagUsageConstant        = "Token source: env:NAME, file:/path or gh[:host] (defaults to GH_TOKEN, GITHUB_TOKEN, GITHUB_API_TOKEN)"
)

var (
	strategyChoices     = []string{string(traversal.StrategyDepthFirst), string(traversal.StrategyBreadthFirst)}
	limitsChoices       = []string{string(traversal.LimitsProfileClassic), string(traversal.LimitsProfileUnbounded)}
	visitedScopeChoices = []string{string(traversal.VisitedScopeTraversal), string(traversal.VisitedScopeRun)}
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the loaded run configuration.
type ConfigurationProvider func() CommandConfiguration

// APIResolver builds the remote API for a run.
type APIResolver func(executionContext context.Context, configuration APIConfiguration, logger *zap.Logger) (RemoteAPI, error)

// RunIdentifierProvider generates run identifiers.
type RunIdentifierProvider func() string

// CommandBuilder assembles the ghfollow cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	APIResolver           APIResolver
	TokenResolver         *githubauth.TokenResolver
	HTTPClient            githubapi.HTTPClient
	Prompter              ConfirmationPrompter
	Sleeper               relationships.Sleeper
	Metrics               MetricsExporter
	RunIdentifierProvider RunIdentifierProvider
}

// Build constructs the cobra command that performs a run.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	flags.BindExecutionFlags(command, flags.ExecutionDefaults{}, flags.DefaultExecutionFlagDefinitions())
	commandFlags := command.Flags()
	commandFlags.StringArrayP(ambitiousFlagNameConstant, ambitiousFlagShorthandConstant, nil, ambitiousFlagUsageConstant)
	commandFlags.String(maxDepthFlagNameConstant, "", maxDepthFlagUsageConstant)
	commandFlags.String(maxFollowsFlagNameConstant, "", maxFollowsFlagUsageConstant)
	commandFlags.String(limitsFlagNameConstant, "", flags.FormatChoiceUsage(string(traversal.LimitsProfileClassic), limitsChoices, limitsFlagDescriptionConstant))
	commandFlags.String(strategyFlagNameConstant, "", flags.FormatChoiceUsage(string(traversal.StrategyDepthFirst), strategyChoices, strategyFlagDescriptionConstant))
	commandFlags.String(visitedScopeFlagNameConstant, "", flags.FormatChoiceUsage(string(traversal.VisitedScopeTraversal), visitedScopeChoices, visitedScopeFlagDescriptionConstant))
	commandFlags.Bool(skipFollowBackFlagNameConstant, false, skipFollowBackFlagUsageConstant)
	commandFlags.Bool(skipUnfollowFlagNameConstant, false, skipUnfollowFlagUsageConstant)
	commandFlags.Bool(verifyFlagNameConstant, false, verifyFlagUsageConstant)
	commandFlags.Int(countdownFlagNameConstant, defaultCountdownSecondsConstant, countdownFlagUsageConstant)
	commandFlags.Duration(actionDelayFlagNameConstant, defaultActionDelayConstant, actionDelayFlagUsageConstant)
	commandFlags.String(metricsFileFlagNameConstant, "", metricsFileFlagUsageConstant)
	commandFlags.String(summaryFileFlagNameConstant, "", summaryFileFlagUsageConstant)
	commandFlags.String(tokenSourceFlagNameConstant, "", tokenSourceFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	tokenSource, tokenSourceError := overrideFromFlag(command, tokenSourceFlagNameConstant, configuration.API.TokenSource, command.Flags().GetString)
	if tokenSourceError != nil {
		return tokenSourceError
	}
	configuration.API.TokenSource = tokenSource

	options, optionsError := builder.parseOptions(command, configuration)
	if optionsError != nil {
		return optionsError
	}
	if validationError := options.Validate(); validationError != nil {
		return validationError
	}

	logger := builder.resolveLogger()
	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}
	executionContext = utils.NewCommandContextAccessor().WithRunIdentifier(executionContext, options.RunIdentifier)

	remoteAPI, apiError := builder.resolveAPI(executionContext, configuration.API, logger)
	if apiError != nil {
		return apiError
	}

	outputWriter := command.OutOrStdout()
	printer := report.NewPrinter(outputWriter, report.PrinterConfiguration{DryRun: options.DryRun, Styled: report.IsTerminal(outputWriter)})

	prompter := builder.Prompter
	if prompter == nil {
		prompter = NewIOConfirmationPrompter(command.InOrStdin(), command.ErrOrStderr())
	}

	service, serviceError := NewService(Dependencies{
		Logger:   logger,
		API:      remoteAPI,
		Reporter: printer,
		Prompter: prompter,
		Sleeper:  builder.Sleeper,
		Metrics:  builder.Metrics,
	})
	if serviceError != nil {
		return serviceError
	}

	_, executionError := service.Execute(executionContext, options)
	return executionError
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, configuration CommandConfiguration) (Options, error) {
	execution := configuration.Execution
	executionFlags, executionError := flags.ResolveExecutionFlags(
		command,
		flags.ExecutionDefaults{DryRun: execution.DryRun, AssumeYes: execution.AssumeYes},
		flags.DefaultExecutionFlagDefinitions(),
	)
	if executionError != nil {
		return Options{}, executionError
	}

	commandFlags := command.Flags()
	options := Options{
		DryRun:           executionFlags.DryRun,
		AssumeYes:        executionFlags.AssumeYes,
		PageSize:         configuration.API.PageSize,
		SelfPageDelay:    configuration.API.SelfPageDelay,
		AccountPageDelay: configuration.API.AccountPageDelay,
		RunIdentifier:    builder.newRunIdentifier(),
	}

	var flagError error
	if options.SkipFollowBack, flagError = overrideFromFlag(command, skipFollowBackFlagNameConstant, execution.SkipFollowBack, commandFlags.GetBool); flagError != nil {
		return Options{}, flagError
	}
	if options.SkipUnfollow, flagError = overrideFromFlag(command, skipUnfollowFlagNameConstant, execution.SkipUnfollow, commandFlags.GetBool); flagError != nil {
		return Options{}, flagError
	}
	if options.VerifyBeforeFollow, flagError = overrideFromFlag(command, verifyFlagNameConstant, execution.VerifyBeforeFollow, commandFlags.GetBool); flagError != nil {
		return Options{}, flagError
	}
	if options.Countdown, flagError = overrideFromFlag(command, countdownFlagNameConstant, execution.Countdown, commandFlags.GetInt); flagError != nil {
		return Options{}, flagError
	}
	if options.ActionDelay, flagError = overrideFromFlag(command, actionDelayFlagNameConstant, execution.ActionDelay, commandFlags.GetDuration); flagError != nil {
		return Options{}, flagError
	}
	if options.MetricsFile, flagError = overrideFromFlag(command, metricsFileFlagNameConstant, execution.MetricsFile, commandFlags.GetString); flagError != nil {
		return Options{}, flagError
	}
	if options.SummaryFile, flagError = overrideFromFlag(command, summaryFileFlagNameConstant, execution.SummaryFile, commandFlags.GetString); flagError != nil {
		return Options{}, flagError
	}
	if options.Seeds, flagError = overrideFromFlag(command, ambitiousFlagNameConstant, configuration.Traversal.Seeds, commandFlags.GetStringArray); flagError != nil {
		return Options{}, flagError
	}

	visitedScopeValue, visitedScopeFlagError := overrideFromFlag(command, visitedScopeFlagNameConstant, configuration.Traversal.VisitedScope, commandFlags.GetString)
	if visitedScopeFlagError != nil {
		return Options{}, visitedScopeFlagError
	}
	visitedScope, visitedScopeError := flags.ParseChoice(visitedScopeFlagNameConstant, visitedScopeValue, string(traversal.VisitedScopeTraversal), visitedScopeChoices)
	if visitedScopeError != nil {
		return Options{}, visitedScopeError
	}
	options.VisitedScope = traversal.VisitedScope(visitedScope)

	traversalConfiguration, traversalError := resolveTraversalConfiguration(command, configuration.Traversal)
	if traversalError != nil {
		return Options{}, traversalError
	}
	options.Traversal = traversalConfiguration

	return options, nil
}

func resolveTraversalConfiguration(command *cobra.Command, configuration TraversalConfiguration) (traversal.Configuration, error) {
	commandFlags := command.Flags()

	strategyValue, strategyFlagError := overrideFromFlag(command, strategyFlagNameConstant, configuration.Strategy, commandFlags.GetString)
	if strategyFlagError != nil {
		return traversal.Configuration{}, strategyFlagError
	}
	strategy, strategyError := flags.ParseChoice(strategyFlagNameConstant, strategyValue, string(traversal.StrategyDepthFirst), strategyChoices)
	if strategyError != nil {
		return traversal.Configuration{}, strategyError
	}

	limitsValue, limitsFlagError := overrideFromFlag(command, limitsFlagNameConstant, configuration.Limits, commandFlags.GetString)
	if limitsFlagError != nil {
		return traversal.Configuration{}, limitsFlagError
	}
	limits, limitsError := flags.ParseChoice(limitsFlagNameConstant, limitsValue, string(traversal.LimitsProfileClassic), limitsChoices)
	if limitsError != nil {
		return traversal.Configuration{}, limitsError
	}

	resolved := traversal.ProfileConfiguration(traversal.LimitsProfile(limits), traversal.Strategy(strategy))
	if configuration.MaxDepth != nil {
		resolved.MaxDepth = *configuration.MaxDepth
	}
	if configuration.MaxFollowsPerNode != nil {
		resolved.MaxFollowsPerNode = *configuration.MaxFollowsPerNode
	}

	maxDepth, maxDepthError := resolveBoundFlag(command, maxDepthFlagNameConstant, resolved.MaxDepth)
	if maxDepthError != nil {
		return traversal.Configuration{}, maxDepthError
	}
	maxFollows, maxFollowsError := resolveBoundFlag(command, maxFollowsFlagNameConstant, resolved.MaxFollowsPerNode)
	if maxFollowsError != nil {
		return traversal.Configuration{}, maxFollowsError
	}
	resolved.MaxDepth = maxDepth
	resolved.MaxFollowsPerNode = maxFollows

	return resolved, nil
}

func resolveBoundFlag(command *cobra.Command, flagName string, configured traversal.Bound) (traversal.Bound, error) {
	flagValue, flagError := flags.ResolvePositiveIntegerFlag(command, flagName)
	if flagError != nil {
		return traversal.Bound{}, flagError
	}
	if !flagValue.Provided {
		return configured, nil
	}
	return traversal.NewBound(flagValue.Value)
}

func overrideFromFlag[Value any](command *cobra.Command, flagName string, configured Value, read func(string) (Value, error)) (Value, error) {
	if command == nil || !command.Flags().Changed(flagName) {
		return configured, nil
	}
	return read(flagName)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) newRunIdentifier() string {
	if builder.RunIdentifierProvider != nil {
		return builder.RunIdentifierProvider()
	}
	return uuid.NewString()
}

func (builder *CommandBuilder) resolveAPI(executionContext context.Context, configuration APIConfiguration, logger *zap.Logger) (RemoteAPI, error) {
	if builder.APIResolver != nil {
		return builder.APIResolver(executionContext, configuration, logger)
	}

	tokenResolver := builder.TokenResolver
	if tokenResolver == nil {
		tokenResolver = githubauth.NewTokenResolver(nil, nil)
	}
	token, tokenError := tokenResolver.Resolve(executionContext, configuration.TokenSource)
	if tokenError != nil {
		return nil, tokenError
	}

	client, clientError := githubapi.NewClient(logger, builder.HTTPClient, githubapi.ServiceConfiguration{
		BaseURL:                 configuration.BaseURL,
		Token:                   token,
		UserAgent:               configuration.UserAgent,
		RequestTimeout:          configuration.RequestTimeout,
		RequestsPerSecond:       configuration.RequestsPerSecond,
		RequestBurst:            configuration.RequestBurst,
		BreakerFailureThreshold: configuration.BreakerFailures,
		BreakerOpenTimeout:      configuration.BreakerOpenTimeout,
	})
	if clientError != nil {
		return nil, clientError
	}
	return client, nil
}
