package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/ghfollow/internal/metrics"
	"github.com/temirov/ghfollow/internal/reconcile"
	"github.com/temirov/ghfollow/internal/relationships"
	"github.com/temirov/ghfollow/internal/report"
	"github.com/temirov/ghfollow/internal/traversal"
	pathutils "github.com/temirov/ghfollow/internal/utils/path"
)

const (
	remoteAPIMissingMessageConstant           = "remote API not configured"
	authenticationErrorTemplateConstant       = "unable to resolve authenticated account: %w"
	relationshipsErrorTemplateConstant        = "unable to load relationships: %w"
	componentErrorTemplateConstant            = "unable to prepare run: %w"
	countdownErrorTemplateConstant            = "countdown interrupted: %w"
	reconciliationErrorTemplateConstant       = "reconciliation interrupted: %w"
	traversalErrorTemplateConstant            = "traversal from %s failed: %w"
	confirmationErrorTemplateConstant         = "unable to read confirmation: %w"
	metricsExportErrorTemplateConstant        = "unable to export metrics: %w"
	summaryExportErrorTemplateConstant        = "unable to export summary: %w"
	unboundedConfirmationPromptTemplate       = "Traverse the follower network of %s without limits?"
	reconciliationPhaseNameConstant           = "Reconciliation"
	runStartedLogMessageConstant              = "Run started"
	runCompletedLogMessageConstant            = "Run completed"
	relationshipsLoadedLogMessageConstant     = "Relationships loaded"
	nothingToDoLogMessageConstant             = "Nothing to do"
	traversalDeclinedLogMessageConstant       = "Unbounded traversal declined"
	confirmationUnavailableLogMessageConstant = "No confirmation prompter available, declining unbounded traversal"
	runIdentifierLogFieldConstant             = "run_id"
	accountLogFieldConstant                   = "account"
	dryRunLogFieldConstant                    = "dry_run"
	seedsLogFieldConstant                     = "seeds"
	seedLogFieldConstant                      = "seed"
	followingLogFieldConstant                 = "following"
	followersLogFieldConstant                 = "followers"
	totalFollowedLogFieldConstant             = "total_followed"
	failuresLogFieldConstant                  = "failures"
	countdownTickDurationConstant             = time.Second
)

// ErrRemoteAPINotConfigured indicates the service was constructed without an API client.
var ErrRemoteAPINotConfigured = errors.New(remoteAPIMissingMessageConstant)

// RemoteAPI is the GitHub surface a run needs.
type RemoteAPI interface {
	relationships.RelationshipLister
	relationships.RelationshipMutator
	GetAuthenticatedAccount(executionContext context.Context) (string, error)
}

// Reporter renders run progress for people.
type Reporter interface {
	reconcile.Observer
	traversal.Observer
	PhaseStarted(name string)
	Authenticated(account string)
	RelationshipsLoaded(following int, followers int)
	PlanComputed(toFollow int, toUnfollow int)
	NothingToDo()
	CountdownTick(remainingSeconds int)
	TraversalStarted(seed string, configuration traversal.Configuration)
	UnboundedTraversalWarning(seed string)
	TraversalDeclined(seed string)
	Summary(summary report.Summary)
}

// MetricsExporter records run metrics and writes them out.
type MetricsExporter interface {
	metrics.Recorder
	WriteTextfile(filePath string) error
}

// Dependencies enumerates collaborators used by Service.
type Dependencies struct {
	Logger   *zap.Logger
	API      RemoteAPI
	Reporter Reporter
	Prompter ConfirmationPrompter
	Sleeper  relationships.Sleeper
	Metrics  MetricsExporter
	Clock    func() time.Time
}

// Service executes runs.
type Service struct {
	logger       *zap.Logger
	api          RemoteAPI
	reporter     Reporter
	prompter     ConfirmationPrompter
	sleeper      relationships.Sleeper
	metrics      MetricsExporter
	clock        func() time.Time
	homeExpander *pathutils.HomeExpander
}

type runComponents struct {
	account          string
	following        *relationships.AccountSet
	sessionFollowed  *relationships.SessionFollowedSet
	executor         *relationships.ActionExecutor
	traversalFetcher *relationships.Fetcher
}

// failures merges failed actions and failed follower lookups.
func (components runComponents) failures() []relationships.ActionFailure {
	failures := components.executor.Failures()
	if components.traversalFetcher != nil {
		failures = append(failures, components.traversalFetcher.Failures()...)
	}
	return failures
}

// NewService constructs a Service. Missing optional collaborators get working defaults.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.API == nil {
		return nil, ErrRemoteAPINotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reporter := dependencies.Reporter
	if reporter == nil {
		reporter = report.NewPrinter(nil, report.PrinterConfiguration{})
	}
	sleeper := dependencies.Sleeper
	if sleeper == nil {
		sleeper = relationships.TimerSleeper{}
	}
	exporter := dependencies.Metrics
	if exporter == nil {
		prometheusRecorder, recorderError := metrics.NewPrometheusRecorder()
		if recorderError != nil {
			return nil, recorderError
		}
		exporter = prometheusRecorder
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		logger:       logger,
		api:          dependencies.API,
		reporter:     reporter,
		prompter:     dependencies.Prompter,
		sleeper:      sleeper,
		metrics:      exporter,
		clock:        clock,
		homeExpander: pathutils.NewHomeExpander(),
	}, nil
}

// Execute performs one run. Per-account failures are collected in the summary; only startup failures,
// cancellation and export failures are returned as errors.
func (service *Service) Execute(executionContext context.Context, options Options) (report.Summary, error) {
	if validationError := options.Validate(); validationError != nil {
		return report.Summary{}, validationError
	}

	seeds := normalizeSeeds(options.Seeds)
	summary := report.Summary{
		RunIdentifier: options.RunIdentifier,
		DryRun:        options.DryRun,
		StartedAt:     service.clock(),
	}
	logger := service.logger.With(zap.String(runIdentifierLogFieldConstant, options.RunIdentifier))

	account, authenticationError := service.api.GetAuthenticatedAccount(executionContext)
	if authenticationError != nil {
		return summary, fmt.Errorf(authenticationErrorTemplateConstant, authenticationError)
	}
	for _, seed := range seeds {
		if seed == account {
			return summary, traversal.ErrSeedIsSelf
		}
	}
	summary.Account = account
	service.reporter.Authenticated(account)
	logger.Info(
		runStartedLogMessageConstant,
		zap.String(accountLogFieldConstant, account),
		zap.Bool(dryRunLogFieldConstant, options.DryRun),
		zap.Strings(seedsLogFieldConstant, seeds),
	)

	following, followers, fetchError := service.loadRelationships(executionContext, logger, options, account)
	if fetchError != nil {
		return summary, fmt.Errorf(relationshipsErrorTemplateConstant, fetchError)
	}
	summary.Following = following.Len()
	summary.Followers = followers.Len()
	service.reporter.RelationshipsLoaded(summary.Following, summary.Followers)
	logger.Info(
		relationshipsLoadedLogMessageConstant,
		zap.Int(followingLogFieldConstant, summary.Following),
		zap.Int(followersLogFieldConstant, summary.Followers),
	)

	sessionFollowed := relationships.NewSessionFollowedSet()
	executor, executorError := relationships.NewActionExecutor(
		relationships.ExecutorDependencies{Logger: logger, Mutator: service.api, SessionFollowed: sessionFollowed, Metrics: service.metrics},
		relationships.ExecutorConfiguration{DryRun: options.DryRun, VerifyBeforeFollow: options.VerifyBeforeFollow},
	)
	if executorError != nil {
		return summary, fmt.Errorf(componentErrorTemplateConstant, executorError)
	}
	traversalFetcher, fetcherError := service.newFetcher(logger, options, account)
	if fetcherError != nil {
		return summary, fmt.Errorf(componentErrorTemplateConstant, fetcherError)
	}
	components := runComponents{
		account:          account,
		following:        following,
		sessionFollowed:  sessionFollowed,
		executor:         executor,
		traversalFetcher: traversalFetcher,
	}

	plan := reconcile.Plan{}
	if !options.SkipFollowBack || !options.SkipUnfollow {
		plan = reconcile.BuildPlan(following, followers)
	}
	if options.SkipFollowBack {
		plan.ToFollow = nil
	}
	if options.SkipUnfollow {
		plan.ToUnfollow = nil
	}
	summary.PlannedFollows = len(plan.ToFollow)
	summary.PlannedUnfollows = len(plan.ToUnfollow)
	service.reporter.PlanComputed(summary.PlannedFollows, summary.PlannedUnfollows)

	if plan.Empty() && len(seeds) == 0 {
		summary.NothingToDo = true
		summary.Reconciliation = reconcile.Result{FollowSkipped: options.SkipFollowBack, UnfollowSkipped: options.SkipUnfollow}
		service.reporter.NothingToDo()
		logger.Info(nothingToDoLogMessageConstant)
		return service.finish(logger, summary, options, components)
	}

	confirmedSeeds, confirmationError := service.confirmTraversals(logger, options, seeds)
	if confirmationError != nil {
		return summary, confirmationError
	}

	if !plan.Empty() || len(confirmedSeeds) > 0 {
		if countdownError := service.countdown(executionContext, options); countdownError != nil {
			return summary, fmt.Errorf(countdownErrorTemplateConstant, countdownError)
		}
	}

	reconciler, reconcilerError := reconcile.NewReconciler(reconcile.Dependencies{
		Logger:    logger,
		Performer: executor,
		Sleeper:   service.sleeper,
		Following: following,
		Observer:  service.reporter,
	})
	if reconcilerError != nil {
		return summary, fmt.Errorf(componentErrorTemplateConstant, reconcilerError)
	}

	service.reporter.PhaseStarted(reconciliationPhaseNameConstant)
	reconciliationResult, reconcileError := reconciler.Execute(executionContext, plan, reconcile.ExecutionOptions{
		SkipFollowBack: options.SkipFollowBack,
		SkipUnfollow:   options.SkipUnfollow,
		DryRun:         options.DryRun,
		ActionDelay:    options.ActionDelay,
	})
	summary.Reconciliation = reconciliationResult
	if reconcileError != nil {
		summary.Failures = components.failures()
		return summary, fmt.Errorf(reconciliationErrorTemplateConstant, reconcileError)
	}

	traversalSummaries, traversalError := service.runTraversals(executionContext, logger, options, seeds, confirmedSeeds, components)
	summary.Traversals = traversalSummaries
	if traversalError != nil {
		summary.Failures = components.failures()
		return summary, traversalError
	}

	return service.finish(logger, summary, options, components)
}

func (service *Service) loadRelationships(executionContext context.Context, logger *zap.Logger, options Options, account string) (*relationships.AccountSet, *relationships.AccountSet, error) {
	var following *relationships.AccountSet
	var followers *relationships.AccountSet

	fetchGroup, groupContext := errgroup.WithContext(executionContext)
	fetchGroup.Go(func() error {
		fetcher, fetcherError := service.newFetcher(logger, options, account)
		if fetcherError != nil {
			return fetcherError
		}
		fetched, fetchError := fetcher.FetchFollowing(groupContext)
		following = fetched
		return fetchError
	})
	fetchGroup.Go(func() error {
		fetcher, fetcherError := service.newFetcher(logger, options, account)
		if fetcherError != nil {
			return fetcherError
		}
		fetched, fetchError := fetcher.FetchFollowers(groupContext)
		followers = fetched
		return fetchError
	})

	if waitError := fetchGroup.Wait(); waitError != nil {
		return nil, nil, waitError
	}
	return following, followers, nil
}

func (service *Service) newFetcher(logger *zap.Logger, options Options, account string) (*relationships.Fetcher, error) {
	return relationships.NewFetcher(
		relationships.FetcherDependencies{Logger: logger, Lister: service.api, Sleeper: service.sleeper, Metrics: service.metrics},
		relationships.FetcherConfiguration{PageSize: options.PageSize, SelfPageDelay: options.SelfPageDelay, AccountPageDelay: options.AccountPageDelay},
		account,
	)
}

func (service *Service) countdown(executionContext context.Context, options Options) error {
	if options.DryRun || options.Countdown <= 0 {
		return nil
	}
	for remainingSeconds := options.Countdown; remainingSeconds > 0; remainingSeconds-- {
		service.reporter.CountdownTick(remainingSeconds)
		if sleepError := service.sleeper.Sleep(executionContext, countdownTickDurationConstant); sleepError != nil {
			service.reporter.CountdownTick(0)
			return sleepError
		}
	}
	service.reporter.CountdownTick(0)
	return nil
}

func (service *Service) runTraversals(executionContext context.Context, logger *zap.Logger, options Options, seeds []string, confirmedSeeds map[string]struct{}, components runComponents) ([]report.TraversalSummary, error) {
	summaries := make([]report.TraversalSummary, 0, len(seeds))
	if len(seeds) == 0 {
		return summaries, nil
	}

	var sharedVisited *traversal.VisitedSet
	if options.VisitedScope == traversal.VisitedScopeRun {
		sharedVisited = traversal.NewVisitedSet()
	}

	for _, seed := range seeds {
		traversalSummary := report.TraversalSummary{
			Seed:              seed,
			Strategy:          options.Traversal.Strategy,
			MaxDepth:          options.Traversal.MaxDepth,
			MaxFollowsPerNode: options.Traversal.MaxFollowsPerNode,
		}

		if _, confirmed := confirmedSeeds[seed]; !confirmed {
			traversalSummary.Declined = true
			summaries = append(summaries, traversalSummary)
			service.reporter.TraversalDeclined(seed)
			logger.Info(traversalDeclinedLogMessageConstant, zap.String(seedLogFieldConstant, seed))
			continue
		}

		engine, engineError := traversal.NewEngine(traversal.Dependencies{
			Logger:          logger,
			Followers:       components.traversalFetcher,
			Performer:       components.executor,
			Following:       components.following,
			SessionFollowed: components.sessionFollowed,
			Visited:         sharedVisited,
			Observer:        service.reporter,
			Metrics:         service.metrics,
		}, options.Traversal, components.account)
		if engineError != nil {
			return summaries, fmt.Errorf(componentErrorTemplateConstant, engineError)
		}

		service.reporter.TraversalStarted(seed, options.Traversal)
		statistics, runError := engine.Run(executionContext, seed)
		traversalSummary.Statistics = statistics
		summaries = append(summaries, traversalSummary)
		if runError != nil {
			return summaries, fmt.Errorf(traversalErrorTemplateConstant, seed, runError)
		}
	}

	return summaries, nil
}

// confirmTraversals settles every seed before any mutation happens and returns the seeds allowed to run.
func (service *Service) confirmTraversals(logger *zap.Logger, options Options, seeds []string) (map[string]struct{}, error) {
	confirmedSeeds := make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		confirmed, confirmationError := service.confirmTraversal(logger, options, seed)
		if confirmationError != nil {
			return nil, confirmationError
		}
		if confirmed {
			confirmedSeeds[seed] = struct{}{}
		}
	}
	return confirmedSeeds, nil
}

func (service *Service) confirmTraversal(logger *zap.Logger, options Options, seed string) (bool, error) {
	if !options.Traversal.FullyUnbounded() {
		return true, nil
	}
	service.reporter.UnboundedTraversalWarning(seed)
	if options.AssumeYes {
		return true, nil
	}
	if service.prompter == nil {
		logger.Warn(confirmationUnavailableLogMessageConstant, zap.String(seedLogFieldConstant, seed))
		return false, nil
	}

	confirmed, promptError := service.prompter.Confirm(fmt.Sprintf(unboundedConfirmationPromptTemplate, seed))
	if promptError != nil {
		return false, fmt.Errorf(confirmationErrorTemplateConstant, promptError)
	}
	return confirmed, nil
}

func (service *Service) finish(logger *zap.Logger, summary report.Summary, options Options, components runComponents) (report.Summary, error) {
	summary.Failures = components.failures()
	summary.CompletedAt = service.clock()
	service.reporter.Summary(summary)
	logger.Info(
		runCompletedLogMessageConstant,
		zap.Int(totalFollowedLogFieldConstant, summary.TotalFollowed()),
		zap.Int(failuresLogFieldConstant, len(summary.Failures)),
	)

	if len(options.MetricsFile) > 0 {
		if exportError := service.metrics.WriteTextfile(service.homeExpander.Expand(options.MetricsFile)); exportError != nil {
			return summary, fmt.Errorf(metricsExportErrorTemplateConstant, exportError)
		}
	}
	if len(options.SummaryFile) > 0 {
		if exportError := report.WriteSummaryYAML(service.homeExpander.Expand(options.SummaryFile), summary); exportError != nil {
			return summary, fmt.Errorf(summaryExportErrorTemplateConstant, exportError)
		}
	}
	return summary, nil
}

func normalizeSeeds(seeds []string) []string {
	normalized := make([]string, 0, len(seeds))
	seen := make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		trimmedSeed := strings.TrimSpace(seed)
		if _, duplicate := seen[trimmedSeed]; duplicate {
			continue
		}
		seen[trimmedSeed] = struct{}{}
		normalized = append(normalized, trimmedSeed)
	}
	return normalized
}
