package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/temirov/ghfollow/internal/relationships"
	"github.com/temirov/ghfollow/internal/traversal"
)

const (
	lineTemplateConstant                     = "%s\n"
	countdownLineTemplateConstant            = "\r%s"
	countdownFinishedConstant                = "\n"
	summaryHeadingConstant                   = "Summary"
	summaryAccountTemplateConstant           = "Account: %s"
	summaryRunTemplateConstant               = "Run: %s"
	summaryDryRunConstant                    = "Mode: dry run, no changes were made"
	summaryRelationshipsTemplateConstant     = "Following: %d  Followers: %d"
	summaryFollowBackTemplateConstant        = "Follow back: %d followed, %d failed"
	summaryFollowBackSkippedConstant         = "Follow back: skipped"
	summaryUnfollowTemplateConstant          = "Unfollow: %d unfollowed, %d failed"
	summaryUnfollowSkippedConstant           = "Unfollow: skipped"
	summaryTraversalTemplateConstant         = "Traversal from %s: %d followed, %d skipped, %d failed, %d nodes processed, max depth %d"
	summaryTraversalLookupsTemplateConstant  = ", %d follower lookups failed"
	summaryTraversalLevelsTemplateConstant   = ", %d levels"
	summaryTraversalDeclinedTemplateConstant = "Traversal from %s: skipped"
	summaryTotalTemplateConstant             = "Total followed: %d"
	summaryFailuresHeadingConstant           = "Failures:"
	summaryFailureTemplateConstant           = "  %s %s: %s"
	successColorConstant                     = "2"
	failureColorConstant                     = "1"
	warningColorConstant                     = "3"
	mutedColorConstant                       = "8"
	headingColorConstant                     = "5"
)

// PrinterConfiguration controls rendering.
type PrinterConfiguration struct {
	DryRun bool
	Styled bool
}

type flusher interface {
	Flush() error
}

// Printer writes progress and summaries for people. It implements the reconciliation and traversal observers.
// Buffered writers are flushed after every write so countdown ticks and progress lines appear immediately.
type Printer struct {
	mutex        sync.Mutex
	writer       io.Writer
	formatter    EventFormatter
	styled       bool
	plainStyle   lipgloss.Style
	headingStyle lipgloss.Style
	successStyle lipgloss.Style
	failureStyle lipgloss.Style
	warningStyle lipgloss.Style
	mutedStyle   lipgloss.Style
}

// IsTerminal reports whether writer is attached to a terminal.
func IsTerminal(writer io.Writer) bool {
	descriptorWriter, hasDescriptor := writer.(interface{ Fd() uintptr })
	if !hasDescriptor {
		return false
	}
	fileDescriptor := descriptorWriter.Fd()
	return isatty.IsTerminal(fileDescriptor) || isatty.IsCygwinTerminal(fileDescriptor)
}

// NewPrinter constructs a Printer writing to writer. A nil writer discards output.
func NewPrinter(writer io.Writer, configuration PrinterConfiguration) *Printer {
	if writer == nil {
		writer = io.Discard
	}
	renderer := lipgloss.NewRenderer(writer)
	return &Printer{
		writer:       writer,
		formatter:    EventFormatter{DryRun: configuration.DryRun},
		styled:       configuration.Styled,
		plainStyle:   renderer.NewStyle(),
		headingStyle: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(headingColorConstant)),
		successStyle: renderer.NewStyle().Foreground(lipgloss.Color(successColorConstant)),
		failureStyle: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(failureColorConstant)),
		warningStyle: renderer.NewStyle().Foreground(lipgloss.Color(warningColorConstant)),
		mutedStyle:   renderer.NewStyle().Foreground(lipgloss.Color(mutedColorConstant)),
	}
}

// PhaseStarted prints a phase heading.
func (printer *Printer) PhaseStarted(name string) {
	printer.printLine(printer.headingStyle, printer.formatter.Phase(name))
}

// Authenticated prints the resolved account.
func (printer *Printer) Authenticated(account string) {
	printer.printLine(printer.mutedStyle, printer.formatter.Authenticated(account))
}

// RelationshipsLoaded prints both relationship list sizes.
func (printer *Printer) RelationshipsLoaded(following int, followers int) {
	printer.printLine(printer.mutedStyle, printer.formatter.RelationshipsLoaded(following, followers))
}

// PlanComputed prints the reconciliation plan sizes.
func (printer *Printer) PlanComputed(toFollow int, toUnfollow int) {
	printer.printLine(printer.mutedStyle, printer.formatter.Plan(toFollow, toUnfollow))
}

// NothingToDo reports a run without work.
func (printer *Printer) NothingToDo() {
	printer.printLine(printer.successStyle, printer.formatter.NothingToDo())
}

// CountdownTick prints the seconds left before mutations start. A zero value ends the countdown.
func (printer *Printer) CountdownTick(remainingSeconds int) {
	if remainingSeconds <= 0 {
		if printer.styled {
			printer.write(countdownFinishedConstant)
		}
		return
	}
	message := printer.render(printer.warningStyle, printer.formatter.Countdown(remainingSeconds))
	if printer.styled {
		printer.write(fmt.Sprintf(countdownLineTemplateConstant, message))
		return
	}
	printer.write(fmt.Sprintf(lineTemplateConstant, message))
}

// ActionCompleted prints a reconciliation action outcome.
func (printer *Printer) ActionCompleted(kind relationships.ActionKind, account string, succeeded bool) {
	style := printer.successStyle
	if !succeeded {
		style = printer.failureStyle
	}
	printer.printLine(style, printer.formatter.ActionCompleted(kind, account, succeeded))
}

// TraversalStarted prints the traversal seed and bounds.
func (printer *Printer) TraversalStarted(seed string, configuration traversal.Configuration) {
	printer.printLine(printer.headingStyle, printer.formatter.TraversalStarted(seed, configuration))
}

// UnboundedTraversalWarning warns that a traversal has no limits.
func (printer *Printer) UnboundedTraversalWarning(seed string) {
	printer.printLine(printer.warningStyle, printer.formatter.UnboundedTraversalWarning(seed))
}

// TraversalDeclined reports a traversal skipped by the operator.
func (printer *Printer) TraversalDeclined(seed string) {
	printer.printLine(printer.warningStyle, printer.formatter.TraversalDeclined(seed))
}

// NodeExpanding prints a node whose followers are being fetched.
func (printer *Printer) NodeExpanding(node traversal.Node) {
	printer.printLine(printer.mutedStyle, printer.formatter.NodeExpanding(node))
}

// FollowerFollowed prints a traversal follow.
func (printer *Printer) FollowerFollowed(account string, parent traversal.Node) {
	printer.printLine(printer.successStyle, printer.formatter.FollowerFollowed(account, parent))
}

// NodePruned prints a node left unexpanded by the depth bound.
func (printer *Printer) NodePruned(node traversal.Node) {
	printer.printLine(printer.mutedStyle, printer.formatter.NodePruned(node))
}

// FollowersUnavailable prints a node whose follower lookup failed.
func (printer *Printer) FollowersUnavailable(node traversal.Node, reason string) {
	printer.printLine(printer.failureStyle, printer.formatter.FollowersUnavailable(node, reason))
}

// LevelCompleted prints a finished breadth-first level.
func (printer *Printer) LevelCompleted(depth int, nodes int) {
	printer.printLine(printer.mutedStyle, printer.formatter.LevelCompleted(depth, nodes))
}

// Summary prints the end-of-run summary.
func (printer *Printer) Summary(summary Summary) {
	printer.printLine(printer.headingStyle, printer.formatter.Phase(summaryHeadingConstant))
	printer.printLine(printer.mutedStyle, fmt.Sprintf(summaryAccountTemplateConstant, summary.Account))
	if len(summary.RunIdentifier) > 0 {
		printer.printLine(printer.mutedStyle, fmt.Sprintf(summaryRunTemplateConstant, summary.RunIdentifier))
	}
	if summary.DryRun {
		printer.printLine(printer.warningStyle, summaryDryRunConstant)
	}
	printer.printLine(printer.plainStyle, fmt.Sprintf(summaryRelationshipsTemplateConstant, summary.Following, summary.Followers))

	reconciliation := summary.Reconciliation
	if reconciliation.FollowSkipped {
		printer.printLine(printer.mutedStyle, summaryFollowBackSkippedConstant)
	} else {
		printer.printLine(printer.plainStyle, fmt.Sprintf(summaryFollowBackTemplateConstant, reconciliation.Followed, reconciliation.FollowFailures))
	}
	if reconciliation.UnfollowSkipped {
		printer.printLine(printer.mutedStyle, summaryUnfollowSkippedConstant)
	} else {
		printer.printLine(printer.plainStyle, fmt.Sprintf(summaryUnfollowTemplateConstant, reconciliation.Unfollowed, reconciliation.UnfollowFailures))
	}

	for _, traversalSummary := range summary.Traversals {
		if traversalSummary.Declined {
			printer.printLine(printer.mutedStyle, fmt.Sprintf(summaryTraversalDeclinedTemplateConstant, traversalSummary.Seed))
			continue
		}
		statistics := traversalSummary.Statistics
		line := fmt.Sprintf(
			summaryTraversalTemplateConstant,
			traversalSummary.Seed,
			statistics.Followed,
			statistics.Skipped,
			statistics.FollowFailures,
			statistics.NodesProcessed,
			statistics.MaxDepthReached,
		)
		if traversalSummary.Strategy == traversal.StrategyBreadthFirst {
			line += fmt.Sprintf(summaryTraversalLevelsTemplateConstant, statistics.LevelsProcessed)
		}
		style := printer.plainStyle
		if statistics.FetchFailures > 0 {
			line += fmt.Sprintf(summaryTraversalLookupsTemplateConstant, statistics.FetchFailures)
			style = printer.warningStyle
		}
		printer.printLine(style, line)
	}

	printer.printLine(printer.successStyle, fmt.Sprintf(summaryTotalTemplateConstant, summary.TotalFollowed()))

	if len(summary.Failures) > 0 {
		printer.printLine(printer.failureStyle, summaryFailuresHeadingConstant)
		for _, failure := range summary.Failures {
			printer.printLine(printer.failureStyle, fmt.Sprintf(summaryFailureTemplateConstant, failure.Kind, failure.Account, failure.Reason))
		}
	}
}

func (printer *Printer) printLine(style lipgloss.Style, message string) {
	printer.write(fmt.Sprintf(lineTemplateConstant, printer.render(style, message)))
}

func (printer *Printer) render(style lipgloss.Style, message string) string {
	if !printer.styled {
		return message
	}
	return style.Render(message)
}

func (printer *Printer) write(text string) {
	printer.mutex.Lock()
	defer printer.mutex.Unlock()

	if _, writeError := io.WriteString(printer.writer, text); writeError != nil {
		return
	}
	if bufferedWriter, buffered := printer.writer.(flusher); buffered {
		_ = bufferedWriter.Flush()
	}
}
