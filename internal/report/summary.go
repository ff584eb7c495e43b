package report

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/temirov/ghfollow/internal/reconcile"
	"github.com/temirov/ghfollow/internal/relationships"
	"github.com/temirov/ghfollow/internal/traversal"
)

const (
	summaryFilePermissionsConstant     = 0o644
	summaryPathMissingMessageConstant  = "summary file path must be provided"
	summaryEncodeErrorTemplateConstant = "unable to encode run summary: %w"
	summaryWriteErrorTemplateConstant  = "unable to write run summary to %s: %w"
)

// ErrSummaryPathMissing indicates WriteSummaryYAML was called without a destination.
var ErrSummaryPathMissing = errors.New(summaryPathMissingMessageConstant)

// Summary captures the outcome of one run.
type Summary struct {
	RunIdentifier    string                        `yaml:"run_id"`
	Account          string                        `yaml:"account"`
	DryRun           bool                          `yaml:"dry_run"`
	StartedAt        time.Time                     `yaml:"started_at"`
	CompletedAt      time.Time                     `yaml:"completed_at"`
	Following        int                           `yaml:"following"`
	Followers        int                           `yaml:"followers"`
	PlannedFollows   int                           `yaml:"planned_follows"`
	PlannedUnfollows int                           `yaml:"planned_unfollows"`
	NothingToDo      bool                          `yaml:"nothing_to_do"`
	Reconciliation   reconcile.Result              `yaml:"reconciliation"`
	Traversals       []TraversalSummary            `yaml:"traversals,omitempty"`
	Failures         []relationships.ActionFailure `yaml:"failures,omitempty"`
}

// TraversalSummary captures the outcome of one seed traversal.
type TraversalSummary struct {
	Seed              string               `yaml:"seed"`
	Strategy          traversal.Strategy   `yaml:"strategy"`
	MaxDepth          traversal.Bound      `yaml:"max_depth"`
	MaxFollowsPerNode traversal.Bound      `yaml:"max_follows_per_node"`
	Declined          bool                 `yaml:"declined,omitempty"`
	Statistics        traversal.Statistics `yaml:"statistics"`
}

// TotalFollowed returns follows made by reconciliation and every traversal.
func (summary Summary) TotalFollowed() int {
	total := summary.Reconciliation.Followed
	for _, traversalSummary := range summary.Traversals {
		total += traversalSummary.Statistics.Followed
	}
	return total
}

// WriteSummaryYAML writes summary to filePath.
func WriteSummaryYAML(filePath string, summary Summary) error {
	if len(filePath) == 0 {
		return ErrSummaryPathMissing
	}

	encodedSummary, encodeError := yaml.Marshal(summary)
	if encodeError != nil {
		return fmt.Errorf(summaryEncodeErrorTemplateConstant, encodeError)
	}

	if writeError := os.WriteFile(filePath, encodedSummary, summaryFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, filePath, writeError)
	}
	return nil
}
