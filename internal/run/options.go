package run

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/temirov/ghfollow/internal/traversal"
)

const (
	traversalTargetMissingMessageConstant = "ambitious traversal requires a non-empty seed account"
	optionsInvalidTemplateConstant        = "invalid run options: %s"
	violationSeparatorConstant            = "; "
	violationRangeTemplateConstant        = "%s must be between %s and %s"
	violationMinimumTemplateConstant      = "%s must be at least %s"
	violationMaximumTemplateConstant      = "%s must be at most %s"
	violationOneOfTemplateConstant        = "%s must be one of: %s"
	violationGenericTemplateConstant      = "%s is invalid"
	optionTagNameConstant                 = "option"
	validatorTagGreaterOrEqualConstant    = "gte"
	validatorTagLessOrEqualConstant       = "lte"
	validatorTagOneOfConstant             = "oneof"
	pageSizeMinimumLabelConstant          = "1"
	pageSizeMaximumLabelConstant          = "100"
)

// ErrTraversalTargetMissing indicates an ambitious traversal was requested with an empty seed.
var ErrTraversalTargetMissing = errors.New(traversalTargetMissingMessageConstant)

// Options are the fully resolved settings of one run.
type Options struct {
	DryRun             bool
	AssumeYes          bool
	SkipFollowBack     bool
	SkipUnfollow       bool
	VerifyBeforeFollow bool
	Seeds              []string
	Traversal          traversal.Configuration `validate:"-"`
	VisitedScope       traversal.VisitedScope  `option:"visited_scope" validate:"oneof=traversal run"`
	PageSize           int                     `option:"page_size" validate:"gte=1,lte=100"`
	SelfPageDelay      time.Duration           `option:"self_page_delay" validate:"gte=0"`
	AccountPageDelay   time.Duration           `option:"account_page_delay" validate:"gte=0"`
	ActionDelay        time.Duration           `option:"action_delay" validate:"gte=0"`
	Countdown          int                     `option:"countdown" validate:"gte=0"`
	MetricsFile        string
	SummaryFile        string
	RunIdentifier      string
}

// OptionsValidationError lists every option that failed validation.
type OptionsValidationError struct {
	Violations []string
}

// Error describes the violations.
func (validationError OptionsValidationError) Error() string {
	return fmt.Sprintf(optionsInvalidTemplateConstant, strings.Join(validationError.Violations, violationSeparatorConstant))
}

var optionsValidator = newOptionsValidator()

func newOptionsValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		optionName := field.Tag.Get(optionTagNameConstant)
		if len(optionName) == 0 {
			return field.Name
		}
		return optionName
	})
	return validate
}

// Validate confirms the options describe a runnable session.
func (options Options) Validate() error {
	for _, seed := range options.Seeds {
		if len(strings.TrimSpace(seed)) == 0 {
			return ErrTraversalTargetMissing
		}
	}

	if structError := optionsValidator.Struct(options); structError != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(structError, &validationErrors) {
			return structError
		}
		violations := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			violations = append(violations, describeViolation(fieldError))
		}
		return OptionsValidationError{Violations: violations}
	}

	return options.Traversal.Validate()
}

func describeViolation(fieldError validator.FieldError) string {
	switch {
	case fieldError.Field() == "page_size":
		return fmt.Sprintf(violationRangeTemplateConstant, fieldError.Field(), pageSizeMinimumLabelConstant, pageSizeMaximumLabelConstant)
	case fieldError.Tag() == validatorTagGreaterOrEqualConstant:
		return fmt.Sprintf(violationMinimumTemplateConstant, fieldError.Field(), fieldError.Param())
	case fieldError.Tag() == validatorTagLessOrEqualConstant:
		return fmt.Sprintf(violationMaximumTemplateConstant, fieldError.Field(), fieldError.Param())
	case fieldError.Tag() == validatorTagOneOfConstant:
		return fmt.Sprintf(violationOneOfTemplateConstant, fieldError.Field(), fieldError.Param())
	default:
		return fmt.Sprintf(violationGenericTemplateConstant, fieldError.Field())
	}
}
