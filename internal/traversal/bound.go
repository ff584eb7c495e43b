package traversal

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

const (
	unboundedLabelConstant               = "unbounded"
	boundMinimumTemplateConstant         = "bound %d must be at least 1"
	boundInvalidTemplateConstant         = "invalid bound %q: expected a positive integer or %q"
	boundUnsupportedTypeTemplateConstant = "unsupported bound value of type %T"
)

var unboundedAliases = map[string]struct{}{
	"unbounded": {},
	"none":      {},
	"unlimited": {},
	"infinite":  {},
}

// Bound is an optional positive limit. The zero value is unbounded.
type Bound struct {
	limit   int
	bounded bool
}

// Unbounded returns a Bound that never limits anything.
func Unbounded() Bound {
	return Bound{}
}

// NewBound returns a Bound limited to limit, which must be at least one.
func NewBound(limit int) (Bound, error) {
	if limit < 1 {
		return Bound{}, fmt.Errorf(boundMinimumTemplateConstant, limit)
	}
	return Bound{limit: limit, bounded: true}, nil
}

// ParseBound accepts a positive integer or one of unbounded, none, unlimited, infinite.
func ParseBound(value string) (Bound, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	if _, isUnbounded := unboundedAliases[normalizedValue]; isUnbounded {
		return Unbounded(), nil
	}

	parsedLimit, parseError := strconv.Atoi(normalizedValue)
	if parseError != nil || parsedLimit < 1 {
		return Bound{}, fmt.Errorf(boundInvalidTemplateConstant, value, unboundedLabelConstant)
	}
	return NewBound(parsedLimit)
}

// IsBounded reports whether a limit applies.
func (bound Bound) IsBounded() bool {
	return bound.bounded
}

// Limit returns the limit and whether one applies.
func (bound Bound) Limit() (int, bool) {
	return bound.limit, bound.bounded
}

// Reached reports whether value has hit the limit. An unbounded Bound is never reached.
func (bound Bound) Reached(value int) bool {
	return bound.bounded && value >= bound.limit
}

// Permits reports whether value is within the limit. An unbounded Bound permits every value.
func (bound Bound) Permits(value int) bool {
	return !bound.bounded || value <= bound.limit
}

// FetchLimit converts the bound to a fetch cap where zero means no cap.
func (bound Bound) FetchLimit() int {
	if !bound.bounded {
		return 0
	}
	return bound.limit
}

// String renders the limit or "unbounded".
func (bound Bound) String() string {
	if !bound.bounded {
		return unboundedLabelConstant
	}
	return strconv.Itoa(bound.limit)
}

// MarshalYAML renders the bound as an integer or the unbounded label.
func (bound Bound) MarshalYAML() (interface{}, error) {
	if !bound.bounded {
		return unboundedLabelConstant, nil
	}
	return bound.limit, nil
}

// BoundDecodeHook converts configuration strings and integers into Bound values.
func BoundDecodeHook() mapstructure.DecodeHookFuncType {
	boundType := reflect.TypeOf(Bound{})
	return func(fromType reflect.Type, toType reflect.Type, data any) (any, error) {
		if toType != boundType {
			return data, nil
		}
		switch typedValue := data.(type) {
		case Bound:
			return typedValue, nil
		case string:
			return ParseBound(typedValue)
		case int:
			return NewBound(typedValue)
		case int64:
			return NewBound(int(typedValue))
		case uint64:
			return NewBound(int(typedValue))
		case float64:
			if typedValue != float64(int(typedValue)) {
				return nil, fmt.Errorf(boundInvalidTemplateConstant, strconv.FormatFloat(typedValue, 'f', -1, 64), unboundedLabelConstant)
			}
			return NewBound(int(typedValue))
		default:
			return nil, fmt.Errorf(boundUnsupportedTypeTemplateConstant, data)
		}
	}
}
