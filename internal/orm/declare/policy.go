package declare

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/schemabridge/internal/orm/source"
)

// Action is what happens to a field whose kind has no mapping
type Action int

const (
	// ActionWarn omits the column and logs a warning
	ActionWarn Action = iota + 1
	// ActionSkip omits the column and logs at debug level
	ActionSkip
	// ActionRaise fails the declaration
	ActionRaise
	// ActionFallback maps the field as another kind
	ActionFallback
)

// Policy is the missing-mapping policy. The zero value is invalid: the
// policy must always be configured explicitly.
type Policy struct {
	Action   Action
	Fallback source.Kind
}

// Policies for the plain actions
var (
	Warn  = Policy{Action: ActionWarn}
	Skip  = Policy{Action: ActionSkip}
	Raise = Policy{Action: ActionRaise}
)

// FallbackTo returns a policy mapping unmapped fields as kind
func FallbackTo(kind source.Kind) Policy {
	return Policy{Action: ActionFallback, Fallback: kind}
}

// ParsePolicy parses "warn", "skip", "raise" or "fallback:<Kind>"
func ParsePolicy(s string) (Policy, error) {
	value := strings.TrimSpace(s)
	if value == "" {
		return Policy{}, fmt.Errorf("missing-mapping policy is required (warn, skip, raise or fallback:<Kind>)")
	}

	if prefix, kind, found := strings.Cut(value, ":"); found {
		if !strings.EqualFold(prefix, "fallback") {
			return Policy{}, fmt.Errorf("invalid missing-mapping policy: %s", s)
		}
		kind = strings.TrimSpace(kind)
		if kind == "" {
			return Policy{}, fmt.Errorf("fallback policy requires a field kind")
		}
		return FallbackTo(source.Kind(kind)), nil
	}

	switch strings.ToLower(value) {
	case "warn":
		return Warn, nil
	case "skip":
		return Skip, nil
	case "raise":
		return Raise, nil
	default:
		return Policy{}, fmt.Errorf("invalid missing-mapping policy: %s", s)
	}
}

// Validate checks that the policy was configured
func (p Policy) Validate() error {
	switch p.Action {
	case ActionWarn, ActionSkip, ActionRaise:
		return nil
	case ActionFallback:
		if p.Fallback == "" {
			return fmt.Errorf("fallback policy requires a field kind")
		}
		return nil
	default:
		return fmt.Errorf("missing-mapping policy is not configured")
	}
}

func (p Policy) String() string {
	switch p.Action {
	case ActionWarn:
		return "warn"
	case ActionSkip:
		return "skip"
	case ActionRaise:
		return "raise"
	case ActionFallback:
		return "fallback:" + string(p.Fallback)
	default:
		return "unset"
	}
}

// BackRefKind selects how reverse accessors are attached
type BackRefKind int

const (
	// BackRefNone declares no reverse accessors
	BackRefNone BackRefKind = iota
	// BackRefBackref installs reverse accessors on the target automatically
	BackRefBackref
	// BackRefBackPopulates declares explicitly paired accessors
	BackRefBackPopulates
)

// ParseBackRefKind parses "", "none", "backref" or "back_populates"
func ParseBackRefKind(s string) (BackRefKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return BackRefNone, nil
	case "backref":
		return BackRefBackref, nil
	case "back_populates", "back-populates", "backpopulates":
		return BackRefBackPopulates, nil
	default:
		return BackRefNone, fmt.Errorf("invalid back-reference kind: %s", s)
	}
}

func (k BackRefKind) String() string {
	switch k {
	case BackRefBackref:
		return "backref"
	case BackRefBackPopulates:
		return "back_populates"
	default:
		return "none"
	}
}
