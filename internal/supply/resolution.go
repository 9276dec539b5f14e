package supply

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadResolution rejects a resolution string outside the closed set
var ErrBadResolution = errors.New("invalid line resolution")

// ResolutionKind is the picker's verdict on a line
type ResolutionKind int

const (
	// KindConfirmed leaves the unit where it is
	KindConfirmed ResolutionKind = iota
	// KindRemoved removes the unit from stock at validation
	KindRemoved
	// KindRelocated moves the unit to another slot at validation
	KindRelocated
)

// Resolution is the tagged outcome of a supply line:
// confirmed | removed | relocated-to:<label>.
type Resolution struct {
	Kind        ResolutionKind
	TargetLabel string // set only for KindRelocated
}

func Confirmed() Resolution { return Resolution{Kind: KindConfirmed} }
func Removed() Resolution   { return Resolution{Kind: KindRemoved} }
func RelocatedTo(label string) Resolution {
	return Resolution{Kind: KindRelocated, TargetLabel: label}
}

const relocatedPrefix = "relocated-to:"

// ParseResolution decodes the serialized form stored on a SupplyLine
func ParseResolution(s string) (Resolution, error) {
	switch {
	case s == "confirmed":
		return Confirmed(), nil
	case s == "removed":
		return Removed(), nil
	case strings.HasPrefix(s, relocatedPrefix):
		label := strings.TrimPrefix(s, relocatedPrefix)
		if label == "" {
			return Resolution{}, fmt.Errorf("%w: empty relocation target", ErrBadResolution)
		}
		return RelocatedTo(label), nil
	default:
		return Resolution{}, fmt.Errorf("%w: %q", ErrBadResolution, s)
	}
}

// String is the serialized form stored on a SupplyLine
func (r Resolution) String() string {
	switch r.Kind {
	case KindRemoved:
		return "removed"
	case KindRelocated:
		return relocatedPrefix + r.TargetLabel
	default:
		return "confirmed"
	}
}
