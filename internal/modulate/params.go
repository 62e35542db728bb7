package modulate

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidParameter is matched by every parameter validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParamError describes a modulation parameter outside its allowed domain.
type ParamError struct {
	Field  string // "func", "orientation" or "period"
	Value  string // offending value as supplied
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s must be %s (got %q)", e.Field, e.Reason, e.Value)
}

// Is reports whether target is ErrInvalidParameter.
func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// Func selects the periodic function applied along the modulation axis.
type Func int

const (
	Sine Func = iota + 1
	Cosine
)

// String returns the canonical name of the function.
func (f Func) String() string {
	switch f {
	case Sine:
		return "sine"
	case Cosine:
		return "cosine"
	default:
		return fmt.Sprintf("Func(%d)", int(f))
	}
}

// Valid reports whether f is one of the supported functions.
func (f Func) Valid() bool {
	return f == Sine || f == Cosine
}

// ParseFunc converts a user-supplied name into a Func.
//
// Accepted names are "sine"/"sin" and "cosine"/"cos", case-insensitive and
// ignoring surrounding whitespace. Anything else is an error; there is no
// default.
func ParseFunc(s string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sin", "sine":
		return Sine, nil
	case "cos", "cosine":
		return Cosine, nil
	}
	return 0, &ParamError{Field: "func", Value: s, Reason: "sin or cos"}
}

// Orientation selects the axis along which the wave phase advances.
type Orientation int

const (
	// Vertical varies the wave down the rows; each row is uniform.
	Vertical Orientation = iota + 1
	// Horizontal varies the wave across the columns; each column is uniform.
	Horizontal
)

func (o Orientation) String() string {
	switch o {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// Valid reports whether o is one of the supported orientations.
func (o Orientation) Valid() bool {
	return o == Vertical || o == Horizontal
}

// ParseOrientation converts "vertical" or "horizontal" into an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical":
		return Vertical, nil
	case "horizontal":
		return Horizontal, nil
	}
	return 0, &ParamError{Field: "orientation", Value: s, Reason: "vertical or horizontal"}
}

// Params holds the inputs of a modulation.
type Params struct {
	// Period is the wave length in pixels. Must be finite and > 0.
	Period float64

	Func        Func
	Orientation Orientation
}

// ParseParams builds Params from raw string inputs, validating each one.
// The first failure is returned, checked in the order func, orientation,
// period.
func ParseParams(period float64, fn, orientation string) (Params, error) {
	f, err := ParseFunc(fn)
	if err != nil {
		return Params{}, err
	}
	o, err := ParseOrientation(orientation)
	if err != nil {
		return Params{}, err
	}
	p := Params{Period: period, Func: f, Orientation: o}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks every field of p and returns the first violation.
func (p Params) Validate() error {
	if !p.Func.Valid() {
		return &ParamError{Field: "func", Value: p.Func.String(), Reason: "sin or cos"}
	}
	if !p.Orientation.Valid() {
		return &ParamError{Field: "orientation", Value: p.Orientation.String(), Reason: "vertical or horizontal"}
	}
	if math.IsNaN(p.Period) || math.IsInf(p.Period, 0) || p.Period <= 0 {
		return &ParamError{Field: "period", Value: fmt.Sprint(p.Period), Reason: "> 0"}
	}
	// Periods below about 3.5e-308 overflow the angular frequency.
	if math.IsInf(2*math.Pi/p.Period, 0) {
		return &ParamError{Field: "period", Value: fmt.Sprint(p.Period), Reason: "large enough that 2π/period is finite"}
	}
	return nil
}
