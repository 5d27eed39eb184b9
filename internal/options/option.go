package options

import (
	"fmt"
	"strconv"
	"strings"

	hostErrors "github.com/wadbctl/host/internal/errors"
)

// Option is one user-editable configuration slot.
//
// The current value always satisfies the option's validator: SetValue either
// stores the new value or returns an option.invalid_value error and leaves the
// previous value in place.
type Option interface {
	Key() string
	Name() string
	Kind() Kind
	Value() Value
	Default() Value
	SetValue(v Value) error
	// Parse converts user input into a Value of the right kind without
	// validating it against the option's range.
	Parse(text string) (Value, error)
	Reset()
	// Display renders the current value for humans.
	Display() string
}

type base struct {
	key  string
	name string
	kind Kind
	def  Value
	cur  Value
}

func (b *base) Key() string    { return b.key }
func (b *base) Name() string   { return b.name }
func (b *base) Kind() Kind     { return b.kind }
func (b *base) Value() Value   { return b.cur }
func (b *base) Default() Value { return b.def }

func (b *base) set(v Value, validate func(Value) error) error {
	if v.Kind() != b.kind {
		return hostErrors.InvalidValue(b.key, fmt.Sprintf("expects %s value, got %s", b.kind, v.Kind()))
	}
	if err := validate(v); err != nil {
		return err
	}
	b.cur = v
	return nil
}

// IntegerOption holds an integer in [Min, Max].
type IntegerOption struct {
	base
	Min, Max int
}

// NewIntegerOption creates an IntegerOption set to def.
func NewIntegerOption(key, name string, def, min, max int) *IntegerOption {
	return &IntegerOption{
		base: base{key: key, name: name, kind: KindInt, def: IntValue(def), cur: IntValue(def)},
		Min:  min,
		Max:  max,
	}
}

// Int returns the current value.
func (o *IntegerOption) Int() int { return o.cur.Int() }

func (o *IntegerOption) SetValue(v Value) error {
	return o.set(v, func(v Value) error {
		if v.Int() < o.Min || v.Int() > o.Max {
			return hostErrors.InvalidValue(o.key, fmt.Sprintf("%d is outside %d..%d", v.Int(), o.Min, o.Max))
		}
		return nil
	})
}

func (o *IntegerOption) Parse(text string) (Value, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return Value{}, hostErrors.InvalidValue(o.key, fmt.Sprintf("%q is not a number", text))
	}
	return IntValue(n), nil
}

func (o *IntegerOption) Reset() { o.cur = o.def }

func (o *IntegerOption) Display() string { return strconv.Itoa(o.Int()) }

// Choice is one labeled alternative of a ChoiceOption.
type Choice struct {
	Label string
	// Value is the payload the choice stands for (an interval in
	// milliseconds, a flag). It is never persisted; the index is.
	Value int
}

// ChoiceOption stores the index of the selected choice.
type ChoiceOption struct {
	base
	choices []Choice
}

// NewChoiceOption creates a ChoiceOption selecting choices[def].
func NewChoiceOption(key, name string, def int, choices ...Choice) *ChoiceOption {
	return &ChoiceOption{
		base:    base{key: key, name: name, kind: KindInt, def: IntValue(def), cur: IntValue(def)},
		choices: choices,
	}
}

// Index returns the selected index.
func (o *ChoiceOption) Index() int { return o.cur.Int() }

// Selected returns the selected choice.
func (o *ChoiceOption) Selected() Choice { return o.choices[o.Index()] }

// Choices returns a copy of the alternatives in order.
func (o *ChoiceOption) Choices() []Choice {
	out := make([]Choice, len(o.choices))
	copy(out, o.choices)
	return out
}

// Next advances to the following choice, wrapping to the first.
func (o *ChoiceOption) Next() {
	next := o.Index() + 1
	if next >= len(o.choices) {
		next = 0
	}
	o.cur = IntValue(next)
}

func (o *ChoiceOption) SetValue(v Value) error {
	return o.set(v, func(v Value) error {
		if v.Int() < 0 || v.Int() >= len(o.choices) {
			return hostErrors.InvalidValue(o.key, fmt.Sprintf("choice %d does not exist", v.Int()))
		}
		return nil
	})
}

// Parse accepts a label (case-insensitive) or a numeric index.
func (o *ChoiceOption) Parse(text string) (Value, error) {
	text = strings.TrimSpace(text)
	for i, c := range o.choices {
		if strings.EqualFold(c.Label, text) {
			return IntValue(i), nil
		}
	}
	if n, err := strconv.Atoi(text); err == nil {
		return IntValue(n), nil
	}
	return Value{}, hostErrors.InvalidValue(o.key, fmt.Sprintf("%q is not one of %s", text, o.labels()))
}

func (o *ChoiceOption) labels() string {
	labels := make([]string, len(o.choices))
	for i, c := range o.choices {
		labels[i] = c.Label
	}
	return strings.Join(labels, ", ")
}

func (o *ChoiceOption) Reset() { o.cur = o.def }

func (o *ChoiceOption) Display() string { return o.Selected().Label }

// textOption is the shared behavior of string options: an empty value
// means "use the default".
type textOption struct {
	base
}

func newTextOption(key, name, def string) textOption {
	return textOption{base: base{key: key, name: name, kind: KindString, def: StringValue(def), cur: StringValue(def)}}
}

// Text returns the current value.
func (o *textOption) Text() string { return o.cur.Str() }

func (o *textOption) setText(v Value, validate func(string) bool, reason string) error {
	if v.Kind() == KindString && v.Str() == "" {
		v = o.def
	}
	return o.set(v, func(v Value) error {
		if !validate(v.Str()) {
			return hostErrors.InvalidValue(o.key, fmt.Sprintf("%q %s", v.Str(), reason))
		}
		return nil
	})
}

func (o *textOption) Parse(text string) (Value, error) {
	return StringValue(strings.TrimSpace(text)), nil
}

func (o *textOption) Reset() { o.cur = o.def }

func (o *textOption) Display() string { return o.Text() }

// PathOption holds an executable path. The default is always accepted, so a
// missing interpreter never locks the user out of resetting the option.
type PathOption struct {
	textOption
	env Env
}

// NewPathOption creates a PathOption set to def.
func NewPathOption(key, name, def string, env Env) *PathOption {
	return &PathOption{textOption: newTextOption(key, name, def), env: env}
}

func (o *PathOption) SetValue(v Value) error {
	return o.setText(v, func(path string) bool {
		return path == o.def.Str() || ValidateExecPath(o.env, path)
	}, "is not an executable")
}

// InterfaceOption names the network interface used for address resolution,
// optionally suffixed with ":4" or ":6". The default and the current value
// are always accepted because an interface is not always up.
type InterfaceOption struct {
	textOption
	env Env
}

// NewInterfaceOption creates an InterfaceOption set to def.
func NewInterfaceOption(key, name, def string, env Env) *InterfaceOption {
	return &InterfaceOption{textOption: newTextOption(key, name, def), env: env}
}

func (o *InterfaceOption) SetValue(v Value) error {
	return o.setText(v, func(name string) bool {
		return name == o.def.Str() || name == o.cur.Str() || o.env.InterfaceResolves(name)
	}, "does not resolve to an address")
}
