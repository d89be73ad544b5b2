// Package daterange keeps a start/end date pair free of future dates and
// inverted ranges.
package daterange

import "time"

// Validation messages attached to the offending field.
const (
	MsgStartInFuture = "Start date cannot be in the future."
	MsgEndInFuture   = "End date cannot be in the future."
	MsgEndBeforeFrom = "End date cannot be before start date."
)

// Which identifies the field a problem belongs to.
type Which int

const (
	None Which = iota
	StartField
	EndField
)

// Problem is the outcome of checking a range.
type Problem struct {
	Field   Which
	Message string
}

// OK reports whether the range passed every check.
func (p Problem) OK() bool { return p.Field == None }

// Check applies the range rules at day granularity. Nil means the field is
// empty. Rules run in order and the first failure wins: start after today,
// end after today, end before start.
func Check(start, end *time.Time, today time.Time) Problem {
	today = Midnight(today)

	if start != nil && Midnight(*start).After(today) {
		return Problem{Field: StartField, Message: MsgStartInFuture}
	}
	if end != nil && Midnight(*end).After(today) {
		return Problem{Field: EndField, Message: MsgEndInFuture}
	}
	if start != nil && end != nil && Midnight(*end).Before(Midnight(*start)) {
		return Problem{Field: EndField, Message: MsgEndBeforeFrom}
	}
	return Problem{}
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// Validator checks a bound start/end field pair.
type Validator struct {
	start Field
	end   Field
	now   func() time.Time
}

// New creates a validator over two fields without wiring any triggers.
func New(start, end Field, opts ...Option) *Validator {
	v := &Validator{start: start, end: end, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Today returns the ceiling used for the future-date checks.
func (v *Validator) Today() time.Time {
	return Midnight(v.now())
}

// Validate reads both fields, clears their custom messages and re-checks
// the range. On failure the offending field gets a message and every field
// carrying one is asked to report it.
func (v *Validator) Validate() bool {
	v.start.SetCustomValidity("")
	v.end.SetCustomValidity("")

	var start, end *time.Time
	if d, ok := v.start.Date(); ok {
		start = &d
	}
	if d, ok := v.end.Date(); ok {
		end = &d
	}

	p := Check(start, end, v.Today())
	if p.OK() {
		return true
	}

	switch p.Field {
	case StartField:
		v.start.SetCustomValidity(p.Message)
	case EndField:
		v.end.SetCustomValidity(p.Message)
	}

	for _, f := range []Field{v.start, v.end} {
		if f.ValidationMessage() != "" {
			f.ReportValidity()
		}
	}
	return false
}

// BoundField is a field that also announces its changes.
type BoundField interface {
	Field
	ChangeNotifier
}

// Attach caps both fields at today and wires the triggers: a start change
// moves end's minimum to the new start and re-validates, an end change
// re-validates, and a submit re-validates and vetoes when invalid. A nil
// form skips the submit trigger. Missing fields make Attach a no-op that
// returns a nil validator. The returned func removes every trigger.
func Attach(start, end BoundField, form Submitter, opts ...Option) (*Validator, func()) {
	if start == nil || end == nil {
		return nil, func() {}
	}

	v := New(start, end, opts...)

	today := v.Today()
	start.SetMax(today)
	end.SetMax(today)

	var unsubs []func()

	unsubs = append(unsubs, start.OnChange(func() {
		if d, ok := start.Date(); ok {
			end.SetMin(d)
		} else {
			end.SetMin(time.Time{})
		}
		v.Validate()
	}))

	unsubs = append(unsubs, end.OnChange(func() {
		v.Validate()
	}))

	if form != nil {
		unsubs = append(unsubs, form.OnSubmit(v.Validate))
	}

	return v, func() {
		for _, u := range unsubs {
			u()
		}
	}
}
