package daterange

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DateLayout is the wire and display format of a calendar date.
const DateLayout = "2006-01-02"

// Field is a date input the validator can read and annotate.
type Field interface {
	// Date returns the field's current value, or false when empty or
	// unparseable.
	Date() (time.Time, bool)

	// SetCustomValidity sets (or clears, with "") the field's custom message.
	SetCustomValidity(msg string)

	// ValidationMessage returns the current custom message.
	ValidationMessage() string

	// ReportValidity surfaces the field's message and reports whether the
	// field is valid.
	ReportValidity() bool

	// SetMin and SetMax bound the selectable dates. The zero time removes
	// the bound.
	SetMin(d time.Time)
	SetMax(d time.Time)
}

// ChangeNotifier lets the validator subscribe to value changes.
type ChangeNotifier interface {
	OnChange(fn func()) (unsubscribe func())
}

// Submitter lets the validator veto a form submission. A listener returning
// false cancels the submission.
type Submitter interface {
	OnSubmit(fn func() bool) (unsubscribe func())
}

// Input is an in-memory date field handle. Frontends bind their widget to it
// with SetText and read messages back for display.
type Input struct {
	mu        sync.Mutex
	name      string
	text      string
	min       *time.Time
	max       *time.Time
	custom    string
	reported  string
	listeners map[int]func()
	nextID    int
}

var (
	_ Field          = (*Input)(nil)
	_ ChangeNotifier = (*Input)(nil)
)

// NewInput creates an empty input labelled name.
func NewInput(name string) *Input {
	return &Input{name: name, listeners: make(map[int]func())}
}

// Name returns the input's label.
func (in *Input) Name() string { return in.name }

// Text returns the raw value.
func (in *Input) Text() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.text
}

// SetText replaces the value and notifies change listeners when it differs.
func (in *Input) SetText(s string) {
	s = strings.TrimSpace(s)

	in.mu.Lock()
	if s == in.text {
		in.mu.Unlock()
		return
	}
	in.text = s
	fns := make([]func(), 0, len(in.listeners))
	for _, fn := range in.listeners {
		fns = append(fns, fn)
	}
	in.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Date parses the value as a local calendar date.
func (in *Input) Date() (time.Time, bool) {
	in.mu.Lock()
	text := in.text
	in.mu.Unlock()

	if text == "" {
		return time.Time{}, false
	}
	d, err := ParseDate(text)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// SetCustomValidity sets the custom message; "" marks the field valid.
func (in *Input) SetCustomValidity(msg string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.custom = msg
	if msg == "" {
		in.reported = ""
	}
}

// ValidationMessage returns the custom message.
func (in *Input) ValidationMessage() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.custom
}

// ReportValidity publishes the field's first problem so Reported returns it,
// and reports whether the field is valid.
func (in *Input) ReportValidity() bool {
	msg := in.Validity()

	in.mu.Lock()
	defer in.mu.Unlock()
	in.reported = msg
	return msg == ""
}

// Reported returns the message last published by ReportValidity.
func (in *Input) Reported() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.reported
}

// Validity returns the first constraint the field violates, or "" when it
// satisfies all of them. Besides the custom message it checks the value
// format and the min/max bounds, the way a native date input does.
func (in *Input) Validity() string {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.custom != "" {
		return in.custom
	}
	if in.text == "" {
		return ""
	}
	d, err := ParseDate(in.text)
	if err != nil {
		return "Use the YYYY-MM-DD format."
	}
	if in.min != nil && d.Before(*in.min) {
		return fmt.Sprintf("Value must be %s or later.", in.min.Format(DateLayout))
	}
	if in.max != nil && d.After(*in.max) {
		return fmt.Sprintf("Value must be %s or earlier.", in.max.Format(DateLayout))
	}
	return ""
}

// SetMin sets the earliest selectable date; the zero time clears it.
func (in *Input) SetMin(d time.Time) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if d.IsZero() {
		in.min = nil
		return
	}
	d = Midnight(d)
	in.min = &d
}

// SetMax sets the latest selectable date; the zero time clears it.
func (in *Input) SetMax(d time.Time) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if d.IsZero() {
		in.max = nil
		return
	}
	d = Midnight(d)
	in.max = &d
}

// Min returns the earliest selectable date, if set.
func (in *Input) Min() (time.Time, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.min == nil {
		return time.Time{}, false
	}
	return *in.min, true
}

// Max returns the latest selectable date, if set.
func (in *Input) Max() (time.Time, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.max == nil {
		return time.Time{}, false
	}
	return *in.max, true
}

// OnChange registers fn to run after every value change.
func (in *Input) OnChange(fn func()) func() {
	in.mu.Lock()
	defer in.mu.Unlock()
	id := in.nextID
	in.nextID++
	in.listeners[id] = fn
	return func() {
		in.mu.Lock()
		defer in.mu.Unlock()
		delete(in.listeners, id)
	}
}

// Form is an in-memory handle for the form owning a date pair.
type Form struct {
	mu        sync.Mutex
	listeners map[int]func() bool
	nextID    int
}

var _ Submitter = (*Form)(nil)

// NewForm creates a form handle with no listeners.
func NewForm() *Form {
	return &Form{listeners: make(map[int]func() bool)}
}

// OnSubmit registers a submit listener.
func (f *Form) OnSubmit(fn func() bool) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

// Submit runs every listener and reports whether the submission may proceed.
// All listeners run even after one vetoes.
func (f *Form) Submit() bool {
	f.mu.Lock()
	fns := make([]func() bool, 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	ok := true
	for _, fn := range fns {
		if !fn() {
			ok = false
		}
	}
	return ok
}

// ParseDate parses a YYYY-MM-DD string as midnight in the local zone.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}

// Midnight zeroes the time of day of t in the local zone.
func Midnight(t time.Time) time.Time {
	t = t.In(time.Local)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
