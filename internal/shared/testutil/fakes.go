package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"idoosync/internal/alerting"
	"idoosync/internal/browser"
)

// FakeSleeper records requested sleeps without blocking
type FakeSleeper struct {
	mu     sync.Mutex
	Sleeps []time.Duration
	// OnSleep runs after each recorded sleep
	OnSleep func(d time.Duration)
}

// Sleep implements timing.Sleeper
func (s *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.Sleeps = append(s.Sleeps, d)
	hook := s.OnSleep
	s.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	return nil
}

// Count returns the number of sleeps taken
func (s *FakeSleeper) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sleeps)
}

// Total returns the summed sleep time
func (s *FakeSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.Sleeps {
		total += d
	}
	return total
}

// RecordingSink keeps every alert it receives
type RecordingSink struct {
	mu     sync.Mutex
	events []alerting.Event
	Err    error
}

// Send implements alerting.Sink
func (s *RecordingSink) Send(_ context.Context, e alerting.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.Err
}

// Events returns the received events
func (s *RecordingSink) Events() []alerting.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alerting.Event(nil), s.events...)
}

// FakeElement is a scripted browser.Element
type FakeElement struct {
	Name     string
	Content  string
	Hidden   bool
	Disabled bool

	ClickErr  error
	ParentErr error
	ScriptErr error
	TypeErr   error

	// Value accumulates typed text and is reset by Clear
	Value string

	driver *FakeDriver
}

// NewElement creates a visible, enabled element
func NewElement(name string) *FakeElement {
	return &FakeElement{Name: name}
}

func (e *FakeElement) act(kind string, err error) error {
	if e.driver != nil {
		e.driver.record(kind + ":" + e.Name)
		if err == nil {
			e.driver.fireClick(e.Name, kind)
		}
	}
	return err
}

// Click implements browser.Element
func (e *FakeElement) Click(context.Context) error {
	return e.act("click", e.ClickErr)
}

// ClickParent implements browser.Element
func (e *FakeElement) ClickParent(context.Context) error {
	return e.act("parent_click", e.ParentErr)
}

// ScriptClick implements browser.Element
func (e *FakeElement) ScriptClick(context.Context) error {
	return e.act("script_click", e.ScriptErr)
}

// Text implements browser.Element
func (e *FakeElement) Text(context.Context) (string, error) {
	return e.Content, nil
}

// Clear implements browser.Element
func (e *FakeElement) Clear(context.Context) error {
	if e.driver != nil {
		e.driver.record("clear:" + e.Name)
	}
	e.Value = ""
	return nil
}

// Type implements browser.Element
func (e *FakeElement) Type(_ context.Context, text string) error {
	if e.driver != nil {
		e.driver.record("type:" + e.Name + "=" + text)
	}
	if e.TypeErr != nil {
		return e.TypeErr
	}
	e.Value += text
	return nil
}

// Visible implements browser.Element
func (e *FakeElement) Visible(context.Context) (bool, error) {
	return !e.Hidden, nil
}

// Enabled implements browser.Element
func (e *FakeElement) Enabled(context.Context) (bool, error) {
	return !e.Disabled, nil
}

// FakeDriver is an in-memory browser.Driver. Elements are registered per
// selector, optionally scoped to a frame path written as "a/b".
type FakeDriver struct {
	mu sync.Mutex

	elements map[string][]*FakeElement
	appear   map[string]int
	frames   map[string]int
	missing  map[string]bool
	onClick  map[string]func(kind string)

	frame       []string
	actions     []string
	navigations []string
	reloads     int
	screenshots []string
	closed      bool

	CurrentURL    string
	HTMLByFrame   map[string]string
	FindErr       error
	NavigateErr   error
	ScreenshotErr error
	OnNavigate    func(url string)
	OnReload      func()
}

// NewFakeDriver creates an empty fake session
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		elements:    make(map[string][]*FakeElement),
		appear:      make(map[string]int),
		frames:      make(map[string]int),
		missing:     make(map[string]bool),
		onClick:     make(map[string]func(string)),
		HTMLByFrame: make(map[string]string),
	}
}

func elementKey(frame string, sel browser.Selector) string {
	return frame + "|" + sel.String()
}

// Put registers els for sel in any frame
func (d *FakeDriver) Put(sel browser.Selector, els ...*FakeElement) {
	d.PutIn("*", sel, els...)
}

// PutIn registers els for sel in the given frame path
func (d *FakeDriver) PutIn(frame string, sel browser.Selector, els ...*FakeElement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, el := range els {
		el.driver = d
	}
	d.elements[elementKey(frame, sel)] = els
}

// Remove unregisters sel everywhere
func (d *FakeDriver) Remove(sel browser.Selector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	suffix := "|" + sel.String()
	for k := range d.elements {
		if strings.HasSuffix(k, suffix) {
			delete(d.elements, k)
		}
	}
}

// AppearAfter hides sel for the first n lookups
func (d *FakeDriver) AppearAfter(sel browser.Selector, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.appear[sel.String()] = n
}

// FailFrame makes the next n attempts to enter name fail
func (d *FakeDriver) FailFrame(name string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames[name] = n
}

// MissingFrame makes every attempt to enter name fail
func (d *FakeDriver) MissingFrame(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.missing[name] = true
}

// OnClick registers fn to run after any successful click on the named
// element. fn receives the click kind.
func (d *FakeDriver) OnClick(name string, fn func(kind string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onClick[name] = fn
}

func (d *FakeDriver) fireClick(name, kind string) {
	d.mu.Lock()
	fn := d.onClick[name]
	d.mu.Unlock()
	if fn != nil {
		fn(kind)
	}
}

func (d *FakeDriver) record(action string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = append(d.actions, action)
}

// Actions returns the element interactions in order
func (d *FakeDriver) Actions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.actions...)
}

// Navigations returns every URL navigated to
func (d *FakeDriver) Navigations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigations...)
}

// Reloads returns how many times the page was reloaded
func (d *FakeDriver) Reloads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reloads
}

// Screenshots returns the paths written
func (d *FakeDriver) Screenshots() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.screenshots...)
}

// Frame returns the current frame path
func (d *FakeDriver) Frame() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.frame, "/")
}

// Closed reports whether Close was called
func (d *FakeDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Navigate implements browser.Driver
func (d *FakeDriver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	d.navigations = append(d.navigations, url)
	d.frame = nil
	err := d.NavigateErr
	if err == nil {
		d.CurrentURL = url
	}
	hook := d.OnNavigate
	d.mu.Unlock()
	if hook != nil && err == nil {
		hook(url)
	}
	return err
}

// Reload implements browser.Driver
func (d *FakeDriver) Reload(context.Context) error {
	d.mu.Lock()
	d.reloads++
	d.frame = nil
	hook := d.OnReload
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

// URL implements browser.Driver
func (d *FakeDriver) URL(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.CurrentURL, nil
}

// FindAll implements browser.Driver
func (d *FakeDriver) FindAll(_ context.Context, sel browser.Selector) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FindErr != nil {
		return nil, d.FindErr
	}
	if n := d.appear[sel.String()]; n > 0 {
		d.appear[sel.String()] = n - 1
		return nil, nil
	}

	els, ok := d.elements[elementKey(strings.Join(d.frame, "/"), sel)]
	if !ok {
		els = d.elements[elementKey("*", sel)]
	}
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

// EnterFrame implements browser.Driver
func (d *FakeDriver) EnterFrame(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.missing[name] {
		return fmt.Errorf("%w: %s", browser.ErrContextNotFound, name)
	}
	if n := d.frames[name]; n > 0 {
		d.frames[name] = n - 1
		return fmt.Errorf("%w: %s", browser.ErrContextNotFound, name)
	}
	d.frame = append(d.frame, name)
	return nil
}

// ExitFrames implements browser.Driver
func (d *FakeDriver) ExitFrames(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = nil
	return nil
}

// HTML implements browser.Driver
func (d *FakeDriver) HTML(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.HTMLByFrame[strings.Join(d.frame, "/")], nil
}

// Screenshot implements browser.Driver. A placeholder file is written so
// callers can check it exists.
func (d *FakeDriver) Screenshot(_ context.Context, path string) error {
	d.mu.Lock()
	err := d.ScreenshotErr
	if err == nil {
		d.screenshots = append(d.screenshots, path)
	}
	d.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte("png"), 0644)
}

// Close implements browser.Driver
func (d *FakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
