// Package sim is an in-memory driver.Driver for dry runs and tests.
//
// A Target holds a set of visible elements per scope (the page, or a named
// nested context under a host element). Clicks can trigger rules that show or
// hide elements, optionally after a delay, and any call can be made to fail a
// fixed number of times. Everything is guarded by one mutex, so a Target is
// safe to share between the sequencer and the watchdogs.
package sim

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/chr1sbest/stagehand/internal/driver"
)

const pageScope = ""

// Ref names an element in a scope. An empty Scope is the page.
type Ref struct {
	Scope   string
	Locator driver.Locator
}

// Page refers to an element on the page itself.
func Page(loc driver.Locator) Ref { return Ref{Locator: loc} }

// In refers to an element inside the named nested context.
func In(scope string, loc driver.Locator) Ref { return Ref{Scope: scope, Locator: loc} }

// Rule reacts to clicks on Locator within Scope.
type Rule struct {
	Scope   string
	Locator driver.Locator

	// Nth fires the rule only on the nth matching click (1-based). Zero
	// fires on every click.
	Nth int

	// Delay postpones the effects.
	Delay time.Duration

	Show []Ref
	Hide []Ref

	// Location replaces the current location when set.
	Location string

	// Do runs after Show and Hide, without the lock held.
	Do func(t *Target)
}

// Click is one recorded click.
type Click struct {
	Scope   string
	Locator driver.Locator
	At      *driver.Point
	Time    time.Time
}

type element struct {
	scope string
	loc   driver.Locator
}

func (e element) Locator() driver.Locator { return e.loc }

type failure struct {
	op        string
	loc       driver.Locator
	err       error
	remaining int
}

// Target is a simulated remote target.
type Target struct {
	mu        sync.Mutex
	location  string
	scopes    map[string]map[driver.Locator]string
	hosts     map[driver.Locator][]string
	redirects map[string]string
	rules     []Rule
	onReload  []Rule
	failures  []*failure
	clicks    []Click
	calls     map[string]int
	navs      []string
	closed    bool
	poll      time.Duration
	timers    []*time.Timer
}

// Option configures a Target.
type Option func(*Target)

// WithPollInterval sets how often blocking waits re-check state.
func WithPollInterval(d time.Duration) Option {
	return func(t *Target) {
		if d > 0 {
			t.poll = d
		}
	}
}

// WithLocation sets the initial location.
func WithLocation(url string) Option {
	return func(t *Target) { t.location = url }
}

// New creates an empty target.
func New(opts ...Option) *Target {
	t := &Target{
		scopes:    map[string]map[driver.Locator]string{pageScope: {}},
		hosts:     make(map[driver.Locator][]string),
		redirects: make(map[string]string),
		calls:     make(map[string]int),
		poll:      5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Show makes page elements visible.
func (t *Target) Show(locs ...driver.Locator) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, loc := range locs {
		t.showLocked(Page(loc))
	}
	return t
}

// Hide removes page elements.
func (t *Target) Hide(locs ...driver.Locator) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, loc := range locs {
		t.hideLocked(Page(loc))
	}
	return t
}

// SetText sets the text of an element, showing it if needed.
func (t *Target) SetText(ref Ref, text string) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	if scope, ok := t.scopes[ref.Scope]; ok {
		scope[ref.Locator] = text
	}
	return t
}

// AddFrame nests a new named context under host and shows locs inside it.
func (t *Target) AddFrame(host driver.Locator, name string, locs ...driver.Locator) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.scopes[name]; !ok {
		t.hosts[host] = append(t.hosts[host], name)
		t.scopes[name] = make(map[driver.Locator]string)
	}
	for _, loc := range locs {
		t.showLocked(In(name, loc))
	}
	return t
}

// RemoveFrame detaches a nested context. Handles to it go stale.
func (t *Target) RemoveFrame(name string) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.scopes, name)
	for host, names := range t.hosts {
		kept := names[:0]
		for _, n := range names {
			if n != name {
				kept = append(kept, n)
			}
		}
		t.hosts[host] = kept
	}
	return t
}

// Redirect makes navigation to from land on to instead.
func (t *Target) Redirect(from, to string) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.redirects[from] = to
	return t
}

// OnClick registers a click rule.
func (t *Target) OnClick(r Rule) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append(t.rules, r)
	return t
}

// OnReload registers effects applied on every reload. Scope, Locator and Nth
// are ignored.
func (t *Target) OnReload(r Rule) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReload = append(t.onReload, r)
	return t
}

// FailNext makes the next n calls of op fail with err. An empty loc matches
// any locator.
func (t *Target) FailNext(op string, loc driver.Locator, err error, n int) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = append(t.failures, &failure{op: op, loc: loc, err: err, remaining: n})
	return t
}

// Visible reports whether ref is currently shown.
func (t *Target) Visible(ref Ref) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.lookupLocked(ref)
	return ok
}

// Clicks returns every recorded click in order.
func (t *Target) Clicks() []Click {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Click, len(t.clicks))
	copy(out, t.clicks)
	return out
}

// ClickCount counts clicks on loc in any scope.
func (t *Target) ClickCount(loc driver.Locator) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.clicks {
		if c.Locator == loc {
			n++
		}
	}
	return n
}

// Calls counts calls of op, including failed ones.
func (t *Target) Calls(op string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[op]
}

// Navigations returns the URLs passed to Navigate.
func (t *Target) Navigations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.navs))
	copy(out, t.navs)
	return out
}

// Closed reports whether Close was called.
func (t *Target) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Target) showLocked(ref Ref) {
	scope, ok := t.scopes[ref.Scope]
	if !ok {
		return
	}
	if _, exists := scope[ref.Locator]; !exists {
		scope[ref.Locator] = ""
	}
}

func (t *Target) hideLocked(ref Ref) {
	if scope, ok := t.scopes[ref.Scope]; ok {
		delete(scope, ref.Locator)
	}
}

func (t *Target) lookupLocked(ref Ref) (string, bool) {
	scope, ok := t.scopes[ref.Scope]
	if !ok {
		return "", false
	}
	text, ok := scope[ref.Locator]
	return text, ok
}

// beginLocked counts the call and reports an injected or stale failure.
func (t *Target) beginLocked(op, scope string, loc driver.Locator) error {
	t.calls[op]++
	if t.closed {
		return driver.NewError(driver.KindStaleContext, op, loc, nil)
	}
	if _, ok := t.scopes[scope]; !ok {
		return driver.NewError(driver.KindStaleContext, op, loc, nil)
	}
	for _, f := range t.failures {
		if f.remaining <= 0 || f.op != op {
			continue
		}
		if f.loc != "" && f.loc != loc {
			continue
		}
		f.remaining--
		return driver.Classify(nil, op, loc, f.err)
	}
	return nil
}

// pollUntil re-checks cond until it holds, timeout elapses or ctx is done.
func (t *Target) pollUntil(ctx context.Context, timeout time.Duration, cond func() (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		t.mu.Lock()
		ok, err := cond()
		t.mu.Unlock()
		if ok || err != nil {
			return ok, err
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		wait := t.poll
		if left := time.Until(deadline); left < wait {
			wait = left
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

func (t *Target) probe(ctx context.Context, scope string, loc driver.Locator) (driver.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.beginLocked(driver.OpProbe, scope, loc); err != nil {
		return nil, false, err
	}
	if _, ok := t.lookupLocked(Ref{Scope: scope, Locator: loc}); !ok {
		return nil, false, nil
	}
	return element{scope: scope, loc: loc}, true, nil
}

func (t *Target) wait(ctx context.Context, scope string, loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	t.mu.Lock()
	err := t.beginLocked(driver.OpWait, scope, loc)
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ok, err := t.pollUntil(ctx, timeout, func() (bool, error) {
		if _, live := t.scopes[scope]; !live || t.closed {
			return false, driver.NewError(driver.KindStaleContext, driver.OpWait, loc, nil)
		}
		_, found := t.lookupLocked(Ref{Scope: scope, Locator: loc})
		return found, nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, driver.NewError(driver.KindElementNotFound, driver.OpWait, loc, nil)
	}
	return element{scope: scope, loc: loc}, nil
}

func (t *Target) click(ctx context.Context, scope string, target driver.Target, at *driver.Point, timeout time.Duration) error {
	loc := target.Describe()
	if el, ok := target.Element.(element); ok {
		scope = el.scope
	}

	t.mu.Lock()
	err := t.beginLocked(driver.OpClick, scope, loc)
	t.mu.Unlock()
	if err != nil {
		return err
	}

	ok, err := t.pollUntil(ctx, timeout, func() (bool, error) {
		if _, live := t.scopes[scope]; !live || t.closed {
			return false, driver.NewError(driver.KindStaleContext, driver.OpClick, loc, nil)
		}
		_, found := t.lookupLocked(Ref{Scope: scope, Locator: loc})
		return found, nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return driver.NewError(driver.KindActionTimeout, driver.OpClick, loc, nil)
	}

	t.mu.Lock()
	t.clicks = append(t.clicks, Click{Scope: scope, Locator: loc, At: copyPoint(at), Time: time.Now()})
	n := 0
	for _, c := range t.clicks {
		if c.Scope == scope && c.Locator == loc {
			n++
		}
	}
	var fired []Rule
	for _, r := range t.rules {
		if r.Scope == scope && r.Locator == loc && (r.Nth == 0 || r.Nth == n) {
			fired = append(fired, r)
		}
	}
	t.mu.Unlock()

	for _, r := range fired {
		t.fire(r)
	}
	return nil
}

func (t *Target) readText(ctx context.Context, scope string, el driver.Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var loc driver.Locator
	if el != nil {
		loc = el.Locator()
		if e, ok := el.(element); ok {
			scope = e.scope
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.beginLocked(driver.OpText, scope, loc); err != nil {
		return "", err
	}
	text, ok := t.lookupLocked(Ref{Scope: scope, Locator: loc})
	if !ok {
		return "", driver.NewError(driver.KindStaleContext, driver.OpText, loc, nil)
	}
	return text, nil
}

func (t *Target) fire(r Rule) {
	apply := func() {
		t.mu.Lock()
		for _, ref := range r.Hide {
			t.hideLocked(ref)
		}
		for _, ref := range r.Show {
			t.showLocked(ref)
		}
		if r.Location != "" {
			t.location = r.Location
		}
		t.mu.Unlock()
		if r.Do != nil {
			r.Do(t)
		}
	}
	if r.Delay <= 0 {
		apply()
		return
	}
	timer := time.AfterFunc(r.Delay, apply)
	t.mu.Lock()
	t.timers = append(t.timers, timer)
	t.mu.Unlock()
}

func copyPoint(p *driver.Point) *driver.Point {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Navigate implements driver.Driver.
func (t *Target) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.beginLocked(driver.OpNavigate, pageScope, driver.Locator(url)); err != nil {
		return err
	}
	t.navs = append(t.navs, url)
	if to, ok := t.redirects[url]; ok {
		url = to
	}
	t.location = url
	return nil
}

// WaitForElement implements driver.Driver.
func (t *Target) WaitForElement(ctx context.Context, loc driver.Locator, timeout time.Duration, visible bool) (driver.Element, error) {
	return t.wait(ctx, pageScope, loc, timeout)
}

// Click implements driver.Driver.
func (t *Target) Click(ctx context.Context, target driver.Target, at *driver.Point, timeout time.Duration) error {
	return t.click(ctx, pageScope, target, at, timeout)
}

// Probe implements driver.Driver.
func (t *Target) Probe(ctx context.Context, loc driver.Locator) (driver.Element, bool, error) {
	return t.probe(ctx, pageScope, loc)
}

// NestedContexts implements driver.Driver. The frames are snapshotted when
// the call is made; frames removed afterwards yield stale handles.
func (t *Target) NestedContexts(ctx context.Context, host driver.Element) (iter.Seq[driver.NestedContext], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var hostLoc driver.Locator
	scope := pageScope
	if host != nil {
		hostLoc = host.Locator()
		if e, ok := host.(element); ok {
			scope = e.scope
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.beginLocked(driver.OpNested, scope, hostLoc); err != nil {
		return nil, err
	}
	if _, ok := t.lookupLocked(Ref{Scope: scope, Locator: hostLoc}); !ok {
		return nil, driver.NewError(driver.KindStaleContext, driver.OpNested, hostLoc, nil)
	}
	names := append([]string(nil), t.hosts[hostLoc]...)

	return func(yield func(driver.NestedContext) bool) {
		for _, name := range names {
			if !yield(&Frame{t: t, name: name}) {
				return
			}
		}
	}, nil
}

// ReadText implements driver.Driver.
func (t *Target) ReadText(ctx context.Context, el driver.Element) (string, error) {
	return t.readText(ctx, pageScope, el)
}

// Reload implements driver.Driver.
func (t *Target) Reload(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	if err := t.beginLocked(driver.OpReload, pageScope, ""); err != nil {
		t.mu.Unlock()
		return err
	}
	rules := append([]Rule(nil), t.onReload...)
	t.mu.Unlock()

	for _, r := range rules {
		t.fire(r)
	}
	return nil
}

// CurrentLocation implements driver.Driver.
func (t *Target) CurrentLocation(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.beginLocked(driver.OpLocation, pageScope, ""); err != nil {
		return "", err
	}
	return t.location, nil
}

// Close implements driver.Driver. Pending delayed rules are cancelled.
func (t *Target) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for _, timer := range t.timers {
		timer.Stop()
	}
	t.timers = nil
	return nil
}

// Frame is a nested context of a Target.
type Frame struct {
	t    *Target
	name string
}

// Name implements driver.NestedContext.
func (f *Frame) Name() string { return f.name }

// Probe implements driver.NestedContext.
func (f *Frame) Probe(ctx context.Context, loc driver.Locator) (driver.Element, bool, error) {
	return f.t.probe(ctx, f.name, loc)
}

// WaitForElement implements driver.NestedContext.
func (f *Frame) WaitForElement(ctx context.Context, loc driver.Locator, timeout time.Duration, visible bool) (driver.Element, error) {
	return f.t.wait(ctx, f.name, loc, timeout)
}

// Click implements driver.NestedContext.
func (f *Frame) Click(ctx context.Context, target driver.Target, at *driver.Point, timeout time.Duration) error {
	return f.t.click(ctx, f.name, target, at, timeout)
}

// ReadText implements driver.NestedContext.
func (f *Frame) ReadText(ctx context.Context, el driver.Element) (string, error) {
	return f.t.readText(ctx, f.name, el)
}

var (
	_ driver.Driver        = (*Target)(nil)
	_ driver.NestedContext = (*Frame)(nil)
)
