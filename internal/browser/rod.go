package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// rodDriver drives Chrome through go-rod. Entered frames are rod pages
// scoped to the frame element.
type rodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	pageLoad time.Duration

	mu     sync.Mutex
	frames []*rod.Page
	names  []string
}

func newRodDriver(opts LaunchOptions) (*rodDriver, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Leakless(false).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", strconv.Itoa(opts.Width)+","+strconv.Itoa(opts.Height))
	if opts.ExecPath != "" {
		l = l.Bin(opts.ExecPath)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &rodDriver{
		launcher: l,
		browser:  b,
		page:     page,
		pageLoad: opts.PageLoadTimeout,
	}, nil
}

func (d *rodDriver) current() (*rod.Page, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return d.page, ""
	}
	return d.frames[len(d.frames)-1], strings.Join(d.names, "/")
}

func (d *rodDriver) resetFrames() {
	d.mu.Lock()
	d.frames, d.names = nil, nil
	d.mu.Unlock()
}

// elementOp runs fn bounded by elementTimeout, with rod failures mapped
// onto the package's element errors
func elementOp(ctx context.Context, fn func(ctx context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, elementTimeout)
	defer cancel()
	err := fn(opCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errElementTimeout
	}
	return rodError(err)
}

func (d *rodDriver) Navigate(ctx context.Context, url string) error {
	d.resetFrames()
	if d.pageLoad > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.pageLoad)
		defer cancel()
	}
	p := d.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (d *rodDriver) Reload(ctx context.Context) error {
	d.resetFrames()
	if d.pageLoad > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.pageLoad)
		defer cancel()
	}
	p := d.page.Context(ctx)
	if err := p.Reload(); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (d *rodDriver) URL(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (d *rodDriver) FindAll(ctx context.Context, sel Selector) ([]Element, error) {
	cur, frame := d.current()

	var els rod.Elements
	err := elementOp(ctx, func(ctx context.Context) error {
		var err error
		els, err = cur.Context(ctx).Elements(sel.Query)
		return err
	})
	if err != nil {
		return nil, frameErr(frame, err)
	}

	out := make([]Element, 0, len(els))
	for _, el := range els {
		re := &rodElement{el: el}
		if len(sel.Text) > 0 {
			text, err := re.matchText(ctx, sel.OwnText)
			if err != nil {
				if errors.Is(err, ErrStaleElement) {
					continue
				}
				return nil, err
			}
			if !sel.Matches(text) {
				continue
			}
		}
		out = append(out, re)
	}
	return out, nil
}

func (d *rodDriver) EnterFrame(ctx context.Context, name string) error {
	cur, frame := d.current()

	var fp *rod.Page
	err := elementOp(ctx, func(ctx context.Context) error {
		els, err := cur.Context(ctx).Elements(frameSelector(name))
		if err != nil || els.Empty() {
			return err
		}
		fp, err = els.First().Frame()
		return err
	})
	if err != nil {
		return frameErr(frame, err)
	}
	if fp == nil {
		return fmt.Errorf("%w: %s", ErrContextNotFound, name)
	}

	d.mu.Lock()
	d.frames = append(d.frames, fp)
	d.names = append(d.names, name)
	d.mu.Unlock()
	return nil
}

func (d *rodDriver) ExitFrames(context.Context) error {
	d.resetFrames()
	return nil
}

func (d *rodDriver) HTML(ctx context.Context) (string, error) {
	cur, frame := d.current()
	var html string
	err := elementOp(ctx, func(ctx context.Context) error {
		var err error
		html, err = cur.Context(ctx).HTML()
		return err
	})
	if err != nil {
		return "", frameErr(frame, err)
	}
	return html, nil
}

func (d *rodDriver) Screenshot(ctx context.Context, path string) error {
	buf, err := d.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return err
	}
	return writeScreenshot(path, buf)
}

func (d *rodDriver) allowDownloads(ctx context.Context, dir string) error {
	return proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  dir,
		EventsEnabled: true,
	}.Call(d.browser.Context(ctx))
}

func (d *rodDriver) Close() error {
	err := d.browser.Close()
	d.launcher.Kill()
	if err != nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

// rodElement is an element located by rodDriver
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) matchText(ctx context.Context, own bool) (string, error) {
	if !own {
		return e.Text(ctx)
	}
	var node *proto.DOMNode
	err := elementOp(ctx, func(ctx context.Context) error {
		var err error
		node, err = e.el.Context(ctx).Describe(1, false)
		return err
	})
	if err != nil {
		return "", err
	}
	return ownDOMText(node), nil
}

// ownDOMText joins the values of node's direct text-node children
func ownDOMText(node *proto.DOMNode) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range node.Children {
		if c.NodeType == textNodeType {
			b.WriteString(c.NodeValue)
		}
	}
	return strings.TrimSpace(b.String())
}

func (e *rodElement) Click(ctx context.Context) error {
	err := elementOp(ctx, func(ctx context.Context) error {
		return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
	})
	// rod waits for the element to become interactable
	if errors.Is(err, errElementTimeout) {
		return fmt.Errorf("%w: %w", ErrNotInteractable, err)
	}
	return err
}

func (e *rodElement) ClickParent(ctx context.Context) error {
	return elementOp(ctx, func(ctx context.Context) error {
		parent, err := e.el.Context(ctx).Parent()
		if err != nil {
			return err
		}
		return parent.Click(proto.InputMouseButtonLeft, 1)
	})
}

func (e *rodElement) ScriptClick(ctx context.Context) error {
	return elementOp(ctx, func(ctx context.Context) error {
		_, err := e.el.Context(ctx).Eval(`() => this.click()`)
		return err
	})
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	var text string
	err := elementOp(ctx, func(ctx context.Context) error {
		var err error
		text, err = e.el.Context(ctx).Text()
		return err
	})
	return strings.TrimSpace(text), err
}

func (e *rodElement) Clear(ctx context.Context) error {
	return elementOp(ctx, func(ctx context.Context) error {
		el := e.el.Context(ctx)
		if err := el.SelectAllText(); err != nil {
			return err
		}
		return el.Input("")
	})
}

func (e *rodElement) Type(ctx context.Context, text string) error {
	return elementOp(ctx, func(ctx context.Context) error {
		return e.el.Context(ctx).Input(text)
	})
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	var visible bool
	err := elementOp(ctx, func(ctx context.Context) error {
		var err error
		visible, err = e.el.Context(ctx).Visible()
		return err
	})
	return visible, err
}

func (e *rodElement) Enabled(ctx context.Context) (bool, error) {
	var disabled bool
	err := elementOp(ctx, func(ctx context.Context) error {
		var err error
		disabled, err = e.el.Context(ctx).Disabled()
		return err
	})
	return !disabled, err
}

// staleMessages are DevTools errors raised for nodes or objects that left
// the document
var staleMessages = []string{
	cdp.ErrObjNotFound.Message,
	cdp.ErrCtxNotFound.Message,
	cdp.ErrCtxDestroyed.Message,
	"Could not find node with given id",
	"No node with given id found",
}

// rodError maps go-rod failures onto the package's element errors
func rodError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, &rod.ObjectNotFoundError{}) {
		return fmt.Errorf("%w: %w", ErrStaleElement, err)
	}
	var notInteractable *rod.NotInteractableError
	if errors.As(err, &notInteractable) {
		return fmt.Errorf("%w: %w", ErrNotInteractable, err)
	}
	var cerr *cdp.Error
	if errors.As(err, &cerr) {
		for _, m := range staleMessages {
			if cerr.Message == m {
				return fmt.Errorf("%w: %w", ErrStaleElement, err)
			}
		}
	}
	return err
}
