package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto"
	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// chromedpDriver drives Chrome through chromedp. The current rendering
// context is the innermost entered frame element, whose content document
// roots every query.
type chromedpDriver struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	pageLoad    time.Duration

	mu     sync.Mutex
	frames []*cdp.Node
	names  []string
}

func newChromedpDriver(opts LaunchOptions) (*chromedpDriver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	d := &chromedpDriver{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		pageLoad:    opts.PageLoadTimeout,
	}

	// the first Run starts the browser
	if err := chromedp.Run(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return d, nil
}

// run executes actions on the browser tab, bounded by the caller's ctx
func (d *chromedpDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// runElement is run bounded by elementTimeout, with protocol errors
// mapped onto the package's element errors
func (d *chromedpDriver) runElement(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, elementTimeout)
	defer cancel()
	err := d.run(opCtx, actions...)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return errElementTimeout
	}
	return cdpError(err)
}

func (d *chromedpDriver) current() (*cdp.Node, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return nil, ""
	}
	return d.frames[len(d.frames)-1], strings.Join(d.names, "/")
}

func (d *chromedpDriver) resetFrames() {
	d.mu.Lock()
	d.frames, d.names = nil, nil
	d.mu.Unlock()
}

func (d *chromedpDriver) Navigate(ctx context.Context, url string) error {
	d.resetFrames()
	if d.pageLoad > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.pageLoad)
		defer cancel()
	}
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *chromedpDriver) Reload(ctx context.Context) error {
	d.resetFrames()
	if d.pageLoad > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.pageLoad)
		defer cancel()
	}
	return d.run(ctx, chromedp.Reload())
}

func (d *chromedpDriver) URL(ctx context.Context) (string, error) {
	var u string
	if err := d.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

// queryOpts roots a query at the current frame's content document
func queryOpts(root *cdp.Node, opts ...chromedp.QueryOption) []chromedp.QueryOption {
	if root != nil {
		opts = append(opts, chromedp.FromNode(root))
	}
	return opts
}

func (d *chromedpDriver) FindAll(ctx context.Context, sel Selector) ([]Element, error) {
	root, frame := d.current()

	var nodes []*cdp.Node
	err := d.runElement(ctx, chromedp.Nodes(sel.Query, &nodes,
		queryOpts(root, chromedp.ByQueryAll, chromedp.AtLeast(0))...))
	if err != nil {
		return nil, frameErr(frame, err)
	}

	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		el := &chromedpElement{d: d, node: n}
		if len(sel.Text) > 0 {
			text, err := el.matchText(ctx, sel.OwnText)
			if err != nil {
				// the node went away between the query and the read
				if errors.Is(err, ErrStaleElement) {
					continue
				}
				return nil, err
			}
			if !sel.Matches(text) {
				continue
			}
		}
		out = append(out, el)
	}
	return out, nil
}

func (d *chromedpDriver) EnterFrame(ctx context.Context, name string) error {
	root, frame := d.current()

	var nodes []*cdp.Node
	err := d.runElement(ctx, chromedp.Nodes(frameSelector(name), &nodes,
		queryOpts(root, chromedp.ByQuery, chromedp.AtLeast(0),
			chromedp.Populate(1, true, chromedp.PopulateWait(50*time.Millisecond)))...))
	if err != nil {
		return frameErr(frame, err)
	}
	if len(nodes) == 0 || nodes[0].ContentDocument == nil {
		return fmt.Errorf("%w: %s", ErrContextNotFound, name)
	}

	d.mu.Lock()
	d.frames = append(d.frames, nodes[0])
	d.names = append(d.names, name)
	d.mu.Unlock()
	return nil
}

func (d *chromedpDriver) ExitFrames(context.Context) error {
	d.resetFrames()
	return nil
}

func (d *chromedpDriver) HTML(ctx context.Context) (string, error) {
	root, frame := d.current()
	var html string
	if err := d.runElement(ctx, chromedp.OuterHTML("html", &html,
		queryOpts(root, chromedp.ByQuery)...)); err != nil {
		return "", frameErr(frame, err)
	}
	return html, nil
}

func (d *chromedpDriver) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	return writeScreenshot(path, buf)
}

func (d *chromedpDriver) allowDownloads(ctx context.Context, dir string) error {
	return d.run(ctx, cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
		WithDownloadPath(dir).
		WithEventsEnabled(true))
}

func (d *chromedpDriver) Close() error {
	err := chromedp.Cancel(d.ctx)
	d.cancelCtx()
	d.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

// chromedpElement is a node located by chromedpDriver
type chromedpElement struct {
	d    *chromedpDriver
	node *cdp.Node
}

func (e *chromedpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromedpElement) matchText(ctx context.Context, own bool) (string, error) {
	if !own {
		return e.Text(ctx)
	}
	var described *cdp.Node
	err := e.d.runElement(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		described, err = dom.DescribeNode().WithNodeID(e.node.NodeID).WithDepth(1).Do(ctx)
		return err
	}))
	if err != nil {
		return "", err
	}
	return ownText(described), nil
}

// ownText joins the values of n's direct text-node children
func ownText(n *cdp.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range n.Children {
		if c.NodeType == cdp.NodeTypeText {
			b.WriteString(c.NodeValue)
		}
	}
	return strings.TrimSpace(b.String())
}

func (e *chromedpElement) Click(ctx context.Context) error {
	return e.d.runElement(ctx, chromedp.MouseClickNode(e.node))
}

func (e *chromedpElement) ClickParent(ctx context.Context) error {
	if e.node.Parent == nil {
		return fmt.Errorf("%w: no parent element", ErrNotInteractable)
	}
	return e.d.runElement(ctx, chromedp.MouseClickNode(e.node.Parent))
}

func (e *chromedpElement) ScriptClick(ctx context.Context) error {
	return e.d.runElement(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		return chromedp.CallFunctionOn("function() { this.click(); }", nil,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			}).Do(ctx)
	}))
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.d.runElement(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *chromedpElement) Clear(ctx context.Context) error {
	return e.d.runElement(ctx, chromedp.Clear(e.ids(), chromedp.ByNodeID))
}

func (e *chromedpElement) Type(ctx context.Context, text string) error {
	return e.d.runElement(ctx, chromedp.KeyEventNode(e.node, text))
}

func (e *chromedpElement) Visible(ctx context.Context) (bool, error) {
	var model *dom.BoxModel
	err := e.d.runElement(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		model, err = dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	if errors.Is(err, ErrNotInteractable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return model != nil && model.Width > 0 && model.Height > 0, nil
}

func (e *chromedpElement) Enabled(context.Context) (bool, error) {
	_, disabled := e.node.Attribute("disabled")
	return !disabled, nil
}

// cdpError maps chromedp and DevTools protocol failures onto the
// package's element errors
func cdpError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, chromedp.ErrInvalidDimensions) {
		return fmt.Errorf("%w: %w", ErrNotInteractable, err)
	}
	var perr *cdproto.Error
	if !errors.As(err, &perr) {
		return err
	}
	msg := strings.ToLower(perr.Message)
	switch {
	case strings.Contains(msg, "could not find node"),
		strings.Contains(msg, "no node with given id"),
		strings.Contains(msg, "node is detached"),
		strings.Contains(msg, "cannot find context"):
		return fmt.Errorf("%w: %w", ErrStaleElement, err)
	case strings.Contains(msg, "could not compute"):
		return fmt.Errorf("%w: %w", ErrNotInteractable, err)
	}
	return err
}
