// Package browser wraps a browser-automation session behind a small
// driver interface and the Navigator built on it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means no element matched within the timeout
	ErrNotFound = errors.New("element not found")
	// ErrContextNotFound means a named frame did not exist at call time
	ErrContextNotFound = errors.New("rendering context not found")
	// ErrStaleElement means a previously located element left the document
	ErrStaleElement = errors.New("stale element")
	// ErrNotInteractable means the element has no clickable box
	ErrNotInteractable = errors.New("element not interactable")
	// ErrStrategiesExhausted means every interaction strategy failed
	ErrStrategiesExhausted = errors.New("all strategies failed")
)

// Condition is the state a located element must reach
type Condition int

const (
	// Present accepts any element attached to the document
	Present Condition = iota
	// Visible requires a rendered, non-hidden box
	Visible
	// Clickable requires Visible and not disabled
	Clickable
)

func (c Condition) String() string {
	switch c {
	case Visible:
		return "visible"
	case Clickable:
		return "clickable"
	default:
		return "present"
	}
}

// Selector addresses elements in the current rendering context: a CSS
// query, optionally narrowed to elements whose text contains any of Text.
type Selector struct {
	Query string
	Text  []string
	// OwnText matches Text against the element's own text nodes only,
	// ignoring descendants.
	OwnText bool
}

// CSS builds a plain CSS selector
func CSS(query string) Selector {
	return Selector{Query: query}
}

// WithText narrows a CSS query to elements whose text contains any of texts
func WithText(query string, texts ...string) Selector {
	return Selector{Query: query, Text: texts}
}

// WithOwnText is WithText restricted to the element's own text nodes
func WithOwnText(query string, texts ...string) Selector {
	return Selector{Query: query, Text: texts, OwnText: true}
}

func (s Selector) String() string {
	if len(s.Text) == 0 {
		return s.Query
	}
	mode := "text"
	if s.OwnText {
		mode = "own-text"
	}
	return fmt.Sprintf("%s[%s~%s]", s.Query, mode, strings.Join(s.Text, "|"))
}

// Element is a located node
type Element interface {
	// Click performs a native mouse click on the element's centre
	Click(ctx context.Context) error
	// ClickParent performs a native mouse click on the parent element
	ClickParent(ctx context.Context) error
	// ScriptClick triggers the element's click handler from script
	ScriptClick(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
}

// Driver is one browser session with a current rendering context
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	URL(ctx context.Context) (string, error)
	// FindAll returns the elements matching sel in the current context
	// without waiting; an empty result is not an error.
	FindAll(ctx context.Context, sel Selector) ([]Element, error)
	// EnterFrame descends into the named child frame of the current
	// context, failing with ErrContextNotFound when it does not exist.
	EnterFrame(ctx context.Context, name string) error
	// ExitFrames returns to the top-level document
	ExitFrames(ctx context.Context) error
	// HTML returns the markup of the current context's document
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	Close() error
}
