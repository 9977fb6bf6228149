package browser

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// elementTimeout bounds a single element operation. chromedp retries node
// queries and rod waits for interactability until the context ends, so a
// node that left the document surfaces as this timeout.
const elementTimeout = 5 * time.Second

// errElementTimeout marks an element operation that ran out of
// elementTimeout while the caller's context was still live
var errElementTimeout = fmt.Errorf("%w: element operation timed out", ErrStaleElement)

// textNodeType is the DOM nodeType of a text node
const textNodeType = 3

// frameSelector matches a frame or iframe by name or id, as frame
// switching does in WebDriver
func frameSelector(name string) string {
	q := fmt.Sprintf("%q", name)
	parts := make([]string, 0, 4)
	for _, tag := range []string{"frame", "iframe"} {
		parts = append(parts, tag+"[name="+q+"]", tag+"[id="+q+"]")
	}
	return strings.Join(parts, ", ")
}

// Matches reports whether text satisfies the selector's text filter. A
// selector without Text matches anything.
func (s Selector) Matches(text string) bool {
	if len(s.Text) == 0 {
		return true
	}
	for _, t := range s.Text {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// frameErr reports a failed lookup inside the named frame as the frame
// having gone away
func frameErr(frame string, err error) error {
	if frame == "" || err == nil {
		return err
	}
	if errors.Is(err, ErrStaleElement) {
		return fmt.Errorf("%w: %s: %w", ErrContextNotFound, frame, err)
	}
	return err
}

func writeScreenshot(path string, buf []byte) error {
	if len(buf) == 0 {
		return errors.New("empty screenshot")
	}
	return os.WriteFile(path, buf, 0644)
}
