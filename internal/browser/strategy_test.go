package browser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/browser"
	"idoosync/internal/shared/testutil"
)

func TestFirstSuccess(t *testing.T) {
	ctx := context.Background()

	t.Run("stops at first success", func(t *testing.T) {
		var calls []string
		step := func(name string, err error) browser.Strategy {
			return browser.Strategy{Name: name, Do: func(context.Context) error {
				calls = append(calls, name)
				return err
			}}
		}

		name, err := browser.FirstSuccess(ctx,
			step("a", errors.New("nope")),
			step("b", nil),
			step("c", nil),
		)
		require.NoError(t, err)
		assert.Equal(t, "b", name)
		assert.Equal(t, []string{"a", "b"}, calls)
	})

	t.Run("exhausted keeps every failure", func(t *testing.T) {
		errA := errors.New("intercepted")
		errB := errors.New("zero size")

		_, err := browser.FirstSuccess(ctx,
			browser.Strategy{Name: "direct", Do: func(context.Context) error { return errA }},
			browser.Strategy{Name: "script", Do: func(context.Context) error { return errB }},
		)
		assert.ErrorIs(t, err, browser.ErrStrategiesExhausted)
		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
		assert.Contains(t, err.Error(), "direct: intercepted")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := browser.FirstSuccess(cctx, browser.Strategy{Name: "a", Do: func(context.Context) error { return nil }})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClickStrategies(t *testing.T) {
	ctx := context.Background()
	driver := testutil.NewFakeDriver()
	sel := browser.WithOwnText("div.cat-secnav-areaname > a > span", "CPO")

	el := &testutil.FakeElement{
		Name:     "cpo",
		ClickErr: browser.ErrNotInteractable,
	}
	driver.Put(sel, el)

	name, err := browser.FirstSuccess(ctx, browser.ClickStrategies(el, browser.EscalatingClick...)...)
	require.NoError(t, err)
	assert.Equal(t, "parent_click", name)
	assert.Equal(t, []string{"click:cpo", "parent_click:cpo"}, driver.Actions())
}

func TestSelectorString(t *testing.T) {
	tests := []struct {
		sel  browser.Selector
		want string
	}{
		{browser.CSS("a[name=login]"), "a[name=login]"},
		{browser.WithText("button", "Generate", "Run"), "button[text~Generate|Run]"},
		{browser.WithOwnText("span", "CPO"), "span[own-text~CPO]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.sel.String())
	}
	assert.Equal(t, "clickable", browser.Clickable.String())
	assert.Equal(t, "script_click", browser.ScriptedClick.String())
}
