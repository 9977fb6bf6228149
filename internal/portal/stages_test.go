package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/browser"
	"idoosync/internal/shared/testutil"
)

func TestStageSequencerPolicy(t *testing.T) {
	h := newHarness(t)
	seq := NewStageSequencer(h.nav, h.cfg, h.logger)

	policy := seq.Policy()
	require.Len(t, policy, 3)

	want := []struct {
		stage    string
		from, to State
		recovery string
	}{
		{"context_descent", Disconnected, ContextReady, "refresh"},
		{"menu_activation", ContextReady, MenuActive, "reload_current"},
		{"catalog_render", MenuActive, CatalogReady, "reclick_menu"},
	}
	for i, w := range want {
		assert.Equal(t, w.stage, policy[i].Stage)
		assert.Equal(t, w.from, policy[i].From)
		assert.Equal(t, w.to, policy[i].To)
		assert.Equal(t, w.recovery, policy[i].Recovery)
		assert.Equal(t, 3, policy[i].Attempts)
	}
}

func TestStageSequencerHappyPath(t *testing.T) {
	h := newHarness(t)
	h.driver.Put(selCatalogView, testutil.NewElement("catalog"))

	seq := NewStageSequencer(h.nav, h.cfg, h.logger)
	state, err := seq.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, CatalogReady, state)
	assert.Equal(t, CatalogReady, seq.State())
	assert.Equal(t, "isaTop/form_input", h.driver.Frame())
	assert.Equal(t, []string{"click:catalog"}, h.driver.Actions())
	assert.Contains(t, h.sleeper.Sleeps, 10*time.Second)
	assert.Zero(t, h.driver.Reloads())
}

func TestStageSequencerRecovers(t *testing.T) {
	t.Run("context descent refreshes between attempts", func(t *testing.T) {
		h := newHarness(t)
		h.driver.Put(selCatalogView, testutil.NewElement("catalog"))
		h.driver.FailFrame(FrameHeader, 2)

		var retried []string
		seq := NewStageSequencer(h.nav, h.cfg, h.logger, WithRetryHook(func(_ context.Context, stage string) {
			retried = append(retried, stage)
		}))
		state, err := seq.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, CatalogReady, state)
		assert.Equal(t, 2, h.driver.Reloads())
		assert.Equal(t, []string{"context_descent", "context_descent"}, retried)
	})

	t.Run("menu activation reloads the current url", func(t *testing.T) {
		h := newHarness(t)
		h.driver.CurrentURL = "https://portal.example/frames"
		catalog := testutil.NewElement("catalog")
		h.driver.Put(selCatalogView, catalog)
		h.driver.AppearAfter(selCatalogView, 1)

		seq := NewStageSequencer(h.nav, h.cfg, h.logger)
		state, err := seq.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, CatalogReady, state)
		assert.Equal(t, []string{"https://portal.example/frames"}, h.driver.Navigations())
	})

	t.Run("catalog render re-clicks the menu", func(t *testing.T) {
		h := newHarness(t)
		h.driver.Put(selCatalogView, testutil.NewElement("catalog"))
		h.driver.FailFrame(FrameForm, 1)

		seq := NewStageSequencer(h.nav, h.cfg, h.logger)
		state, err := seq.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, CatalogReady, state)
		assert.Equal(t, []string{"click:catalog", "click:catalog"}, h.driver.Actions())
		assert.Equal(t, "isaTop/form_input", h.driver.Frame())
	})
}

func TestStageSequencerFails(t *testing.T) {
	t.Run("missing frame exhausts context descent", func(t *testing.T) {
		h := newHarness(t)
		h.driver.MissingFrame(FrameHeader)

		seq := NewStageSequencer(h.nav, h.cfg, h.logger)
		state, err := seq.Run(context.Background())

		assert.Equal(t, Failed, state)
		assert.ErrorIs(t, err, ErrStageFailed)
		assert.ErrorIs(t, err, browser.ErrContextNotFound)

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, "context_descent", stageErr.Stage)
		assert.Equal(t, 3, stageErr.Attempts)
		assert.Equal(t, 2, h.driver.Reloads())
		assert.Empty(t, h.driver.Actions())
	})

	t.Run("missing catalog control exhausts menu activation", func(t *testing.T) {
		h := newHarness(t)

		seq := NewStageSequencer(h.nav, h.cfg, h.logger)
		state, err := seq.Run(context.Background())

		assert.Equal(t, Failed, state)
		assert.ErrorIs(t, err, browser.ErrNotFound)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, "menu_activation", stageErr.Stage)
		assert.Len(t, h.driver.Navigations(), 2)
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "catalog_ready", CatalogReady.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "state(9)", State(9).String())
}
