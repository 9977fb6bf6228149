package operations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/browser"
	"idoosync/internal/config"
	"idoosync/internal/portal"
	"idoosync/internal/shared/testutil"
	"idoosync/pkg/contracts/domain"
)

func newBrowserSteps(t *testing.T) (*BrowserSteps, *config.Paths, *testutil.FakeSleeper) {
	t.Helper()
	dir := t.TempDir()
	paths := &config.Paths{BaseDir: dir, DownloadDir: dir}
	sleeper := &testutil.FakeSleeper{}
	logger, _ := testutil.NewTestLogger(t)
	return NewBrowserSteps(config.Default(), paths, true, sleeper, nil, logger), paths, sleeper
}

func TestBrowserStepsAgainstEmptyPortal(t *testing.T) {
	steps, _, sleeper := newBrowserSteps(t)
	driver := testutil.NewFakeDriver()
	nav := browser.NewNavigator(driver, sleeper, nil)
	ctx := context.Background()

	err := steps.Login(ctx, nav, domain.Account{PortalUserID: "user", PortalPassword: "pw"})
	assert.ErrorIs(t, err, portal.ErrLoginFailed)
	assert.Equal(t, []string{config.PortalEntryURL}, driver.Navigations())

	err = steps.Prepare(ctx, nav)
	assert.ErrorIs(t, err, portal.ErrStageFailed)

	passes, err := steps.Extract(ctx, nav)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, portal.SectionStandard, passes[0].Section)
	assert.Empty(t, passes[0].Entries)
}

func TestBrowserStepsTransformMissingReport(t *testing.T) {
	steps, paths, _ := newBrowserSteps(t)

	_, err := steps.Transform(context.Background(),
		filepath.Join(paths.DownloadDir, config.DownloadTargetName),
		domain.NewSkuSet("111"), nil, "IDOO-user-10-16-2026.xlsx")
	assert.Error(t, err)
}

func TestOrchestratorWithBrowserSteps(t *testing.T) {
	steps, paths, sleeper := newBrowserSteps(t)
	driver := testutil.NewFakeDriver()
	logger, logs := testutil.NewTestLogger(t)

	o := NewOrchestrator(paths, steps, func(context.Context) (browser.Driver, error) {
		return driver, nil
	}, logger, WithSleeper(sleeper))

	summary := o.Run(context.Background(), accounts("user"))

	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, StepLogin, summary.Outcomes[0].FailedStep)
	assert.FileExists(t, filepath.Join(paths.BaseDir, "error_screenshot_user.png"))
	assert.True(t, driver.Closed())
	assert.True(t, logs.ContainsMessage("Login form not found"))
}
