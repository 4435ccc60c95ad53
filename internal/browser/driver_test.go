package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fahim22542/Testing-Projects/internal/filtertest"
	"github.com/fahim22542/Testing-Projects/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFirstSuccess_StopsAtFirstWorkingAttempt(t *testing.T) {
	var calls []string
	step := func(name string, err error) attempt {
		return attempt{name, func(context.Context) error {
			calls = append(calls, name)
			return err
		}}
	}

	err := firstSuccess(context.Background(), zap.NewNop(),
		step("escape", errors.New("still open")),
		step("toggle", nil),
		step("body", nil),
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"escape", "toggle"}, calls)
}

func TestFirstSuccess_JoinsErrorsWhenAllFail(t *testing.T) {
	errBlocked := errors.New("blocked")

	err := firstSuccess(context.Background(), zap.NewNop(),
		attempt{"click", func(context.Context) error { return errBlocked }},
		attempt{"js_click", func(context.Context) error { return errNotFound }},
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, errBlocked)
	assert.ErrorIs(t, err, errNotFound)
	assert.Contains(t, err.Error(), "js_click")
}

func TestFirstSuccess_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := firstSuccess(ctx, zap.NewNop(), attempt{"click", func(context.Context) error {
		ran = true
		return nil
	}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestScripts_EscapeArguments(t *testing.T) {
	js := markTextboxJS(`Filter by "Region"`, markControl)
	assert.Contains(t, js, `fcTextbox("Filter by \"Region\"")`)

	js = markOptionJS("</script>", markOption)
	assert.Contains(t, js, `"\u003c/script\u003e"`)

	assert.Equal(t, `[data-filtercheck="page"]`, markedSelector(markPage))
}

func TestScripts_LoadingSelectors(t *testing.T) {
	js := loadingVisibleJS()
	for _, s := range loadingSelectors {
		assert.Contains(t, js, `"`+s+`"`)
	}
}

func TestScripts_ReadTableFallsBackToAllRows(t *testing.T) {
	js := tableRowsJS()
	assert.Contains(t, js, "tbody tr")
	assert.Contains(t, js, ".slice(1)")
}

func TestScripts_NameLookupIsCaseInsensitivePartialPreferringExact(t *testing.T) {
	for _, js := range []string{markTextboxJS("Email", markInput), markButtonJS("Next", markButton), hasNextJS()} {
		assert.Contains(t, js, "n === want")
		assert.Contains(t, js, "n.includes(want)")
		assert.Contains(t, js, "toLowerCase()")
	}
	assert.Less(t, strings.Index(helpers, "n === want"), strings.Index(helpers, "n.includes(want)"),
		"an exact name must be tried before a partial one")
}

func TestPoll_RetriesUntilDone(t *testing.T) {
	d := &Driver{opts: Options{SelectorTimeout: 2 * time.Second}}

	calls := 0
	err := d.poll(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPoll_TimesOutAsNotFound(t *testing.T) {
	d := &Driver{opts: Options{SelectorTimeout: 300 * time.Millisecond}}

	start := time.Now()
	err := d.poll(context.Background(), func(context.Context) (bool, error) { return false, nil })

	assert.ErrorIs(t, err, errNotFound)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestPoll_StopsOnCheckErrorAndCancellation(t *testing.T) {
	d := &Driver{opts: Options{SelectorTimeout: time.Minute}}
	errEval := errors.New("evaluate failed")

	calls := 0
	err := d.poll(context.Background(), func(context.Context) (bool, error) {
		calls++
		return false, errEval
	})
	assert.ErrorIs(t, err, errEval)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	err = d.poll(ctx, func(context.Context) (bool, error) {
		cancel()
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func fixtureDriver(t *testing.T, page string) *Driver {
	t.Helper()
	if os.Getenv("FILTERCHECK_BROWSER_TESTS") != "1" {
		t.Skip("set FILTERCHECK_BROWSER_TESTS=1 to run browser tests")
	}

	srv := httptest.NewServer(http.FileServer(http.Dir("testdata")))
	t.Cleanup(srv.Close)

	driver, err := New(Options{
		BaseURL:         srv.URL + page,
		Headless:        true,
		Labels:          filtertest.DefaultLabels,
		SettleDelay:     0,
		SelectorTimeout: 3 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(driver.Close)
	return driver
}

func runFixtureCheck(t *testing.T, ctx context.Context, driver *Driver) {
	t.Helper()
	runner, err := filtertest.NewRunner(driver, filtertest.Options{
		Labels:        filtertest.DefaultLabels,
		Strategy:      filtertest.StrategyExhaustive,
		SettleTimeout: time.Second,
	}, zap.NewNop(), metrics.NewRunMetrics("browser-test"))
	require.NoError(t, err)

	report, err := runner.Run(ctx)
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	for _, result := range report.Results {
		assert.Equal(t, 4, result.DataCount)
		assert.True(t, result.Passed())
	}
}

// TestDriver_AgainstFixturePage runs a full check against a static page that
// mimics the retailer filter panel. Its login fields are labelled "Email *"
// and "Password *" and its section button carries an icon. It needs a local
// Chrome.
func TestDriver_AgainstFixturePage(t *testing.T) {
	driver := fixtureDriver(t, "/retailers.html")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	require.NoError(t, driver.Login(ctx, "qa@example.com", "secret"))
	require.NoError(t, driver.OpenSection(ctx, "Retailers"))

	assert.Equal(t, []string{"Dhaka"}, driver.ListOptions(ctx, filtertest.DefaultLabels.For(filtertest.Region)))

	runFixtureCheck(t, ctx, driver)
}

// TestDriver_WaitsForLateOptions serves option lists 1.5s after a control
// opens.
func TestDriver_WaitsForLateOptions(t *testing.T) {
	driver := fixtureDriver(t, "/retailers.html?optionDelay=1500")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	require.NoError(t, driver.Login(ctx, "qa@example.com", "secret"))
	require.NoError(t, driver.OpenSection(ctx, "retailers"))

	region := filtertest.DefaultLabels.For(filtertest.Region)
	assert.Equal(t, []string{"Dhaka"}, driver.ListOptions(ctx, region))
	assert.True(t, driver.SelectOption(ctx, region, "Dhaka"))
	assert.Equal(t, []string{"Dhaka North"}, driver.ListOptions(ctx, filtertest.DefaultLabels.For(filtertest.Area)))

	runFixtureCheck(t, ctx, driver)
}
