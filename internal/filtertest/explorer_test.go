package filtertest

import (
	"context"
	"testing"

	"github.com/fahim22542/Testing-Projects/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExplorer(d Driver, limits Limits) *Explorer {
	return NewExplorer(d, ExplorerOptions{Labels: DefaultLabels, Limits: limits},
		zap.NewNop(), metrics.NewRunMetrics("explorer-test"))
}

// singlePathTree offers 1 region, 1 area, 1 distributor, 2 territories and
// one point under each territory
func singlePathTree() map[string][]string {
	tree := make(map[string][]string)
	tree[key()] = []string{"Dhaka"}
	tree[key("Dhaka")] = []string{"Dhaka North"}
	tree[key("Dhaka", "Dhaka North")] = []string{"DH-01 Gulshan"}
	tree[key("Dhaka", "Dhaka North", "DH-01 Gulshan")] = []string{"Banani", "Baridhara"}
	tree[key("Dhaka", "Dhaka North", "DH-01 Gulshan", "Banani")] = []string{"Banani Point"}
	tree[key("Dhaka", "Dhaka North", "DH-01 Gulshan", "Baridhara")] = []string{"Baridhara Point"}
	return tree
}

func TestExplore_EmitsCompleteChains(t *testing.T) {
	driver := newFakeDriver(singlePathTree())

	result, err := newTestExplorer(driver, Limits{}).Explore(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Chains, 2)
	for _, chain := range result.Chains {
		assert.True(t, chain.Complete(), "chain %s is incomplete", chain)
	}
	assert.Equal(t, []string{"Dhaka", "Dhaka North", "DH-01 Gulshan", "Banani", "Banani Point"}, result.Chains[0].Values())
	assert.Equal(t, []string{"Dhaka", "Dhaka North", "DH-01 Gulshan", "Baridhara", "Baridhara Point"}, result.Chains[1].Values())
	assert.False(t, result.RootEmpty)
	assert.Zero(t, result.SkippedBranches)
}

func TestExplore_QueriesEveryOptionSetInContext(t *testing.T) {
	driver := newFakeDriver(singlePathTree())

	result, err := newTestExplorer(driver, Limits{}).Explore(context.Background())
	require.NoError(t, err)

	// root, area, distributor, territory, then points under each territory
	assert.Equal(t, 6, result.OptionQueries)
	assert.Zero(t, driver.outOfContext, "an option set was read without its upstream prefix applied")
	assert.Equal(t, result.OptionQueries, driver.clearCalls, "every query must start from cleared filters")
}

func TestExplore_CapEnforcement(t *testing.T) {
	tree := map[string][]string{
		key(): {"R1", "R2", "R3"},
	}
	for _, r := range []string{"R1", "R2", "R3"} {
		tree[key(r)] = []string{r + "-A1", r + "-A2"}
		for _, a := range tree[key(r)] {
			tree[key(r, a)] = []string{a + "-D"}
			tree[key(r, a, a+"-D")] = []string{a + "-T"}
			tree[key(r, a, a+"-D", a+"-T")] = []string{a + "-P1", a + "-P2", a + "-P3"}
		}
	}

	t.Run("region_cap", func(t *testing.T) {
		driver := newFakeDriver(tree)
		var limits Limits
		limits[Region] = 2

		result, err := newTestExplorer(driver, limits).Explore(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, driver.listCalls[DefaultLabels.For(Area)], "only two regions should be explored")
		assert.Len(t, result.Chains, 2*2*1*1*3)
		for _, c := range result.Chains {
			assert.NotEqual(t, "R3", c.Get(Region))
		}
	})

	t.Run("product_of_caps_bounds_chain_count", func(t *testing.T) {
		driver := newFakeDriver(tree)
		limits := Limits{1, 1, 0, 0, 2}

		result, err := newTestExplorer(driver, limits).Explore(context.Background())
		require.NoError(t, err)

		assert.Len(t, result.Chains, 1*1*1*1*2)
		assert.Equal(t, "R1-A1-P1", result.Chains[0].Get(Point))
		assert.Equal(t, "R1-A1-P2", result.Chains[1].Get(Point))
	})
}

func TestExplore_DeduplicatesWithinOneOptionSet(t *testing.T) {
	tree := singlePathTree()
	tree[key("Dhaka", "Dhaka North", "DH-01 Gulshan", "Banani")] = []string{"Banani Point", " Banani Point ", "", "   ", "Banani Point"}

	result, err := newTestExplorer(newFakeDriver(tree), Limits{}).Explore(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Chains, 2)
}

func TestExplore_DoesNotDeduplicateAcrossUpstreamPaths(t *testing.T) {
	tree := singlePathTree()
	tree[key("Dhaka", "Dhaka North", "DH-01 Gulshan", "Banani")] = []string{"Shared Point"}
	tree[key("Dhaka", "Dhaka North", "DH-01 Gulshan", "Baridhara")] = []string{"Shared Point"}

	result, err := newTestExplorer(newFakeDriver(tree), Limits{}).Explore(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Chains, 2)
	assert.Equal(t, result.Chains[0].Get(Point), result.Chains[1].Get(Point))
	assert.NotEqual(t, result.Chains[0].Get(Territory), result.Chains[1].Get(Territory))
}

func TestExplore_SkipsRejectedBranch(t *testing.T) {
	tree := singlePathTree()
	driver := newFakeDriver(tree)
	driver.reject["Banani"] = true

	result, err := newTestExplorer(driver, Limits{}).Explore(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Chains, 1)
	assert.Equal(t, "Baridhara", result.Chains[0].Get(Territory))
	assert.Equal(t, 1, result.SkippedBranches)
}

func TestExplore_EmptyRootIsReportedNotFailed(t *testing.T) {
	driver := newFakeDriver(map[string][]string{})

	result, err := newTestExplorer(driver, Limits{}).Explore(context.Background())
	require.NoError(t, err)

	assert.True(t, result.RootEmpty)
	assert.Empty(t, result.Chains)
	assert.Equal(t, 1, result.OptionQueries)
}

func TestExplore_EmptyDownstreamYieldsNoChains(t *testing.T) {
	tree := map[string][]string{
		key():         {"Dhaka"},
		key("Dhaka"): {},
	}

	result, err := newTestExplorer(newFakeDriver(tree), Limits{}).Explore(context.Background())
	require.NoError(t, err)

	assert.False(t, result.RootEmpty)
	assert.Empty(t, result.Chains)
}

func TestExplore_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestExplorer(newFakeDriver(singlePathTree()), Limits{}).Explore(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
