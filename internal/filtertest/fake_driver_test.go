package filtertest

import (
	"context"
	"errors"
	"strings"
	"time"
)

// fakeDriver models a dependent filter panel over an option tree and a
// paginated result table
type fakeDriver struct {
	// tree maps a joined upstream prefix to the options offered next
	tree map[string][]string
	// reject lists values whose selection the UI refuses
	reject map[string]bool

	// pages is the table shown for any selection without an entry in pagesBy
	pages   [][]Record
	pagesBy map[string][][]Record

	nextControl bool
	numbered    bool
	failPages   map[int]bool

	selected []string
	current  int

	clearCalls   int
	settleCalls  int
	outOfContext int
	listCalls    map[string]int
	gotoCalls    []int
	readCalls    int
}

func newFakeDriver(tree map[string][]string) *fakeDriver {
	return &fakeDriver{
		tree:      tree,
		reject:    map[string]bool{},
		failPages: map[int]bool{},
		listCalls: map[string]int{},
	}
}

func key(values ...string) string {
	return strings.Join(values, "|")
}

func labelDimension(label string) int {
	for i, l := range DefaultLabels {
		if l == label {
			return i
		}
	}
	return -1
}

func (f *fakeDriver) ListOptions(_ context.Context, label string) []string {
	f.listCalls[label]++
	d := labelDimension(label)
	if d != len(f.selected) {
		f.outOfContext++
		return nil
	}
	return append([]string(nil), f.tree[key(f.selected...)]...)
}

func (f *fakeDriver) SelectOption(_ context.Context, label, value string) bool {
	d := labelDimension(label)
	if d < 0 || d > len(f.selected) || f.reject[value] {
		return false
	}
	for _, opt := range f.tree[key(f.selected[:d]...)] {
		if strings.Contains(opt, value) || strings.Contains(value, opt) {
			f.selected = append(f.selected[:d], opt)
			f.current = 0
			return true
		}
	}
	return false
}

func (f *fakeDriver) ClearAll(context.Context) {
	f.clearCalls++
	f.selected = nil
	f.current = 0
}

func (f *fakeDriver) table() [][]Record {
	if pages, ok := f.pagesBy[key(f.selected...)]; ok {
		return pages
	}
	return f.pages
}

func (f *fakeDriver) ReadCurrentPage(context.Context) ([]Record, error) {
	f.readCalls++
	if f.failPages[f.current] {
		return nil, errors.New("timeout waiting for table")
	}
	pages := f.table()
	if f.current >= len(pages) {
		return nil, nil
	}
	return append([]Record(nil), pages[f.current]...), nil
}

func (f *fakeDriver) HasNextPage(context.Context) bool {
	return f.nextControl && f.current < len(f.table())-1
}

func (f *fakeDriver) GoNext(ctx context.Context) bool {
	if !f.HasNextPage(ctx) {
		return false
	}
	f.current++
	return true
}

func (f *fakeDriver) ListPageNumbers(context.Context) []int {
	if !f.numbered {
		return nil
	}
	pages := make([]int, 0, len(f.table()))
	for i := range f.table() {
		pages = append(pages, i+1)
	}
	return pages
}

func (f *fakeDriver) GoToPage(_ context.Context, n int) bool {
	f.gotoCalls = append(f.gotoCalls, n)
	if n < 1 || n > len(f.table()) {
		return false
	}
	f.current = n - 1
	return true
}

func (f *fakeDriver) AwaitSettled(context.Context, time.Duration) {
	f.settleCalls++
}

func rec(code, region, area, distributor, territory, point string) Record {
	return Record{
		Name:        "Retailer " + code,
		Code:        code,
		Region:      region,
		Area:        area,
		Distributor: distributor,
		Territory:   territory,
		Point:       point,
	}
}
