package filtertest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Dimension is one level of the dependent filter hierarchy.
// The numeric order is the dependency order.
type Dimension int

const (
	Region Dimension = iota
	Area
	Distributor
	Territory
	Point
)

// NumDimensions is the depth of the filter hierarchy
const NumDimensions = 5

// RecordColumns is the number of table cells a result row must have
const RecordColumns = 7

// Dimensions lists every dimension in dependency order
var Dimensions = []Dimension{Region, Area, Distributor, Territory, Point}

var dimensionNames = [NumDimensions]string{"region", "area", "distributor", "territory", "point"}

var (
	ErrIncompleteChain = errors.New("filter chain must have a value for every dimension")
	ErrUnknownStrategy = errors.New("unknown collection strategy")
)

func (d Dimension) String() string {
	if d < 0 || int(d) >= NumDimensions {
		return fmt.Sprintf("dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// Last reports whether d is the leaf of the hierarchy
func (d Dimension) Last() bool {
	return int(d) == NumDimensions-1
}

// ParseDimension resolves a dimension from its name
func ParseDimension(name string) (Dimension, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range dimensionNames {
		if n == name {
			return Dimension(i), nil
		}
	}
	return 0, fmt.Errorf("unknown filter dimension %q", name)
}

func (d Dimension) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dimension) UnmarshalText(text []byte) error {
	parsed, err := ParseDimension(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Chain is one complete assignment of values across all dimensions.
// The zero value is incomplete; build chains with NewChain.
type Chain struct {
	values [NumDimensions]string
}

// NewChain builds a chain from values given in dimension order
func NewChain(values ...string) (Chain, error) {
	var c Chain
	if len(values) != NumDimensions {
		return c, fmt.Errorf("%w: got %d values", ErrIncompleteChain, len(values))
	}
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			return Chain{}, fmt.Errorf("%w: %s is empty", ErrIncompleteChain, Dimension(i))
		}
		c.values[i] = v
	}
	return c, nil
}

func (c Chain) Get(d Dimension) string {
	return c.values[d]
}

// Values returns a copy of the chain's values in dimension order
func (c Chain) Values() []string {
	out := make([]string, NumDimensions)
	copy(out, c.values[:])
	return out
}

// Complete reports whether every dimension holds a non-blank value
func (c Chain) Complete() bool {
	for _, v := range c.values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Map returns the chain keyed by dimension name
func (c Chain) Map() map[string]string {
	m := make(map[string]string, NumDimensions)
	for _, d := range Dimensions {
		m[d.String()] = c.values[d]
	}
	return m
}

func (c Chain) String() string {
	parts := make([]string, 0, NumDimensions)
	for _, d := range Dimensions {
		parts = append(parts, fmt.Sprintf("%s=%s", d, c.values[d]))
	}
	return strings.Join(parts, " / ")
}

func (c Chain) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

func (c *Chain) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	values := make([]string, NumDimensions)
	for _, d := range Dimensions {
		values[d] = m[d.String()]
	}
	parsed, err := NewChain(values...)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Limits caps how many options are explored per dimension. Zero means unbounded.
type Limits [NumDimensions]int

// Cap returns the cap for d, 0 when unbounded
func (l Limits) Cap(d Dimension) int {
	if l[d] < 0 {
		return 0
	}
	return l[d]
}

// ParseLimits resolves caps keyed by dimension name. Only the dimensions
// named in m appear in the result, so callers can layer it over other sources.
func ParseLimits(m map[string]int) (map[Dimension]int, error) {
	caps := make(map[Dimension]int, len(m))
	for name, limit := range m {
		d, err := ParseDimension(name)
		if err != nil {
			return nil, err
		}
		if limit < 0 {
			return nil, fmt.Errorf("limit for %s must not be negative, got %d", d, limit)
		}
		caps[d] = limit
	}
	return caps, nil
}

// DimensionLabels maps each dimension to the accessible name of its UI control
type DimensionLabels [NumDimensions]string

// DefaultLabels are the control names used by the retailer filter panel
var DefaultLabels = DimensionLabels{
	"Filter by Region",
	"Filter by Area",
	"Filter by Distribution house",
	"Filter by Territory",
	"Filter by Point",
}

func (l DimensionLabels) For(d Dimension) string {
	if l[d] == "" {
		return DefaultLabels[d]
	}
	return l[d]
}

// Record is one row of the result table
type Record struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Region      string `json:"region"`
	Area        string `json:"area"`
	Distributor string `json:"distributor"`
	Territory   string `json:"territory"`
	Point       string `json:"point"`
}

// Field returns the record column that corresponds to d
func (r Record) Field(d Dimension) string {
	switch d {
	case Region:
		return r.Region
	case Area:
		return r.Area
	case Distributor:
		return r.Distributor
	case Territory:
		return r.Territory
	case Point:
		return r.Point
	default:
		return ""
	}
}

// ParseRow builds a record from table cells. Rows with fewer than
// RecordColumns cells are rejected rather than partially populated.
func ParseRow(cells []string) (Record, bool) {
	if len(cells) < RecordColumns {
		return Record{}, false
	}
	return Record{
		Name:        strings.TrimSpace(cells[0]),
		Code:        strings.TrimSpace(cells[1]),
		Region:      strings.TrimSpace(cells[2]),
		Area:        strings.TrimSpace(cells[3]),
		Distributor: strings.TrimSpace(cells[4]),
		Territory:   strings.TrimSpace(cells[5]),
		Point:       strings.TrimSpace(cells[6]),
	}, true
}

// Strategy selects how result pages are collected
type Strategy string

const (
	StrategySampled    Strategy = "sampled"
	StrategyExhaustive Strategy = "exhaustive"
)

// ParseStrategy validates a strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySampled:
		return StrategySampled, nil
	case StrategyExhaustive:
		return StrategyExhaustive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// ResultSet is the deduplicated record set collected for one chain
type ResultSet struct {
	Chain        Chain    `json:"chain"`
	Strategy     Strategy `json:"strategy"`
	Records      []Record `json:"records"`
	PagesRead    int      `json:"pages_read"`
	PageFailures int      `json:"page_failures"`
	// Truncated is set when exhaustive pagination hit its pass bound
	Truncated bool `json:"truncated"`
}

func (rs *ResultSet) Count() int {
	return len(rs.Records)
}

// Compliance is the per-dimension agreement between records and the filter value
type Compliance struct {
	Compliant  int     `json:"compliant"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// InvalidRecord is a record that failed at least one dimension
type InvalidRecord struct {
	Record Record   `json:"record"`
	Issues []string `json:"issues"`
}

// VerificationReport summarises how a record set agrees with its chain
type VerificationReport struct {
	TotalRecords     int                      `json:"total_records"`
	ValidRecords     int                      `json:"valid_records"`
	InvalidRecords   []InvalidRecord          `json:"invalid_records"`
	FilterCompliance map[Dimension]Compliance `json:"filter_compliance"`
}

// ChainResult is the outcome of testing one chain
type ChainResult struct {
	Chain        Chain              `json:"chain"`
	Strategy     Strategy           `json:"strategy"`
	DataCount    int                `json:"data_count"`
	PagesRead    int                `json:"pages_read"`
	PageFailures int                `json:"page_failures"`
	Truncated    bool               `json:"truncated"`
	Verification VerificationReport `json:"verification"`
}

func (r ChainResult) Passed() bool {
	return len(r.Verification.InvalidRecords) == 0
}

// Exploration is what the explorer learned about the filter domain
type Exploration struct {
	Chains          []Chain `json:"chains"`
	OptionQueries   int     `json:"option_queries"`
	SkippedBranches int     `json:"skipped_branches"`
	RootEmpty       bool    `json:"root_empty"`
}

// Summary aggregates chain outcomes for a run
type Summary struct {
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	SuccessRate float64 `json:"success_rate"`
}

// RunReport is everything a run produces for rendering
type RunReport struct {
	RunID         string        `json:"run_id"`
	Strategy      Strategy      `json:"strategy"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Exploration   *Exploration  `json:"exploration"`
	Results       []ChainResult `json:"results"`
	SkippedChains []Chain       `json:"skipped_chains"`
	Summary       Summary       `json:"summary"`
}

// Failed returns the results with at least one invalid record
func (r *RunReport) Failed() []ChainResult {
	var out []ChainResult
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded returns the results with no invalid records
func (r *RunReport) Succeeded() []ChainResult {
	var out []ChainResult
	for _, res := range r.Results {
		if res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

func summarize(results []ChainResult, skipped int) Summary {
	s := Summary{Total: len(results), Skipped: skipped}
	for _, r := range results {
		if r.Passed() {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	if s.Total > 0 {
		s.SuccessRate = float64(s.Passed) / float64(s.Total) * 100
	}
	return s
}
