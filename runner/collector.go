package runner

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/yamf-go/op-marker/types"
)

// Totals summarizes the records added to a Collector
type Totals struct {
	Marks       float64
	MaxMarks    float64
	Records     int
	Passed      int
	Failed      int
	Aborted     int
	NeedsReview int
}

// Collector aggregates result records produced during a run.
// Add may be called concurrently; reads are expected once the run has finished.
//
// Identities are expected to be unique. When two records share one, the later record
// replaces the earlier one in Records, both stay counted in Totals, and the identity
// is reported by Duplicates.
type Collector struct {
	log log.Logger

	mu         sync.Mutex
	records    []types.ResultRecord
	latest     map[types.CheckID]int
	duplicates []types.CheckID
	totals     Totals
}

// NewCollector creates an empty collector
func NewCollector(logger log.Logger) *Collector {
	if logger == nil {
		logger = log.Root()
	}
	return &Collector{
		log:    logger,
		latest: make(map[types.CheckID]int),
	}
}

// Add appends a record
func (c *Collector) Add(record types.ResultRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.latest[record.ID]; exists {
		c.log.Warn("Duplicate check identity, the later record replaces the earlier one", "check", record.ID)
		c.duplicates = append(c.duplicates, record.ID)
	}
	c.latest[record.ID] = len(c.records)
	c.records = append(c.records, record)
	c.updateTotals(record)
}

func (c *Collector) updateTotals(record types.ResultRecord) {
	c.totals.Records++
	c.totals.Marks += record.Mark()
	c.totals.MaxMarks += record.MaxMark()
	switch record.Status {
	case types.CheckStatusSuccess:
		c.totals.Passed++
	case types.CheckStatusFailure:
		c.totals.Failed++
	case types.CheckStatusAborted:
		c.totals.Aborted++
	}
	if record.NeedsReview() {
		c.totals.NeedsReview++
	}
}

// Records returns one record per identity, sorted by identity
func (c *Collector) Records() []types.ResultRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.ResultRecord, 0, len(c.latest))
	for _, idx := range c.latest {
		out = append(out, c.records[idx])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Totals returns the sums over every added record, duplicates included
func (c *Collector) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// Duplicates returns the identities that were added more than once, in the order seen
func (c *Collector) Duplicates() []types.CheckID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.CheckID(nil), c.duplicates...)
}

// Len returns the number of records added, duplicates included
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
