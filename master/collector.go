package master

import (
	"sync"

	"github.com/WatchJani/K-means/utils"
)

// Collector : per-cluster accumulation of the contributions of a round, safe for concurrent use
type Collector struct {
	mutex         sync.Mutex
	slots         []utils.PartialAggregate
	contributions int
}

// NewCollector creates a collector with one slot per cluster
func NewCollector(k int) *Collector {
	return &Collector{slots: make([]utils.PartialAggregate, k)}
}

// Add merges the aggregates of one worker, which must carry one entry per cluster
func (c *Collector) Add(partials []utils.PartialAggregate) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(partials) != len(c.slots) {
		return utils.Malformed(nil, "%d aggregate(s) for %d cluster(s)", len(partials), len(c.slots))
	}
	for cid := range c.slots {
		c.slots[cid].Merge(partials[cid])
	}
	c.contributions++
	return nil
}

// Contributions returns the number of accepted contributions
func (c *Collector) Contributions() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.contributions
}

// Merged returns a copy of the accumulated aggregates
func (c *Collector) Merged() []utils.PartialAggregate {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	res := make([]utils.PartialAggregate, len(c.slots))
	copy(res, c.slots)
	return res
}
