package transcribe

import "sync"

// Usage is a snapshot of recognizer traffic for one run.
type Usage struct {
	ChunkCalls       int     `json:"chunkCalls"`
	SegmentCalls     int     `json:"segmentCalls"`
	FailedCalls      int     `json:"failedCalls"`
	RetriedCalls     int     `json:"retriedCalls"`
	AudioSecondsSent float64 `json:"audioSecondsSent"`
}

// UsageCollector tallies recognizer traffic from concurrent workers.
type UsageCollector struct {
	mu    sync.Mutex
	usage Usage
}

func NewUsageCollector() *UsageCollector {
	return &UsageCollector{}
}

func (c *UsageCollector) recordChunk(seconds float64, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.ChunkCalls++
	c.usage.AudioSecondsSent += seconds
	if failed {
		c.usage.FailedCalls++
	}
}

func (c *UsageCollector) recordSegment(seconds float64, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.SegmentCalls++
	c.usage.AudioSecondsSent += seconds
	if failed {
		c.usage.FailedCalls++
	}
}

// RecordRetry counts one scheduled retry. Wire it to the client's retry
// observer.
func (c *UsageCollector) RecordRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.RetriedCalls++
}

// Snapshot returns a copy of the tallies so far.
func (c *UsageCollector) Snapshot() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}
