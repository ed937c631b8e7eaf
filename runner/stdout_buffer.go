package runner

import (
	"sync"
)

const defaultStderrTailBytes = 64 * 1024 // kept in memory for diagnostics

// tailBuffer keeps only the last N bytes written to it so a failed invocation can be
// logged with a representative snippet of the runner's stderr.
type tailBuffer struct {
	maxBytes int

	mu       sync.Mutex
	total    int64
	contents []byte
	overflow bool
}

func newTailBuffer(maxBytes int) *tailBuffer {
	if maxBytes <= 0 {
		maxBytes = defaultStderrTailBytes
	}
	return &tailBuffer{
		maxBytes: maxBytes,
		contents: make([]byte, 0, maxBytes),
	}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	b.contents = append(b.contents, p...)
	if len(b.contents) > b.maxBytes {
		b.contents = b.contents[len(b.contents)-b.maxBytes:]
		b.overflow = true
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.contents)
}

func (b *tailBuffer) TotalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow
}

// consoleBuffer collects complete console lines from several streams.
// Lines from different streams interleave whole, never mid-line.
type consoleBuffer struct {
	mu    sync.Mutex
	lines []string
	size  int
}

func (c *consoleBuffer) appendLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	c.size += len(line) + 1
}

func (c *consoleBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, 0, c.size)
	for _, line := range c.lines {
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return string(buf)
}
