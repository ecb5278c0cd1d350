package client

import (
	"sync"
	"sync/atomic"
)

// LineParser consumes lines read from the server.
type LineParser interface {
	ParseLine(line string)
}

// Pipeline decouples the socket reader from the line decoder.
//
// The reader feeds lines into a bounded channel and never blocks: if the
// decoder cannot keep up, lines are dropped and counted so the socket keeps
// draining and the server is never back-pressured by a slow dashboard.
//
//	Layer 1 (reader):  FeedLine, drops if the channel is full
//	Layer 2 (decoder): RunParser, consumes at its own pace
type Pipeline struct {
	bufferSize int

	lineChan  chan string
	closeOnce sync.Once

	linesRead    atomic.Int64
	linesDropped atomic.Int64
	linesParsed  atomic.Int64

	dropThreshold float64
}

// NewPipeline creates a lossy pipeline. bufferSize is the channel capacity in
// lines; dropThreshold is the drop fraction above which IsDegraded reports true.
func NewPipeline(bufferSize int, dropThreshold float64) *Pipeline {
	if bufferSize < 1 {
		bufferSize = 1000
	}
	if dropThreshold <= 0 {
		dropThreshold = 0.01
	}

	return &Pipeline{
		bufferSize:    bufferSize,
		lineChan:      make(chan string, bufferSize),
		dropThreshold: dropThreshold,
	}
}

// FeedLine queues a line. Returns false if it was dropped.
func (p *Pipeline) FeedLine(line string) bool {
	p.linesRead.Add(1)

	select {
	case p.lineChan <- line:
		return true
	default:
		p.linesDropped.Add(1)
		return false
	}
}

// CloseChannel closes the line channel so RunParser returns once drained.
// The reader calls it exactly once when its connection ends; further calls
// are no-ops.
func (p *Pipeline) CloseChannel() {
	p.closeOnce.Do(func() {
		close(p.lineChan)
	})
}

// RunParser consumes lines until CloseChannel is called and the channel is
// drained. Must run in its own goroutine.
func (p *Pipeline) RunParser(parser LineParser) {
	for line := range p.lineChan {
		parser.ParseLine(line)
		p.linesParsed.Add(1)
	}
}

// Stats returns lines read, dropped and parsed.
func (p *Pipeline) Stats() (read, dropped, parsed int64) {
	return p.linesRead.Load(), p.linesDropped.Load(), p.linesParsed.Load()
}

// DropRate returns the current drop rate as a fraction (0.0 to 1.0).
func (p *Pipeline) DropRate() float64 {
	read := p.linesRead.Load()
	if read == 0 {
		return 0
	}
	return float64(p.linesDropped.Load()) / float64(read)
}

// IsDegraded returns true if the drop rate exceeds the configured threshold.
func (p *Pipeline) IsDegraded() bool {
	return p.DropRate() > p.dropThreshold
}
