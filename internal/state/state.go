package state

import (
	"fmt"
	"sync"

	"github.com/randomizedcoder/go-channel-monitor/internal/logging"
	"github.com/randomizedcoder/go-channel-monitor/internal/stats"
)

// Controller starts and stops the worker that receives data from the server.
type Controller interface {
	// Start launches the worker for the given channel count. It must not
	// block on network I/O.
	Start(channels int) error

	// Stop cancels the worker and waits for it to exit.
	Stop() error
}

// ControllerFactory builds the controller for a server port.
type ControllerFactory func(port int) (Controller, error)

// Coordinate is one point of a channel series: X is the sample index on the
// channel, Y the received value.
type Coordinate struct {
	X int64 `json:"x"`
	Y int   `json:"y"`
}

// Config holds the construction parameters for ClientState.
type Config struct {
	Frequency    int
	Channels     int
	HistoryLimit int // values kept per channel, 0 = unlimited
	LogLimit     int // log lines kept, 0 = logging.DefaultRingSize

	ControllerFactory ControllerFactory
}

// ClientState is the shared state between the client worker, the statistics
// observer and the dashboard. It is built once and passed to collaborators.
//
// Thread-safe. Lock order is toggleMu, then the event delivery lock, then
// mu. toggleMu serializes Start/Stop/Toggle and the config changes that
// depend on the status; the delivery lock pairs each mutation with its
// synchronous notification; mu guards the fields.
type ClientState struct {
	mu       sync.RWMutex
	toggleMu sync.Mutex

	frequency    int
	channels     int
	port         int
	status       Status
	controller   Controller
	factory      ControllerFactory
	historyLimit int

	series   [][]Coordinate
	nextX    []int64
	digests  []*stats.ChannelDigest
	received int64

	stat      stats.DataStat
	hasStat   bool
	summaries []stats.ChannelSummary

	logs *logging.Ring

	events eventQueue
}

// New creates the client state in the stopped status.
func New(cfg Config) *ClientState {
	return &ClientState{
		frequency:    cfg.Frequency,
		channels:     cfg.Channels,
		historyLimit: cfg.HistoryLimit,
		factory:      cfg.ControllerFactory,
		status:       StatusStopped,
		logs:         logging.NewRing(cfg.LogLimit),
	}
}

// --- Configuration ---

// Frequency returns the configured sampling frequency in Hz.
func (s *ClientState) Frequency() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frequency
}

// SetFrequency updates the sampling frequency. Allowed in any status.
func (s *ClientState) SetFrequency(frequency int) error {
	if frequency < 1 {
		return fmt.Errorf("frequency must be at least 1 (got %d)", frequency)
	}

	s.events.lock()
	defer s.events.unlock()

	s.mu.Lock()
	s.frequency = frequency
	s.mu.Unlock()

	s.events.deliver(Event{Kind: EventConfig})
	return nil
}

// Channels returns the channel count.
func (s *ClientState) Channels() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channels
}

// SetChannels updates the channel count. Only allowed while stopped, since
// the running controller was started with the previous count. Lowering the
// count drops the data of the removed channels.
func (s *ClientState) SetChannels(channels int) error {
	if channels < 1 {
		return fmt.Errorf("channels must be at least 1 (got %d)", channels)
	}

	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()
	s.events.lock()
	defer s.events.unlock()

	s.mu.Lock()
	if s.status == StatusStarted {
		s.mu.Unlock()
		return whileStartedError("channels")
	}
	s.channels = channels
	if len(s.series) > channels {
		s.series = s.series[:channels]
		s.nextX = s.nextX[:channels]
		s.digests = s.digests[:channels]
	}
	s.mu.Unlock()

	s.events.deliver(Event{Kind: EventConfig})
	return nil
}

// Port returns the server port.
func (s *ClientState) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

// SetPort sets the server port and builds a new controller for it.
// Only allowed while stopped.
func (s *ClientState) SetPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be in 1-65535 (got %d)", port)
	}

	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	s.mu.RLock()
	started := s.status == StatusStarted
	factory := s.factory
	s.mu.RUnlock()

	if started {
		return whileStartedError("port")
	}

	var ctrl Controller
	if factory != nil {
		c, err := factory(port)
		if err != nil {
			return fmt.Errorf("create controller for port %d: %w", port, err)
		}
		ctrl = c
	}

	s.events.lock()
	defer s.events.unlock()

	s.mu.Lock()
	s.port = port
	s.controller = ctrl
	s.mu.Unlock()

	s.events.deliver(Event{Kind: EventConfig})
	return nil
}

// Controller returns the current controller, or nil if no port was set.
func (s *ClientState) Controller() Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controller
}

// --- Lifecycle ---

// Status returns the current status.
func (s *ClientState) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsStarted reports whether the controller is running.
func (s *ClientState) IsStarted() bool {
	return s.Status() == StatusStarted
}

// Start starts the controller with the configured channel count.
func (s *ClientState) Start() error {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()
	return s.startLocked()
}

// Stop stops the controller.
func (s *ClientState) Stop() error {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()
	return s.stopLocked()
}

// Toggle starts a stopped client or stops a started one and returns the
// resulting status. On error the status is left unchanged, except that a
// failing Stop still leaves the client stopped.
func (s *ClientState) Toggle() (Status, error) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	var err error
	if s.Status() == StatusStarted {
		err = s.stopLocked()
	} else {
		err = s.startLocked()
	}
	return s.Status(), err
}

// startLocked must be called with toggleMu held. The delivery lock is held
// across controller.Start so no sample is delivered before the started event.
func (s *ClientState) startLocked() error {
	s.events.lock()
	defer s.events.unlock()

	s.mu.RLock()
	status := s.status
	ctrl := s.controller
	channels := s.channels
	s.mu.RUnlock()

	if status == StatusStarted {
		return transitionError(status, StatusStarted)
	}
	if ctrl == nil {
		return fmt.Errorf("%w: %w", ErrInvalidStateTransition, ErrNoController)
	}

	if err := ctrl.Start(channels); err != nil {
		return fmt.Errorf("start client: %w", err)
	}

	s.mu.Lock()
	s.status = StatusStarted
	s.mu.Unlock()

	s.events.deliver(Event{Kind: EventStatus, Status: StatusStarted})
	return nil
}

// stopLocked must be called with toggleMu held. The controller is stopped
// first: its worker may still deliver samples until Stop returns, and none
// arrive after the stopped event.
func (s *ClientState) stopLocked() error {
	s.mu.RLock()
	status := s.status
	ctrl := s.controller
	s.mu.RUnlock()

	if status != StatusStarted {
		return transitionError(status, StatusStopped)
	}

	var err error
	if ctrl != nil {
		if stopErr := ctrl.Stop(); stopErr != nil {
			err = fmt.Errorf("stop client: %w", stopErr)
		}
	}

	s.events.lock()
	defer s.events.unlock()

	s.mu.Lock()
	s.status = StatusStopped
	s.mu.Unlock()

	s.events.deliver(Event{Kind: EventStatus, Status: StatusStopped})
	return err
}

// --- Data ---

// AppendSample stores one received sample, one value per channel. Values
// beyond the channel count are ignored. It returns after every observer has
// seen the sample.
func (s *ClientState) AppendSample(values []int) {
	s.events.lock()
	defer s.events.unlock()

	s.mu.Lock()
	n := min(len(values), s.channels)
	if n == 0 {
		s.mu.Unlock()
		return
	}
	s.ensureChannelsLocked(n)

	for ch := 0; ch < n; ch++ {
		ser := append(s.series[ch], Coordinate{X: s.nextX[ch], Y: values[ch]})
		s.nextX[ch]++
		if s.historyLimit > 0 && len(ser) > s.historyLimit {
			kept := copy(ser, ser[len(ser)-s.historyLimit:])
			ser = ser[:kept]
			s.digests[ch].Rebuild(yValues(ser))
		} else {
			s.digests[ch].Add(values[ch])
		}
		s.series[ch] = ser
	}
	s.received++
	s.mu.Unlock()

	s.events.deliver(Event{Kind: EventSample, Values: append([]int(nil), values[:n]...)})
}

func (s *ClientState) ensureChannelsLocked(n int) {
	for len(s.series) < n {
		s.series = append(s.series, nil)
		s.nextX = append(s.nextX, 0)
		s.digests = append(s.digests, stats.NewChannelDigest())
	}
}

func yValues(series []Coordinate) []int {
	out := make([]int, len(series))
	for i, c := range series {
		out[i] = c.Y
	}
	return out
}

// AllValues returns every retained value across all channels, channel by
// channel, in arrival order within each channel.
func (s *ClientState) AllValues() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, ser := range s.series {
		total += len(ser)
	}
	values := make([]int, 0, total)
	for _, ser := range s.series {
		for _, c := range ser {
			values = append(values, c.Y)
		}
	}
	return values
}

// SummarizeChannels returns a summary per channel from the incremental
// digests. Channels without values have a zero Count.
func (s *ClientState) SummarizeChannels() []stats.ChannelSummary {
	// Write lock: reading a t-digest quantile compresses it.
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]stats.ChannelSummary, len(s.digests))
	for ch, d := range s.digests {
		// An empty channel yields its zero-count summary.
		out[ch], _ = d.Summary(ch)
	}
	return out
}

// Series returns a copy of one channel's coordinate series.
func (s *ClientState) Series(channel int) []Coordinate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if channel < 0 || channel >= len(s.series) {
		return nil
	}
	return append([]Coordinate(nil), s.series[channel]...)
}

// DataFromServer returns a copy of every channel series.
func (s *ClientState) DataFromServer() [][]Coordinate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]Coordinate, len(s.series))
	for ch, ser := range s.series {
		out[ch] = append([]Coordinate(nil), ser...)
	}
	return out
}

// Received returns the number of samples received since the last reset.
func (s *ClientState) Received() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.received
}

// Reset drops every received value and the derived statistics.
func (s *ClientState) Reset() {
	s.events.lock()
	defer s.events.unlock()

	s.mu.Lock()
	s.series = nil
	s.nextX = nil
	s.digests = nil
	s.received = 0
	s.stat = stats.DataStat{}
	s.hasStat = false
	s.summaries = nil
	s.mu.Unlock()

	s.events.deliver(Event{Kind: EventReset})
}

// --- Statistics display fields ---

// SetStats stores the latest aggregates and per-channel summaries.
// It does not notify observers; the statistics observer calls it from
// inside a sample notification.
func (s *ClientState) SetStats(stat stats.DataStat, summaries []stats.ChannelSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stat = stat
	s.hasStat = true
	s.summaries = summaries
}

// Stats returns the latest aggregates; ok is false until the first sample.
func (s *ClientState) Stats() (stat stats.DataStat, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stat, s.hasStat
}

// ChannelSummaries returns the latest per-channel summaries.
func (s *ClientState) ChannelSummaries() []stats.ChannelSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]stats.ChannelSummary(nil), s.summaries...)
}

// --- Logs ---

// AddLog appends a line to the log ring. Implements logging.LineSink.
func (s *ClientState) AddLog(line string) {
	s.logs.Add(line)
}

// Logs returns the retained log lines, oldest first.
func (s *ClientState) Logs() []string {
	return s.logs.Lines()
}

// RecentLogs returns the n most recent log lines.
func (s *ClientState) RecentLogs(n int) []string {
	return s.logs.Recent(n)
}

// LogRing exposes the underlying ring for summaries.
func (s *ClientState) LogRing() *logging.Ring {
	return s.logs
}
