package progress

import "time"

// Stage identifies a step of a single download run.
type Stage string

const (
	StageMetadata    Stage = "metadata"
	StageCatalog     Stage = "catalog"
	StageSelecting   Stage = "selecting"
	StageDownloading Stage = "downloading"
	StageCompleted   Stage = "completed"
	StageError       Stage = "error"
)

// Update conveys a stage change for a job.
type Update struct {
	JobID   string
	Stage   Stage
	Message string // short human-friendly status line
}

// Result is emitted once per job when it completes or fails.
type Result struct {
	JobID      string
	OutputPath string
	Bytes      int64
	Err        error // nil on success
}

// Reporter is implemented by the console or any observer interested in
// stage changes.
type Reporter interface {
	Update(u Update)
	Result(r Result)
}

// Sink observes the byte flow of one transfer.
// Start is called once the response arrives with the expected total (0 when
// unknown), Advance after every chunk written. Finish is called exactly once,
// also when the transfer fails before Start.
type Sink interface {
	Start(total int64)
	Advance(n int64)
	Finish(err error)
}

// Snapshot is a point-in-time view of a transfer.
type Snapshot struct {
	Done    int64
	Total   int64 // 0 when unknown
	Elapsed time.Duration
}

// Percent returns 0..100, or -1 when the total is unknown.
func (s Snapshot) Percent() float64 {
	if s.Total <= 0 {
		return -1
	}
	p := float64(s.Done) / float64(s.Total) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// BytesPerSecond returns the average rate since Start.
func (s Snapshot) BytesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Done) / s.Elapsed.Seconds()
}

// Counter is a Sink that only accumulates; other sinks embed it.
type Counter struct {
	Now     func() time.Time
	started time.Time
	done    int64
	total   int64
}

func (c *Counter) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Counter) Start(total int64) {
	if total < 0 {
		total = 0
	}
	c.total = total
	c.done = 0
	c.started = c.now()
}

func (c *Counter) Advance(n int64) {
	c.done += n
}

func (c *Counter) Finish(error) {}

// Snapshot reports the current totals.
func (c *Counter) Snapshot() Snapshot {
	return Snapshot{Done: c.done, Total: c.total, Elapsed: c.now().Sub(c.started)}
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Start(int64)   {}
func (Nop) Advance(int64) {}
func (Nop) Finish(error)  {}
