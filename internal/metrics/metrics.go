package metrics

import "sync"

// Recorder accumulates aggregate sleep/wake event counters. It is a
// passive observer updated by the ContainerController on every
// transition; consumers pull a Snapshot, there is no push dependency.
// Per-service counters (wake count, total sleep time) live on the
// ServiceStatus itself.
type Recorder struct {
	mu            sync.Mutex
	sleepEvents   int64
	wakeEvents    int64
	sleepFailures int64
	wakeFailures  int64
}

// Snapshot is a point-in-time copy of the aggregate counters.
type Snapshot struct {
	SleepEvents   int64 `json:"sleep_events"`
	WakeEvents    int64 `json:"wake_events"`
	SleepFailures int64 `json:"sleep_failures"`
	WakeFailures  int64 `json:"wake_failures"`
}

func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordSleep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleepEvents++
}

func (r *Recorder) RecordWake() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wakeEvents++
}

func (r *Recorder) RecordSleepFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleepFailures++
}

func (r *Recorder) RecordWakeFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wakeFailures++
}

// Snapshot returns a copy of the current counters.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		SleepEvents:   r.sleepEvents,
		WakeEvents:    r.wakeEvents,
		SleepFailures: r.sleepFailures,
		WakeFailures:  r.wakeFailures,
	}
}
