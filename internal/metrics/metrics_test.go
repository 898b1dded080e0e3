package metrics

import (
	"sync"
	"testing"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.RecordSleep()
	r.RecordSleep()
	r.RecordWake()
	r.RecordSleepFailure()
	r.RecordWakeFailure()
	r.RecordWakeFailure()

	snap := r.Snapshot()
	if snap.SleepEvents != 2 {
		t.Errorf("SleepEvents = %v, want 2", snap.SleepEvents)
	}
	if snap.WakeEvents != 1 {
		t.Errorf("WakeEvents = %v, want 1", snap.WakeEvents)
	}
	if snap.SleepFailures != 1 {
		t.Errorf("SleepFailures = %v, want 1", snap.SleepFailures)
	}
	if snap.WakeFailures != 2 {
		t.Errorf("WakeFailures = %v, want 2", snap.WakeFailures)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RecordSleep()
			r.RecordWake()
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	if snap.SleepEvents != 50 || snap.WakeEvents != 50 {
		t.Errorf("Snapshot = %+v, want 50 sleeps and 50 wakes", snap)
	}
}
