package controller

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/metrics"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/registry"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/runtime/runtimetest"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/statestore"
)

type fixture struct {
	reg      *registry.ServiceRegistry
	store    *statestore.StatusStore
	rt       *runtimetest.Fake
	recorder *metrics.Recorder
	ctrl     *ContainerController
}

func newFixture(t *testing.T, defs ...*domain.ServiceDefinition) *fixture {
	t.Helper()

	log := logger.New("error", false)
	f := &fixture{
		reg:      registry.New(log),
		store:    statestore.New(),
		rt:       runtimetest.New(),
		recorder: metrics.New(),
	}
	for _, def := range defs {
		if err := f.reg.Register(def); err != nil {
			t.Fatalf("Register(%s) = %v", def.Name, err)
		}
		f.store.Register(def.Name)
	}
	f.ctrl = New(f.reg, f.store, f.rt, nil, f.recorder, log, Options{
		WakeRetries: 3,
		WakeBackoff: time.Millisecond,
	})
	return f
}

func sleepableDef(name string) *domain.ServiceDefinition {
	return &domain.ServiceDefinition{
		Name:  name,
		Image: "registry.local/" + name + ":1.0",
		Port:  8080,
		Resources: domain.ResourceLimits{
			MemoryMB: 256,
		},
		SleepPolicy: domain.SleepPolicy{
			Enabled:             true,
			IdleTimeout:         10 * time.Minute,
			MinSleepTime:        time.Minute,
			MemoryReservationMB: 32,
			Priority:            domain.PriorityNormal,
		},
	}
}

// seedRunning puts the service in RUNNING with a live fake container.
func (f *fixture) seedRunning(name string) string {
	id := f.rt.Add(true, false)
	f.store.Update(name, func(s *domain.ServiceStatus) {
		s.State = domain.StateRunning
		s.ContainerID = id
	})
	return id
}

func TestSleepPausesRunningService(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	id := f.seedRunning("alpha")

	st, err := f.ctrl.Sleep(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Sleep() = %v, want nil", err)
	}
	if st.State != domain.StateSleeping {
		t.Errorf("State = %v, want %v", st.State, domain.StateSleeping)
	}
	if st.SleepStart == nil {
		t.Error("SleepStart not set")
	}
	if st.ContainerID != id {
		t.Errorf("ContainerID = %v, want %v (paused in place)", st.ContainerID, id)
	}
	if f.rt.PauseCalls() != 1 {
		t.Errorf("PauseCalls = %v, want 1", f.rt.PauseCalls())
	}
	if got := f.recorder.Snapshot().SleepEvents; got != 1 {
		t.Errorf("SleepEvents = %v, want 1", got)
	}
}

func TestSleepIdempotent(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.seedRunning("alpha")

	if _, err := f.ctrl.Sleep(context.Background(), "alpha"); err != nil {
		t.Fatalf("first Sleep() = %v", err)
	}
	st, err := f.ctrl.Sleep(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("second Sleep() = %v, want nil (idempotent)", err)
	}
	if st.State != domain.StateSleeping {
		t.Errorf("State = %v, want %v", st.State, domain.StateSleeping)
	}
	if f.rt.PauseCalls() != 1 {
		t.Errorf("PauseCalls = %v, want exactly 1", f.rt.PauseCalls())
	}
}

func TestSleepSkipsBusyService(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.seedRunning("alpha")
	f.store.Update("alpha", func(s *domain.ServiceStatus) {
		s.ActiveRequests = 2
	})

	st, err := f.ctrl.Sleep(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Sleep() on busy service = %v, want nil no-op", err)
	}
	if st.State != domain.StateRunning {
		t.Errorf("State = %v, want %v", st.State, domain.StateRunning)
	}
	if f.rt.PauseCalls() != 0 {
		t.Errorf("PauseCalls = %v, want 0", f.rt.PauseCalls())
	}
}

func TestSleepPolicyDisabled(t *testing.T) {
	def := sleepableDef("alpha")
	def.SleepPolicy.Enabled = false
	def.SleepPolicy.IdleTimeout = 0
	def.SleepPolicy.MinSleepTime = 0
	f := newFixture(t, def)
	f.seedRunning("alpha")

	st, err := f.ctrl.Sleep(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Sleep() = %v, want nil no-op", err)
	}
	if st.State != domain.StateRunning {
		t.Errorf("State = %v, want running", st.State)
	}
	if f.rt.PauseCalls() != 0 {
		t.Errorf("PauseCalls = %v, want 0", f.rt.PauseCalls())
	}
}

func TestSleepPolicyDisabledStillRejectsInvalidState(t *testing.T) {
	def := sleepableDef("alpha")
	def.SleepPolicy.Enabled = false
	def.SleepPolicy.IdleTimeout = 0
	def.SleepPolicy.MinSleepTime = 0
	f := newFixture(t, def)

	// alpha is STOPPED: sleep is illegal regardless of the policy.
	_, err := f.ctrl.Sleep(context.Background(), "alpha")
	var ise *domain.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("Sleep() on stopped service error type = %T, want *InvalidStateError", err)
	}
}

func TestSleepAbortsWhenRequestArrivesMidPause(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.seedRunning("alpha")
	f.rt.OpDelay = 100 * time.Millisecond

	var (
		st   domain.ServiceStatus
		err  error
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		st, err = f.ctrl.Sleep(context.Background(), "alpha")
	}()

	// Take a request slot while the pause is in flight, the way the wake
	// coordinator's fast path does: under the data lock only.
	time.Sleep(30 * time.Millisecond)
	f.store.Update("alpha", func(s *domain.ServiceStatus) {
		if s.State == domain.StateRunning {
			s.ActiveRequests++
		}
	})

	<-done
	if err != nil {
		t.Fatalf("Sleep() = %v, want nil (busy abort is a no-op)", err)
	}
	if st.State != domain.StateRunning {
		t.Errorf("State = %v, want running (a busy service is never slept)", st.State)
	}
	if st.ActiveRequests != 1 {
		t.Errorf("ActiveRequests = %v, want 1", st.ActiveRequests)
	}
	if f.rt.UnpauseCalls() != 1 {
		t.Errorf("UnpauseCalls = %v, want 1 (pause undone)", f.rt.UnpauseCalls())
	}
	final, _ := f.store.Snapshot("alpha")
	if final.State != domain.StateRunning {
		t.Errorf("final State = %v, want running", final.State)
	}
}

func TestSleepInvalidState(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))

	_, err := f.ctrl.Sleep(context.Background(), "alpha")
	var ise *domain.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("Sleep() on stopped service error type = %T, want *InvalidStateError", err)
	}
}

func TestSleepPauseFailureStaysRunning(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.seedRunning("alpha")
	f.rt.PauseErr = errors.New("engine busy")

	st, err := f.ctrl.Sleep(context.Background(), "alpha")
	var roe *domain.RuntimeOperationError
	if !errors.As(err, &roe) {
		t.Fatalf("Sleep() error type = %T, want *RuntimeOperationError", err)
	}
	if st.State != domain.StateRunning {
		t.Errorf("State = %v, want %v (pause failure is non-destructive)", st.State, domain.StateRunning)
	}
	if st.ErrorMessage == "" {
		t.Error("ErrorMessage should record the failure")
	}
	if got := f.recorder.Snapshot().SleepFailures; got != 1 {
		t.Errorf("SleepFailures = %v, want 1", got)
	}

	// A later attempt succeeds once the engine recovers.
	f.rt.PauseErr = nil
	st, err = f.ctrl.Sleep(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("retry Sleep() = %v, want nil", err)
	}
	if st.State != domain.StateSleeping || st.ErrorMessage != "" {
		t.Errorf("retry result = %+v, want sleeping with cleared error", st)
	}
}

func TestWakeUnpausesSleepingService(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.seedRunning("alpha")
	if _, err := f.ctrl.Sleep(context.Background(), "alpha"); err != nil {
		t.Fatalf("Sleep() = %v", err)
	}

	st, err := f.ctrl.Wake(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Wake() = %v, want nil", err)
	}
	if st.State != domain.StateRunning {
		t.Errorf("State = %v, want %v", st.State, domain.StateRunning)
	}
	if st.WakeCount != 1 {
		t.Errorf("WakeCount = %v, want 1", st.WakeCount)
	}
	if st.SleepStart != nil {
		t.Error("SleepStart should be cleared after wake")
	}
	if f.rt.UnpauseCalls() != 1 {
		t.Errorf("UnpauseCalls = %v, want 1 (fast path)", f.rt.UnpauseCalls())
	}
	if f.rt.CreateCalls() != 0 {
		t.Errorf("CreateCalls = %v, want 0 (no new container for a paused one)", f.rt.CreateCalls())
	}
}

func TestWakeFromStoppedCreatesContainer(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))

	st, err := f.ctrl.Wake(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Wake() = %v, want nil", err)
	}
	if st.State != domain.StateRunning {
		t.Errorf("State = %v, want %v", st.State, domain.StateRunning)
	}
	if st.ContainerID == "" {
		t.Error("ContainerID not set after cold wake")
	}
	if f.rt.CreateCalls() != 1 || f.rt.StartCalls() != 1 {
		t.Errorf("CreateCalls=%v StartCalls=%v, want 1 and 1", f.rt.CreateCalls(), f.rt.StartCalls())
	}
}

func TestWakeIdempotentWhenRunning(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.seedRunning("alpha")

	st, err := f.ctrl.Wake(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Wake() on running service = %v, want nil", err)
	}
	if st.State != domain.StateRunning {
		t.Errorf("State = %v, want running", st.State)
	}
	if st.WakeCount != 0 {
		t.Errorf("WakeCount = %v, want 0 (no-op wake does not count)", st.WakeCount)
	}
}

func TestWakeRetryExhaustionMarksError(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.rt.CreateErr = errors.New("image pull refused")

	st, err := f.ctrl.Wake(context.Background(), "alpha")
	var roe *domain.RuntimeOperationError
	if !errors.As(err, &roe) {
		t.Fatalf("Wake() error type = %T, want *RuntimeOperationError", err)
	}
	if st.State != domain.StateError {
		t.Errorf("State = %v, want %v", st.State, domain.StateError)
	}
	if f.rt.CreateCalls() != 3 {
		t.Errorf("CreateCalls = %v, want 3 (bounded retries)", f.rt.CreateCalls())
	}
	if got := f.recorder.Snapshot().WakeFailures; got != 1 {
		t.Errorf("WakeFailures = %v, want 1", got)
	}

	// A later wake is accepted from ERROR and recovers.
	f.rt.CreateErr = nil
	st, err = f.ctrl.Wake(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("recovery Wake() = %v, want nil", err)
	}
	if st.State != domain.StateRunning || st.ErrorMessage != "" {
		t.Errorf("recovery result = %+v, want running with cleared error", st)
	}
}

func TestWakeAccumulatesTotalSleep(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	id := f.seedRunning("alpha")

	past := time.Now().Add(-2 * time.Second)
	f.store.Update("alpha", func(s *domain.ServiceStatus) {
		s.State = domain.StateSleeping
		s.SleepStart = &past
	})
	if err := f.rt.Pause(context.Background(), id); err != nil {
		t.Fatalf("Pause() = %v", err)
	}

	st, err := f.ctrl.Wake(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Wake() = %v", err)
	}
	if st.TotalSleep < 2*time.Second {
		t.Errorf("TotalSleep = %v, want >= 2s", st.TotalSleep)
	}

	// Second sleep/wake cycle keeps accumulating.
	if _, err := f.ctrl.Sleep(context.Background(), "alpha"); err != nil {
		t.Fatalf("Sleep() = %v", err)
	}
	prev := st.TotalSleep
	st, err = f.ctrl.Wake(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Wake() = %v", err)
	}
	if st.TotalSleep < prev {
		t.Errorf("TotalSleep went backwards: %v -> %v", prev, st.TotalSleep)
	}
	if st.WakeCount != 2 {
		t.Errorf("WakeCount = %v, want 2", st.WakeCount)
	}
}

func TestStartDoesNotCountAsWake(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))

	st, err := f.ctrl.Start(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}
	if st.State != domain.StateRunning {
		t.Errorf("State = %v, want running", st.State)
	}
	if st.WakeCount != 0 {
		t.Errorf("WakeCount = %v, want 0 (administrative start)", st.WakeCount)
	}
	if got := f.recorder.Snapshot().WakeEvents; got != 0 {
		t.Errorf("WakeEvents = %v, want 0", got)
	}
}

func TestStartInvalidFromSleeping(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.seedRunning("alpha")
	if _, err := f.ctrl.Sleep(context.Background(), "alpha"); err != nil {
		t.Fatalf("Sleep() = %v", err)
	}

	_, err := f.ctrl.Start(context.Background(), "alpha")
	var ise *domain.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("Start() from sleeping error type = %T, want *InvalidStateError", err)
	}
}

func TestStopRunningService(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.seedRunning("alpha")

	st, err := f.ctrl.Stop(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Stop() = %v, want nil", err)
	}
	if st.State != domain.StateStopped {
		t.Errorf("State = %v, want %v", st.State, domain.StateStopped)
	}
	if st.ContainerID != "" {
		t.Error("ContainerID should be cleared after stop")
	}
	if f.rt.StopCalls() != 1 {
		t.Errorf("StopCalls = %v, want 1", f.rt.StopCalls())
	}
}

func TestStopResumesSleepingServiceFirst(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.seedRunning("alpha")
	if _, err := f.ctrl.Sleep(context.Background(), "alpha"); err != nil {
		t.Fatalf("Sleep() = %v", err)
	}

	st, err := f.ctrl.Stop(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Stop() from sleeping = %v, want nil", err)
	}
	if st.State != domain.StateStopped {
		t.Errorf("State = %v, want stopped", st.State)
	}
	if f.rt.UnpauseCalls() != 1 {
		t.Errorf("UnpauseCalls = %v, want 1 (resume before stop)", f.rt.UnpauseCalls())
	}
	if f.rt.StopCalls() != 1 {
		t.Errorf("StopCalls = %v, want 1", f.rt.StopCalls())
	}
	if st.WakeCount != 0 {
		t.Errorf("WakeCount = %v, want 0 (the resume is not a wake)", st.WakeCount)
	}
	if st.TotalSleep == 0 {
		t.Error("TotalSleep should account the time spent paused")
	}
}

func TestStopIdempotent(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))

	st, err := f.ctrl.Stop(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Stop() on stopped service = %v, want nil", err)
	}
	if st.State != domain.StateStopped {
		t.Errorf("State = %v, want stopped", st.State)
	}
	if f.rt.StopCalls() != 0 {
		t.Errorf("StopCalls = %v, want 0", f.rt.StopCalls())
	}
}

func TestResetClearsBookkeeping(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.store.Update("alpha", func(s *domain.ServiceStatus) {
		s.State = domain.StateError
		s.ErrorMessage = "stuck"
		s.WakeCount = 9
	})

	st, err := f.ctrl.Reset(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Reset() = %v, want nil", err)
	}
	if st.State != domain.StateStopped || st.ErrorMessage != "" || st.WakeCount != 0 {
		t.Errorf("Reset() result = %+v, want pristine stopped status", st)
	}
}

func TestUnknownService(t *testing.T) {
	f := newFixture(t)

	ops := map[string]func() error{
		"sleep": func() error { _, err := f.ctrl.Sleep(context.Background(), "ghost"); return err },
		"wake":  func() error { _, err := f.ctrl.Wake(context.Background(), "ghost"); return err },
		"start": func() error { _, err := f.ctrl.Start(context.Background(), "ghost"); return err },
		"stop":  func() error { _, err := f.ctrl.Stop(context.Background(), "ghost"); return err },
		"reset": func() error { _, err := f.ctrl.Reset(context.Background(), "ghost"); return err },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			var nf *domain.ServiceNotFoundError
			if !errors.As(err, &nf) {
				t.Errorf("%s error type = %T, want *ServiceNotFoundError", name, err)
			}
		})
	}
}

func TestConcurrentOpsFollowStateGraph(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	f.rt.OpDelay = 5 * time.Millisecond

	// Every transition a status may traverse. Stop on a sleeping service
	// resumes it inside the same operation, so the transient RUNNING
	// between SLEEPING and STOPPING may not be separately observable.
	edges := map[domain.State][]domain.State{
		domain.StateStopped:  {domain.StateStarting, domain.StateWaking},
		domain.StateStarting: {domain.StateRunning, domain.StateError},
		domain.StateRunning:  {domain.StateSleeping, domain.StateStopping},
		domain.StateSleeping: {domain.StateWaking, domain.StateRunning, domain.StateStopping},
		domain.StateWaking:   {domain.StateRunning, domain.StateError},
		domain.StateStopping: {domain.StateStopped, domain.StateError},
		domain.StateError:    {domain.StateStarting, domain.StateWaking},
	}
	validEdge := func(from, to domain.State) bool {
		for _, next := range edges[from] {
			if next == to {
				return true
			}
		}
		return false
	}

	// Observer: sample the state far faster than the fake's OpDelay so
	// every state that spans a runtime call is seen.
	stop := make(chan struct{})
	var observed []domain.State
	var obsWG sync.WaitGroup
	obsWG.Add(1)
	go func() {
		defer obsWG.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			st, _ := f.store.Snapshot("alpha")
			if n := len(observed); n == 0 || observed[n-1] != st.State {
				observed = append(observed, st.State)
			}
			time.Sleep(200 * time.Microsecond)
		}
	}()

	ops := []func(context.Context, string) (domain.ServiceStatus, error){
		f.ctrl.Sleep,
		f.ctrl.Wake,
		f.ctrl.Start,
		f.ctrl.Stop,
	}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 30; i++ {
				// Invalid-state rejections are expected and part of the
				// exercise; only the observed walk matters.
				_, _ = ops[rng.Intn(len(ops))](context.Background(), "alpha")
				time.Sleep(time.Duration(rng.Intn(3)) * time.Millisecond)
			}
		}(int64(w + 1))
	}
	wg.Wait()
	close(stop)
	obsWG.Wait()

	for i := 1; i < len(observed); i++ {
		if !validEdge(observed[i-1], observed[i]) {
			t.Fatalf("illegal transition %v -> %v in observed walk %v",
				observed[i-1], observed[i], observed)
		}
	}
}

type denyAll struct{ err error }

func (d denyAll) CheckAdmission(*domain.ServiceDefinition) error { return d.err }

func TestAdmissionVetoesWake(t *testing.T) {
	f := newFixture(t, sleepableDef("alpha"))
	want := errors.New("over capacity")
	f.ctrl.SetAdmission(denyAll{err: want})

	st, err := f.ctrl.Wake(context.Background(), "alpha")
	if !errors.Is(err, want) {
		t.Fatalf("Wake() = %v, want admission error", err)
	}
	if st.State != domain.StateStopped {
		t.Errorf("State = %v, want stopped (admission veto leaves state untouched)", st.State)
	}
	if f.rt.CreateCalls() != 0 {
		t.Errorf("CreateCalls = %v, want 0", f.rt.CreateCalls())
	}
}
