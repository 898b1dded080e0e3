// Package runtimetest provides an in-memory ContainerRuntime for tests.
package runtimetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/runtime"
)

type containerState struct {
	running bool
	paused  bool
}

// Fake is a concurrency-safe fake container engine. Error fields make the
// next matching call fail; call counters let tests assert how many runtime
// calls an operation actually issued.
type Fake struct {
	mu         sync.Mutex
	nextID     int
	containers map[string]*containerState

	CreateErr  error
	StartErr   error
	StopErr    error
	PauseErr   error
	UnpauseErr error
	PingErr    error

	// OpDelay is applied to every mutating call, to widen race windows
	// in coalescing and scheduler tests.
	OpDelay time.Duration

	createCalls  int
	startCalls   int
	stopCalls    int
	pauseCalls   int
	unpauseCalls int
}

func New() *Fake {
	return &Fake{containers: make(map[string]*containerState)}
}

var _ runtime.ContainerRuntime = (*Fake)(nil)

// Add seeds a container in a given state and returns its id.
func (f *Fake) Add(running, paused bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("fake-%d", f.nextID)
	f.containers[id] = &containerState{running: running, paused: paused}
	return id
}

func (f *Fake) delay() {
	if f.OpDelay > 0 {
		time.Sleep(f.OpDelay)
	}
}

func (f *Fake) Create(ctx context.Context, spec runtime.ContainerSpec) (string, error) {
	f.delay()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.nextID++
	id := fmt.Sprintf("fake-%d", f.nextID)
	f.containers[id] = &containerState{}
	return id, nil
}

func (f *Fake) Start(ctx context.Context, id string) error {
	f.delay()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.StartErr != nil {
		return f.StartErr
	}
	c, ok := f.containers[id]
	if !ok {
		return errors.New("no such container: " + id)
	}
	c.running = true
	c.paused = false
	return nil
}

func (f *Fake) Stop(ctx context.Context, id string) error {
	f.delay()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if f.StopErr != nil {
		return f.StopErr
	}
	c, ok := f.containers[id]
	if !ok {
		return errors.New("no such container: " + id)
	}
	c.running = false
	c.paused = false
	return nil
}

func (f *Fake) Pause(ctx context.Context, id string) error {
	f.delay()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	if f.PauseErr != nil {
		return f.PauseErr
	}
	c, ok := f.containers[id]
	if !ok {
		return errors.New("no such container: " + id)
	}
	if !c.running {
		return errors.New("container not running: " + id)
	}
	c.paused = true
	return nil
}

func (f *Fake) Unpause(ctx context.Context, id string) error {
	f.delay()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unpauseCalls++
	if f.UnpauseErr != nil {
		return f.UnpauseErr
	}
	c, ok := f.containers[id]
	if !ok {
		return errors.New("no such container: " + id)
	}
	if !c.paused {
		return errors.New("container not paused: " + id)
	}
	c.paused = false
	return nil
}

func (f *Fake) Inspect(ctx context.Context, id string) (runtime.ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return runtime.ContainerState{}, errors.New("no such container: " + id)
	}
	return runtime.ContainerState{Running: c.running, Paused: c.paused}, nil
}

func (f *Fake) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PingErr
}

// Call counters.

func (f *Fake) CreateCalls() int  { f.mu.Lock(); defer f.mu.Unlock(); return f.createCalls }
func (f *Fake) StartCalls() int   { f.mu.Lock(); defer f.mu.Unlock(); return f.startCalls }
func (f *Fake) StopCalls() int    { f.mu.Lock(); defer f.mu.Unlock(); return f.stopCalls }
func (f *Fake) PauseCalls() int   { f.mu.Lock(); defer f.mu.Unlock(); return f.pauseCalls }
func (f *Fake) UnpauseCalls() int { f.mu.Lock(); defer f.mu.Unlock(); return f.unpauseCalls }
