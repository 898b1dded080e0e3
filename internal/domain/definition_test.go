package domain

import (
	"errors"
	"testing"
	"time"
)

func validDefinition() ServiceDefinition {
	return ServiceDefinition{
		Name:  "worker",
		Image: "registry.local/worker:1.0",
		Port:  8080,
		Resources: ResourceLimits{
			CPUs:     1.0,
			MemoryMB: 512,
		},
		SleepPolicy: SleepPolicy{
			Enabled:             true,
			IdleTimeout:         10 * time.Minute,
			MinSleepTime:        2 * time.Minute,
			MemoryReservationMB: 64,
			Priority:            PriorityNormal,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServiceDefinition)
		wantErr bool
	}{
		{
			name:    "valid definition",
			mutate:  func(d *ServiceDefinition) {},
			wantErr: false,
		},
		{
			name:    "missing name",
			mutate:  func(d *ServiceDefinition) { d.Name = "" },
			wantErr: true,
		},
		{
			name:    "missing image",
			mutate:  func(d *ServiceDefinition) { d.Image = "" },
			wantErr: true,
		},
		{
			name:    "port zero",
			mutate:  func(d *ServiceDefinition) { d.Port = 0 },
			wantErr: true,
		},
		{
			name:    "port out of range",
			mutate:  func(d *ServiceDefinition) { d.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "negative cpus",
			mutate:  func(d *ServiceDefinition) { d.Resources.CPUs = -1 },
			wantErr: true,
		},
		{
			name:    "unknown priority",
			mutate:  func(d *ServiceDefinition) { d.SleepPolicy.Priority = "urgent" },
			wantErr: true,
		},
		{
			name:    "idle timeout not greater than min sleep time",
			mutate:  func(d *ServiceDefinition) { d.SleepPolicy.IdleTimeout = d.SleepPolicy.MinSleepTime },
			wantErr: true,
		},
		{
			name:    "negative min sleep time",
			mutate:  func(d *ServiceDefinition) { d.SleepPolicy.MinSleepTime = -time.Second },
			wantErr: true,
		},
		{
			name:    "reservation exceeds memory limit",
			mutate:  func(d *ServiceDefinition) { d.SleepPolicy.MemoryReservationMB = 1024 },
			wantErr: true,
		},
		{
			name: "disabled policy skips duration invariants",
			mutate: func(d *ServiceDefinition) {
				d.SleepPolicy.Enabled = false
				d.SleepPolicy.IdleTimeout = 0
				d.SleepPolicy.MinSleepTime = 0
			},
			wantErr: false,
		},
		{
			name: "unlimited memory allows any reservation",
			mutate: func(d *ServiceDefinition) {
				d.Resources.MemoryMB = 0
				d.SleepPolicy.MemoryReservationMB = 4096
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def)

			err := def.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				var verr *PolicyValidationError
				if !errors.As(err, &verr) {
					t.Errorf("Validate() error type = %T, want *PolicyValidationError", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestStatePredicates(t *testing.T) {
	tests := []struct {
		state    State
		canSleep bool
		canWake  bool
		canStart bool
		canStop  bool
	}{
		{StateStopped, false, true, true, false},
		{StateStarting, false, false, false, false},
		{StateRunning, true, false, false, true},
		{StateSleeping, false, true, false, true},
		{StateWaking, false, false, false, false},
		{StateStopping, false, false, false, false},
		{StateError, false, true, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.CanSleep(); got != tt.canSleep {
				t.Errorf("CanSleep() = %v, want %v", got, tt.canSleep)
			}
			if got := tt.state.CanWake(); got != tt.canWake {
				t.Errorf("CanWake() = %v, want %v", got, tt.canWake)
			}
			if got := tt.state.CanStart(); got != tt.canStart {
				t.Errorf("CanStart() = %v, want %v", got, tt.canStart)
			}
			if got := tt.state.CanStop(); got != tt.canStop {
				t.Errorf("CanStop() = %v, want %v", got, tt.canStop)
			}
		})
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityLow.Rank() >= PriorityNormal.Rank() {
		t.Error("low priority must rank before normal")
	}
	if PriorityNormal.Rank() >= PriorityHigh.Rank() {
		t.Error("normal priority must rank before high")
	}
	if Priority("bogus").Rank() != PriorityNormal.Rank() {
		t.Error("unknown priority should rank as normal")
	}
}
