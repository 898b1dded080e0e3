package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
)

func testDef(name string) *domain.ServiceDefinition {
	return &domain.ServiceDefinition{
		Name:  name,
		Image: "registry.local/" + name + ":1.0",
		Port:  8080,
		SleepPolicy: domain.SleepPolicy{
			Enabled:      true,
			IdleTimeout:  10 * time.Minute,
			MinSleepTime: time.Minute,
			Priority:     domain.PriorityNormal,
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := New(logger.New("error", false))

	if err := reg.Register(testDef("alpha")); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}

	def, err := reg.Get("alpha")
	if err != nil {
		t.Fatalf("Get() = %v, want nil", err)
	}
	if def.Name != "alpha" {
		t.Errorf("Get().Name = %v, want alpha", def.Name)
	}

	_, err = reg.Get("missing")
	var nf *domain.ServiceNotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Get(missing) error type = %T, want *ServiceNotFoundError", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := New(logger.New("error", false))

	if err := reg.Register(testDef("alpha")); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}
	err := reg.Register(testDef("alpha"))
	var verr *domain.PolicyValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("duplicate Register() error type = %T, want *PolicyValidationError", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %v, want 1", reg.Count())
	}
}

func TestRegisterInvalid(t *testing.T) {
	reg := New(logger.New("error", false))

	def := testDef("bad")
	def.Image = ""
	if err := reg.Register(def); err == nil {
		t.Fatal("Register() with invalid definition should fail")
	}
	if reg.Count() != 0 {
		t.Errorf("Count() = %v, want 0", reg.Count())
	}
}

func TestListOrder(t *testing.T) {
	reg := New(logger.New("error", false))

	names := []string{"charlie", "alpha", "bravo"}
	for _, n := range names {
		if err := reg.Register(testDef(n)); err != nil {
			t.Fatalf("Register(%s) = %v", n, err)
		}
	}

	defs := reg.List()
	if len(defs) != len(names) {
		t.Fatalf("List() length = %v, want %v", len(defs), len(names))
	}
	for i, def := range defs {
		if def.Name != names[i] {
			t.Errorf("List()[%d] = %v, want %v (insertion order)", i, def.Name, names[i])
		}
	}
}
