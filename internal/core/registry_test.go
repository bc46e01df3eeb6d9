package core

import (
	"strings"
	"sync"
	"testing"

	"github.com/valter-silva-au/maestro/pkg/models"
)

func TestNewHandlerRegistry_Order(t *testing.T) {
	r := mustRegistry(t,
		newFakeHandler("Swift Developer", "swift"),
		newFakeHandler("QA Review Specialist", "testing"),
		newFakeHandler("System Architect", "architecture"),
	)

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	var roles []string
	for _, h := range r.Handlers() {
		roles = append(roles, h.Role())
	}
	if got := strings.Join(roles, ","); got != "Swift Developer,QA Review Specialist,System Architect" {
		t.Errorf("Handlers() order = %s", got)
	}
}

func TestHandlerRegistry_RegisterErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
		errMsg  string
	}{
		{"nil handler", nil, "handler is nil"},
		{"empty role", newFakeHandler("  ", "x"), "role must not be empty"},
		{"duplicate role", newFakeHandler("Swift Developer", "ios"), "already registered"},
		{"duplicate role other case", newFakeHandler("swift developer", "ios"), "already registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRegistry(t, newFakeHandler("Swift Developer", "swift"))
			err := r.Register(tt.handler)
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Register() error = %v, want %q", err, tt.errMsg)
			}
			if r.Len() != 1 {
				t.Errorf("failed registration changed Len() to %d", r.Len())
			}
		})
	}
}

func TestNewHandlerRegistry_PropagatesError(t *testing.T) {
	if _, err := NewHandlerRegistry(newFakeHandler("A", "a"), newFakeHandler("a", "b")); err == nil {
		t.Error("expected duplicate role error")
	}
}

func TestHandlerRegistry_Lookup(t *testing.T) {
	swift := newFakeHandler("Swift Developer", "swift")
	r := mustRegistry(t, swift)

	for _, role := range []string{"Swift Developer", "swift developer", "  SWIFT DEVELOPER "} {
		h, ok := r.Lookup(role)
		if !ok || h != swift {
			t.Errorf("Lookup(%q) = %v, %v", role, h, ok)
		}
	}
	if _, ok := r.Lookup("Kotlin Developer"); ok {
		t.Error("Lookup of unknown role should fail")
	}
}

func TestHandlerRegistry_HandlersReturnsCopy(t *testing.T) {
	r := mustRegistry(t, newFakeHandler("A", "a"))
	hs := r.Handlers()
	hs[0] = newFakeHandler("B", "b")

	if r.Handlers()[0].Role() != "A" {
		t.Error("mutating Handlers() result must not affect the registry")
	}
}

func TestHandlerRegistry_ConcurrentRegister(t *testing.T) {
	r := mustRegistry(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(newFakeHandler(strings.Repeat("x", i+1), "skill"))
			_ = r.Handlers()
		}(i)
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Errorf("Len() = %d, want 50", r.Len())
	}
}

func TestCanHandle(t *testing.T) {
	h := newFakeHandler("Swift Developer", "Swift", "iOS")

	tests := []struct {
		name   string
		skills []string
		want   bool
	}{
		{"exact match", []string{"Swift"}, true},
		{"case-insensitive", []string{"ios"}, true},
		{"one of many", []string{"kotlin", "swift"}, true},
		{"no overlap", []string{"kotlin"}, false},
		{"role word only", []string{"developer"}, false},
		{"no skills", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanHandle(models.Task{SkillsNeeded: tt.skills}, h); got != tt.want {
				t.Errorf("CanHandle(%v) = %v, want %v", tt.skills, got, tt.want)
			}
		})
	}
}
