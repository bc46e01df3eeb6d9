package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// Handler is a specialist the scheduler can assign tasks to. Handlers are
// built once at startup and must be safe for concurrent use.
type Handler interface {
	Role() string
	Skills() []string
	QualityStandards() map[models.QualityLevel]string
	// Execute produces the result for task, writing any artifacts under
	// outputDir. The returned status must be Completed or Failed.
	Execute(ctx context.Context, task models.Task, outputDir string) (*models.TaskResult, error)
}

// HandlerRegistry is an ordered set of handlers. Registration order is the
// tie-break order used by SelectHandler.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers []Handler
	byRole   map[string]Handler
}

// NewHandlerRegistry creates a registry holding the given handlers in order.
func NewHandlerRegistry(handlers ...Handler) (*HandlerRegistry, error) {
	r := &HandlerRegistry{byRole: make(map[string]Handler)}
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a handler. Roles are unique, compared case-insensitively.
func (r *HandlerRegistry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("registering handler: handler is nil")
	}
	role := strings.TrimSpace(h.Role())
	if role == "" {
		return fmt.Errorf("registering handler: role must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(role)
	if _, exists := r.byRole[key]; exists {
		return fmt.Errorf("registering handler: role %q already registered", role)
	}
	r.byRole[key] = h
	r.handlers = append(r.handlers, h)
	return nil
}

// Handlers returns the registered handlers in registration order.
func (r *HandlerRegistry) Handlers() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Lookup returns the handler registered under role.
func (r *HandlerRegistry) Lookup(role string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byRole[strings.ToLower(strings.TrimSpace(role))]
	return h, ok
}

// Len returns the number of registered handlers.
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// CanHandle reports whether the task's skills intersect the handler's skills,
// comparing tags case-insensitively.
func CanHandle(task models.Task, h Handler) bool {
	skills := skillSet(h.Skills())
	for _, s := range task.SkillsNeeded {
		if skills[strings.ToLower(s)] {
			return true
		}
	}
	return false
}

func skillSet(skills []string) map[string]bool {
	set := make(map[string]bool, len(skills))
	for _, s := range skills {
		set[strings.ToLower(s)] = true
	}
	return set
}
