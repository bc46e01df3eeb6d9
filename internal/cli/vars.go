package cli

import (
	"github.com/valter-silva-au/maestro/internal/core"
	"github.com/valter-silva-au/maestro/internal/observability"
	"github.com/valter-silva-au/maestro/internal/storage"
	"github.com/valter-silva-au/maestro/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.Config

	Registry     *core.HandlerRegistry
	HandlerStore storage.HandlerStore
	RunHistory   storage.RunHistoryManager

	// NewScheduler builds a scheduler with the app's observers plus the
	// given extra ones, such as the TUI.
	NewScheduler func(extra ...core.RunObserver) *core.Scheduler
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
)
