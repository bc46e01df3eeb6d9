package core

import (
	"fmt"
	"strings"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// Scoring weights.
const (
	skillMatchPoints = 10
	roleMatchBonus   = 5
)

// Assignment is one handler's standing for a task.
type Assignment struct {
	Handler Handler
	Score   int
	Capable bool
}

// Score computes how well h suits task: 10 points per task skill matching a
// handler skill, plus 5 once if any task skill appears in the handler's role.
func Score(task models.Task, h Handler) int {
	skills := skillSet(h.Skills())
	role := strings.ToLower(h.Role())

	score := 0
	bonus := false
	for _, s := range task.SkillsNeeded {
		needed := strings.ToLower(s)
		if skills[needed] {
			score += skillMatchPoints
		}
		if !bonus && strings.Contains(role, needed) {
			bonus = true
		}
	}
	if bonus {
		score += roleMatchBonus
	}
	return score
}

// SelectHandler picks the capable handler with the strictly highest score.
// Ties go to the handler registered first. If no handler can take the task
// the error wraps ErrNoSuitableHandler.
func SelectHandler(registry *HandlerRegistry, task models.Task) (Handler, int, error) {
	var (
		best      Handler
		bestScore int
	)
	for _, h := range registry.Handlers() {
		if !CanHandle(task, h) {
			continue
		}
		if s := Score(task, h); best == nil || s > bestScore {
			best, bestScore = h, s
		}
	}
	if best == nil {
		return nil, 0, fmt.Errorf("%w for task: %s", ErrNoSuitableHandler, task.Title)
	}
	return best, bestScore, nil
}

// RankHandlers returns every registered handler's score for task, in
// registration order.
func RankHandlers(registry *HandlerRegistry, task models.Task) []Assignment {
	handlers := registry.Handlers()
	out := make([]Assignment, 0, len(handlers))
	for _, h := range handlers {
		out = append(out, Assignment{
			Handler: h,
			Score:   Score(task, h),
			Capable: CanHandle(task, h),
		})
	}
	return out
}
