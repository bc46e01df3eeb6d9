package core

import (
	"errors"
	"testing"

	"github.com/valter-silva-au/maestro/pkg/models"
)

func TestScore(t *testing.T) {
	swift := newFakeHandler("Swift Developer", "swift", "swiftui", "ios", "xcode")

	tests := []struct {
		name   string
		skills []string
		want   int
	}{
		{"one skill plus role bonus", []string{"swift"}, 15},
		{"two skills plus role bonus", []string{"swift", "ios"}, 25},
		{"skill without role bonus", []string{"xcode"}, 10},
		{"role bonus only", []string{"developer"}, 5},
		{"bonus counted once", []string{"swift", "developer"}, 15},
		{"case-insensitive", []string{"SwiftUI", "IOS"}, 20},
		{"case-insensitive with role bonus", []string{"SWIFT", "IOS"}, 25},
		{"no match", []string{"kotlin"}, 0},
		{"no skills", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(models.Task{SkillsNeeded: tt.skills}, swift); got != tt.want {
				t.Errorf("Score(%v) = %d, want %d", tt.skills, got, tt.want)
			}
		})
	}
}

func TestSelectHandler_HighestScoreWins(t *testing.T) {
	market := newFakeHandler("Market Research Specialist", "market research", "competitive analysis")
	strategy := newFakeHandler("Strategy Specialist", "strategic thinking", "market research", "competitive analysis", "business strategy")
	r := mustRegistry(t, market, strategy)

	task := models.Task{SkillsNeeded: []string{"market research", "competitive analysis", "strategic thinking"}}
	h, score, err := SelectHandler(r, task)
	if err != nil {
		t.Fatalf("SelectHandler: %v", err)
	}
	if h != strategy || score != 30 {
		t.Errorf("selected %s with %d, want Strategy Specialist with 30", h.Role(), score)
	}
}

func TestSelectHandler_TieGoesToFirstRegistered(t *testing.T) {
	first := newFakeHandler("Alpha", "go")
	second := newFakeHandler("Beta", "go")

	h, score, err := SelectHandler(mustRegistry(t, first, second), models.Task{SkillsNeeded: []string{"go"}})
	if err != nil {
		t.Fatal(err)
	}
	if h != first || score != 10 {
		t.Errorf("selected %s (%d), want Alpha (10)", h.Role(), score)
	}
}

func TestSelectHandler_RoleBonusBreaksTie(t *testing.T) {
	generalist := newFakeHandler("Generalist", "swift")
	swift := newFakeHandler("Swift Developer", "swift")

	h, _, err := SelectHandler(mustRegistry(t, generalist, swift), models.Task{SkillsNeeded: []string{"swift"}})
	if err != nil {
		t.Fatal(err)
	}
	if h != swift {
		t.Errorf("selected %s, want Swift Developer", h.Role())
	}
}

func TestSelectHandler_RoleBonusAloneIsNotCapable(t *testing.T) {
	// "developer" appears in the role but not in the skills.
	r := mustRegistry(t, newFakeHandler("Swift Developer", "swift"))

	_, _, err := SelectHandler(r, models.Task{Title: "Hire", SkillsNeeded: []string{"developer"}})
	if !errors.Is(err, ErrNoSuitableHandler) {
		t.Errorf("expected ErrNoSuitableHandler, got %v", err)
	}
}

func TestSelectHandler_EmptyRegistry(t *testing.T) {
	_, score, err := SelectHandler(mustRegistry(t), models.Task{Title: "Anything", SkillsNeeded: []string{"general"}})
	if !errors.Is(err, ErrNoSuitableHandler) {
		t.Errorf("expected ErrNoSuitableHandler, got %v", err)
	}
	if score != 0 {
		t.Errorf("score = %d, want 0", score)
	}
}

func TestSelectHandler_Builtins(t *testing.T) {
	llm := &fakeLLM{response: "ok"}
	r := mustRegistry(t)
	for _, def := range BuiltinHandlerDefinitions() {
		h, err := NewSpecialistHandler(def, llm)
		if err != nil {
			t.Fatal(err)
		}
		if err := r.Register(h); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		skills []string
		want   string
	}{
		{[]string{"swiftui", "uikit"}, "Swift Developer"},
		{DemoTask().SkillsNeeded, "Market Research Specialist"},
		{[]string{"technical writing", "markdown"}, "Documentation Specialist"},
	}
	for _, tt := range tests {
		h, _, err := SelectHandler(r, models.Task{SkillsNeeded: tt.skills})
		if err != nil {
			t.Errorf("SelectHandler(%v): %v", tt.skills, err)
			continue
		}
		if h.Role() != tt.want {
			t.Errorf("SelectHandler(%v) = %s, want %s", tt.skills, h.Role(), tt.want)
		}
	}

	if _, _, err := SelectHandler(r, models.Task{SkillsNeeded: []string{"blockchain"}}); !errors.Is(err, ErrNoSuitableHandler) {
		t.Errorf("blockchain should have no handler, got %v", err)
	}
}

func TestRankHandlers(t *testing.T) {
	r := mustRegistry(t,
		newFakeHandler("Swift Developer", "swift"),
		newFakeHandler("QA Review Specialist", "testing"),
	)

	ranked := RankHandlers(r, models.Task{SkillsNeeded: []string{"swift"}})
	if len(ranked) != 2 {
		t.Fatalf("got %d assignments, want 2", len(ranked))
	}
	if ranked[0].Handler.Role() != "Swift Developer" || ranked[0].Score != 15 || !ranked[0].Capable {
		t.Errorf("ranked[0] = %+v", ranked[0])
	}
	if ranked[1].Score != 0 || ranked[1].Capable {
		t.Errorf("ranked[1] = %+v", ranked[1])
	}
}
