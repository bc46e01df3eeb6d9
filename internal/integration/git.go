package integration

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/maestro/pkg/models"
)

var (
	branchUnsafeChars = regexp.MustCompile(`[^a-z0-9-]`)
	prURLPattern      = regexp.MustCompile(`https?://\S+/pull/\d+`)
)

// CommandRunner runs an external command in dir and returns its combined
// output.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) (string, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w\n%s", name, strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return strings.TrimSpace(out.String()), nil
}

// GitService commits generated files on a fresh branch and opens a pull
// request with the gh CLI. Sequences are serialized because they share one
// working tree.
type GitService struct {
	cfg models.GitConfig
	run CommandRunner
	now func() time.Time

	mu sync.Mutex
}

// NewGitService creates a GitService. A nil runner uses ExecRunner.
func NewGitService(cfg models.GitConfig, run CommandRunner) *GitService {
	if run == nil {
		run = ExecRunner
	}
	if cfg.BaseBranch == "" {
		cfg.BaseBranch = "main"
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	return &GitService{cfg: cfg, run: run, now: time.Now}
}

// BranchName returns agent/<slug>-<unix> for title.
func (g *GitService) BranchName(title string) string {
	slug := strings.ReplaceAll(strings.ToLower(title), " ", "-")
	slug = branchUnsafeChars.ReplaceAllString(slug, "")
	return fmt.Sprintf("agent/%s-%d", slug, g.now().Unix())
}

// OpenPullRequest checks out the base branch, pulls, creates a branch, adds
// and commits the files, pushes and runs gh pr create. It returns the pull
// request URL printed by gh.
func (g *GitService) OpenPullRequest(ctx context.Context, req models.PullRequestRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	branch := g.BranchName(req.Title)
	steps := [][]string{
		{"git", "checkout", g.cfg.BaseBranch},
		{"git", "pull", g.cfg.Remote, g.cfg.BaseBranch},
		{"git", "checkout", "-b", branch},
	}
	if len(req.Files) == 0 {
		steps = append(steps, []string{"git", "add", "."})
	} else {
		steps = append(steps, append([]string{"git", "add", "--"}, req.Files...))
	}
	steps = append(steps,
		[]string{"git", "commit", "-m", "feat: " + req.Title},
		[]string{"git", "push", "-u", g.cfg.Remote, branch},
	)

	for _, step := range steps {
		if _, err := g.run(ctx, g.cfg.RepoPath, step[0], step[1:]...); err != nil {
			return "", fmt.Errorf("preparing pull request branch %s: %w", branch, err)
		}
	}

	out, err := g.run(ctx, g.cfg.RepoPath, "gh", "pr", "create",
		"--title", req.Title,
		"--body", req.Body,
		"--base", g.cfg.BaseBranch,
		"--head", branch,
	)
	if err != nil {
		return "", fmt.Errorf("creating pull request for %s: %w", branch, err)
	}
	if url := prURLPattern.FindString(out); url != "" {
		return url, nil
	}
	return strings.TrimSpace(out), nil
}
