// Package export publishes a project roadmap to external trackers.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

// Target names the repository to export into.
type Target struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// Validate checks that owner and repo are set.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Owner) == "" || strings.TrimSpace(t.Repo) == "" {
		return perrors.Invalid("owner and repo are required")
	}
	if strings.ContainsAny(t.Owner+t.Repo, "/ ") {
		return perrors.Invalid("owner and repo must not contain slashes or spaces")
	}
	return nil
}

// Summary reports what an export created. Existing counts milestones and
// issues found from an earlier run and reused instead of created.
type Summary struct {
	Repository string        `json:"repository"`
	Milestones int           `json:"milestones"`
	Issues     int           `json:"issues"`
	Existing   int           `json:"existing"`
	IssueByID  map[int64]int `json:"issueNumbers"`
	URL        string        `json:"url"`
}

// existing holds what the repository already has, queued by title in
// listing order. Each match is consumed so same-named tasks map to
// distinct issues.
type existing struct {
	milestones map[string][]int
	issues     map[string][]*gh.Issue
}

func (e *existing) takeMilestone(title string) (int, bool) {
	q := e.milestones[title]
	if len(q) == 0 {
		return 0, false
	}
	e.milestones[title] = q[1:]
	return q[0], true
}

func (e *existing) takeIssue(title string) (*gh.Issue, bool) {
	q := e.issues[title]
	if len(q) == 0 {
		return nil, false
	}
	e.issues[title] = q[1:]
	return q[0], true
}

const listPageSize = 100

// GitHub exports roadmaps as milestones (one per phase) and issues (one per
// task).
type GitHub struct {
	client *gh.Client
	logger zerolog.Logger
}

// Option configures the GitHub exporter.
type Option func(*GitHub)

// WithBaseURL points the client at a different API root, such as a GitHub
// Enterprise host or a test server.
func WithBaseURL(raw string) Option {
	return func(g *GitHub) {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if u, err := url.Parse(raw); err == nil {
			g.client.BaseURL = u
		}
	}
}

// NewGitHub creates an exporter authenticated with a personal or
// installation token.
func NewGitHub(token string, logger zerolog.Logger, opts ...Option) *GitHub {
	g := &GitHub{
		client: gh.NewClient(&http.Client{Timeout: 30 * time.Second}).WithAuthToken(token),
		logger: logger.With().Str("component", "export.github").Logger(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Export writes the snapshot's roadmap into target. Phases become milestones
// in roadmap order; tasks become issues labelled with difficulty and XP.
// Tasks without a phase get no milestone.
//
// Milestones and issues are matched by title against what the repository
// already holds, so running Export again after a partial failure resumes
// instead of duplicating. Matched issues are closed when their task is
// completed but are otherwise left as they are.
func (g *GitHub) Export(ctx context.Context, snap *roadmap.Snapshot, target Target) (*Summary, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	view := roadmap.BuildView(snap.Phases, snap.Tasks, snap.Dependencies)
	sum := &Summary{
		Repository: target.Owner + "/" + target.Repo,
		IssueByID:  make(map[int64]int, len(snap.Tasks)),
		URL:        fmt.Sprintf("https://github.com/%s/%s/issues", target.Owner, target.Repo),
	}
	names := make(map[int64]string, len(snap.Tasks))
	for _, t := range snap.Tasks {
		names[t.ID] = t.Name
	}
	have, err := g.load(ctx, target)
	if err != nil {
		return sum, err
	}

	for _, pv := range view.Phases {
		number, err := g.milestone(ctx, target, pv, have, sum)
		if err != nil {
			return sum, err
		}
		for _, tv := range pv.Tasks {
			if err := g.createIssue(ctx, target, tv, &number, names, have, sum); err != nil {
				return sum, err
			}
		}
	}
	for _, tv := range view.Unassigned {
		if err := g.createIssue(ctx, target, tv, nil, names, have, sum); err != nil {
			return sum, err
		}
	}

	g.logger.Info().
		Int64("project_id", snap.Project.ID).
		Str("repository", sum.Repository).
		Int("milestones", sum.Milestones).
		Int("issues", sum.Issues).
		Int("existing", sum.Existing).
		Msg("Roadmap exported")
	return sum, nil
}

// load lists every milestone and issue in the repository, open or closed.
func (g *GitHub) load(ctx context.Context, target Target) (*existing, error) {
	have := &existing{milestones: map[string][]int{}, issues: map[string][]*gh.Issue{}}

	mopts := &gh.MilestoneListOptions{State: "all", ListOptions: gh.ListOptions{PerPage: listPageSize}}
	for {
		ms, resp, err := g.client.Issues.ListMilestones(ctx, target.Owner, target.Repo, mopts)
		if err != nil {
			return nil, g.wrap("list milestones", err)
		}
		for _, m := range ms {
			have.milestones[m.GetTitle()] = append(have.milestones[m.GetTitle()], m.GetNumber())
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		mopts.Page = resp.NextPage
	}

	iopts := &gh.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: listPageSize},
	}
	for {
		issues, resp, err := g.client.Issues.ListByRepo(ctx, target.Owner, target.Repo, iopts)
		if err != nil {
			return nil, g.wrap("list issues", err)
		}
		for _, is := range issues {
			if is.IsPullRequest() {
				continue
			}
			have.issues[is.GetTitle()] = append(have.issues[is.GetTitle()], is)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		iopts.Page = resp.NextPage
	}
	return have, nil
}

func (g *GitHub) milestone(ctx context.Context, target Target, pv roadmap.PhaseView, have *existing, sum *Summary) (int, error) {
	if n, ok := have.takeMilestone(pv.Name); ok {
		sum.Existing++
		return n, nil
	}
	m, _, err := g.client.Issues.CreateMilestone(ctx, target.Owner, target.Repo, &gh.Milestone{
		Title:       gh.String(pv.Name),
		Description: gh.String(pv.Description),
	})
	if err != nil {
		return 0, g.wrap("create milestone", err)
	}
	sum.Milestones++
	return m.GetNumber(), nil
}

func (g *GitHub) createIssue(ctx context.Context, target Target, tv roadmap.TaskView, milestone *int, names map[int64]string, have *existing, sum *Summary) error {
	if is, ok := have.takeIssue(tv.Name); ok {
		if tv.Status == roadmap.StatusCompleted && is.GetState() != "closed" {
			if err := g.close(ctx, target, is.GetNumber()); err != nil {
				return err
			}
		}
		sum.Existing++
		sum.IssueByID[tv.ID] = is.GetNumber()
		return nil
	}
	labels := []string{
		"difficulty:" + string(tv.Difficulty),
		fmt.Sprintf("xp:%d", tv.XP),
	}
	req := &gh.IssueRequest{
		Title:     gh.String(tv.Name),
		Body:      gh.String(IssueBody(tv, names, sum.IssueByID)),
		Labels:    &labels,
		Milestone: milestone,
	}
	issue, _, err := g.client.Issues.Create(ctx, target.Owner, target.Repo, req)
	if err != nil {
		return g.wrap("create issue", err)
	}
	// New issues are always open; closing takes a second call.
	if tv.Status == roadmap.StatusCompleted {
		if err := g.close(ctx, target, issue.GetNumber()); err != nil {
			return err
		}
	}
	sum.Issues++
	sum.IssueByID[tv.ID] = issue.GetNumber()
	return nil
}

func (g *GitHub) close(ctx context.Context, target Target, number int) error {
	if _, _, err := g.client.Issues.Edit(ctx, target.Owner, target.Repo, number, &gh.IssueRequest{State: gh.String("closed")}); err != nil {
		return g.wrap("close issue", err)
	}
	return nil
}

// IssueBody renders the markdown body of a task's issue. Predecessors that
// were already exported are linked by issue number.
func IssueBody(tv roadmap.TaskView, names map[int64]string, issues map[int64]int) string {
	var b strings.Builder
	if tv.Description != "" {
		b.WriteString(tv.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "**XP:** %d  \n**Difficulty:** %s  \n**Estimate:** %gh\n", tv.XP, tv.Difficulty, tv.TimeEstimate)
	if len(tv.Hints) > 0 {
		b.WriteString("\n### Hints\n")
		for _, h := range tv.Hints {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	if len(tv.Tools) > 0 {
		fmt.Fprintf(&b, "\n### Tools\n%s\n", strings.Join(tv.Tools, ", "))
	}
	if len(tv.Predecessors) > 0 {
		b.WriteString("\n### Depends on\n")
		for _, id := range tv.Predecessors {
			if n, ok := issues[id]; ok {
				fmt.Fprintf(&b, "- #%d %s\n", n, names[id])
			} else {
				fmt.Fprintf(&b, "- %s\n", names[id])
			}
		}
	}
	return b.String()
}

func (g *GitHub) wrap(op string, err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		g.logger.Warn().Err(err).Str("op", op).Int("status", ghErr.Response.StatusCode).Msg("GitHub API call failed")
		return fmt.Errorf("%s: %w", op, perrors.NewAPIError("github", ghErr.Response.StatusCode, ghErr.Message))
	}
	var rlErr *gh.RateLimitError
	if errors.As(err, &rlErr) {
		return fmt.Errorf("%s: %w", op, perrors.ErrRateLimit)
	}
	g.logger.Warn().Err(err).Str("op", op).Msg("GitHub API call failed")
	return fmt.Errorf("%s: %w: %v", op, perrors.ErrUnavailable, err)
}
