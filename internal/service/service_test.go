package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/auth"
	"Mansoor88-6/pulse-tracker/internal/clock"
	"Mansoor88-6/pulse-tracker/internal/database"
	"Mansoor88-6/pulse-tracker/internal/models"
	"Mansoor88-6/pulse-tracker/internal/repository"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	clock    *fakeClock
	pulses   *PulseService
	projects *ProjectService
	repo     *repository.ProjectRepository
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func newFixture(t *testing.T, logger *zap.Logger) *fixture {
	t.Helper()
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	db, err := database.New(filepath.Join(t.TempDir(), "pulse.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clk := &fakeClock{now: at(9, 0)}
	projectRepo := repository.NewProjectRepository(db)
	var c clock.Clock = clk
	return &fixture{
		clock:    clk,
		pulses:   NewPulseService(repository.NewPulseRepository(db), projectRepo, c, PageLimits{Default: 10, Max: 100}, logger),
		projects: NewProjectService(projectRepo, c, logger),
		repo:     projectRepo,
	}
}

func (f *fixture) project(t *testing.T, userID string) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), userID, models.CreateProjectRequest{Name: "Website", HourlyRate: 60})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (f *fixture) start(t *testing.T, userID, projectID string) *models.Pulse {
	t.Helper()
	p, err := f.pulses.Start(context.Background(), userID, models.StartPulseRequest{ProjectID: projectID})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return p
}

func (f *fixture) actualMinutes(t *testing.T, userID, projectID string) int {
	t.Helper()
	p, err := f.projects.Get(context.Background(), userID, projectID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	return p.ActualMinutes
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")

	pulse := f.start(t, "u1", project.ID)
	if pulse.Status != models.PulseActive || pulse.HourlyRate != 60 || !pulse.Billable {
		t.Fatalf("unexpected started pulse: %+v", pulse)
	}

	f.clock.Set(at(9, 10))
	if _, err := f.pulses.Pause(ctx, "u1", pulse.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	f.clock.Set(at(9, 20))
	if _, err := f.pulses.Resume(ctx, "u1", pulse.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	f.clock.Set(at(10, 40))
	stopped, err := f.pulses.Stop(ctx, "u1", pulse.ID, models.StopPulseRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	if stopped.Duration != 100 || stopped.PausedDuration != 10 || stopped.ActualDuration() != 90 {
		t.Fatalf("got duration=%d paused=%d actual=%d, want 100/10/90",
			stopped.Duration, stopped.PausedDuration, stopped.ActualDuration())
	}
	if stopped.Earnings() != 100 {
		t.Fatalf("expected earnings 100, got %v", stopped.Earnings())
	}
	if got := f.actualMinutes(t, "u1", project.ID); got != 100 {
		t.Fatalf("expected project total 100, got %d", got)
	}

	active, err := f.pulses.GetActive(ctx, "u1")
	if err != nil || active != nil {
		t.Fatalf("expected no active pulse after stop, got %v, %v", active, err)
	}

	// A second stop is an illegal transition and must not credit again.
	if _, err := f.pulses.Stop(ctx, "u1", pulse.ID, models.StopPulseRequest{}); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict on second stop, got %v", err)
	}
	if got := f.actualMinutes(t, "u1", project.ID); got != 100 {
		t.Fatalf("second stop changed project total to %d", got)
	}
}

func TestStopWhilePausedEqualsResumeThenStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")
	pulse := f.start(t, "u1", project.ID)

	f.clock.Set(at(9, 30))
	if _, err := f.pulses.Pause(ctx, "u1", pulse.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	f.clock.Set(at(9, 45))
	stopped, err := f.pulses.Stop(ctx, "u1", pulse.ID, models.StopPulseRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped.Duration != 45 || stopped.PausedDuration != 15 {
		t.Fatalf("got duration=%d paused=%d, want 45/15", stopped.Duration, stopped.PausedDuration)
	}
	if stopped.PauseHistory[0].Open() {
		t.Fatal("pause entry left open after stop")
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	f := newFixture(t, nil)
	project := f.project(t, "u1")
	f.start(t, "u1", project.ID)

	_, err := f.pulses.Start(context.Background(), "u1", models.StartPulseRequest{ProjectID: project.ID})
	if !errors.Is(err, apperrors.ErrActiveSessionExists) {
		t.Fatalf("expected active session conflict, got %v", err)
	}
}

func TestConcurrentStartsAdmitOne(t *testing.T) {
	f := newFixture(t, nil)
	project := f.project(t, "u1")

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
		other     []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pulses.Start(context.Background(), "u1", models.StartPulseRequest{ProjectID: project.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrActiveSessionExists):
				conflicts++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != n-1 || len(other) != 0 {
		t.Fatalf("got %d successes, %d conflicts, other errors %v", succeeded, conflicts, other)
	}
}

func TestStartUnknownProject(t *testing.T) {
	f := newFixture(t, nil)
	other := f.project(t, "u2")

	_, err := f.pulses.Start(context.Background(), "u1", models.StartPulseRequest{ProjectID: other.ID})
	if !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for a foreign project, got %v", err)
	}
	_, err = f.pulses.Start(context.Background(), "u1", models.StartPulseRequest{})
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error without project id, got %v", err)
	}
}

func TestForeignStopIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")
	pulse := f.start(t, "u1", project.ID)

	f.clock.Set(at(10, 0))
	if _, err := f.pulses.Stop(ctx, "intruder", pulse.ID, models.StopPulseRequest{}); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err := f.pulses.Get(ctx, "u1", pulse.ID)
	if err != nil || got.Status != models.PulseActive {
		t.Fatalf("foreign stop changed the pulse: %+v %v", got, err)
	}
	if total := f.actualMinutes(t, "u1", project.ID); total != 0 {
		t.Fatalf("foreign stop credited %d minutes", total)
	}
}

func TestIllegalTransitions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")
	pulse := f.start(t, "u1", project.ID)

	if _, err := f.pulses.Resume(ctx, "u1", pulse.ID); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("resume of active pulse: expected conflict, got %v", err)
	}
	if _, err := f.pulses.Pause(ctx, "u1", pulse.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.pulses.Pause(ctx, "u1", pulse.ID); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("double pause: expected conflict, got %v", err)
	}
	if _, err := f.pulses.AddBreak(ctx, "u1", pulse.ID, models.AddBreakRequest{Duration: 0}); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("zero break: expected validation error, got %v", err)
	}
}

func TestAddBreakAndUpdate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")
	pulse := f.start(t, "u1", project.ID)

	got, err := f.pulses.AddBreak(ctx, "u1", pulse.ID, models.AddBreakRequest{Reason: "coffee", Duration: 5})
	if err != nil {
		t.Fatalf("add break: %v", err)
	}
	if got.Status != models.PulseActive || got.PausedDuration != 5 || len(got.Breaks) != 1 {
		t.Fatalf("unexpected pulse after break: %+v", got)
	}

	notes := "reviewed PRs"
	got, err = f.pulses.Update(ctx, "u1", pulse.ID, models.UpdatePulseRequest{Notes: &notes, Tags: []string{" review ", ""}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Notes != notes || len(got.Tags) != 1 || got.Tags[0] != "review" {
		t.Fatalf("unexpected pulse after update: %+v", got)
	}
	if got.Version != 3 {
		t.Fatalf("expected version 3 after two writes, got %d", got.Version)
	}
}

func TestDeletePulse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")
	pulse := f.start(t, "u1", project.ID)

	if err := f.pulses.Delete(ctx, "u1", pulse.ID); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict deleting a running pulse, got %v", err)
	}

	f.clock.Set(at(9, 30))
	if _, err := f.pulses.Stop(ctx, "u1", pulse.ID, models.StopPulseRequest{}); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := f.pulses.Delete(ctx, "u1", pulse.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if total := f.actualMinutes(t, "u1", project.ID); total != 0 {
		t.Fatalf("expected total back to 0, got %d", total)
	}
}

func TestListClampsPagination(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")

	for i := 0; i < 12; i++ {
		f.clock.Set(at(9, i*2))
		p := f.start(t, "u1", project.ID)
		f.clock.Set(at(9, i*2+1))
		if _, err := f.pulses.Stop(ctx, "u1", p.ID, models.StopPulseRequest{}); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}

	page, err := f.pulses.List(ctx, "u1", models.PulseFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Page != 1 || page.Limit != 10 || page.Total != 12 || page.TotalPages != 2 || len(page.Items) != 10 {
		t.Fatalf("unexpected default page: page=%d limit=%d total=%d pages=%d items=%d",
			page.Page, page.Limit, page.Total, page.TotalPages, len(page.Items))
	}

	page, err = f.pulses.List(ctx, "u1", models.PulseFilter{}, 2, 1000)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Limit != 100 || len(page.Items) != 0 {
		t.Fatalf("expected limit capped at 100 and an empty second page, got limit=%d items=%d", page.Limit, len(page.Items))
	}

	if _, err := f.pulses.List(ctx, "u1", models.PulseFilter{Status: "running"}, 1, 10); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestClockSkewIsClampedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, zap.New(core))
	ctx := context.Background()
	project := f.project(t, "u1")
	pulse := f.start(t, "u1", project.ID)

	f.clock.Set(at(8, 50))
	stopped, err := f.pulses.Stop(ctx, "u1", pulse.ID, models.StopPulseRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped.Duration != 0 {
		t.Fatalf("expected clamped duration 0, got %d", stopped.Duration)
	}
	if logs.FilterMessageSnippet("Clock is behind").Len() != 1 {
		t.Fatalf("expected one skew warning, got %v", logs.All())
	}
}

func TestProjectUpdateTotalsNeedsCapability(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")
	minutes := 30

	user := auth.Identity{UserID: "u1", Role: auth.RoleUser}
	if _, err := f.projects.Update(ctx, user, project.ID, models.UpdateProjectRequest{ActualMinutes: &minutes}); !apperrors.Is(err, apperrors.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	admin := auth.Identity{UserID: "u1", Role: auth.RoleAdmin}
	name := "Website v2"
	got, err := f.projects.Update(ctx, admin, project.ID, models.UpdateProjectRequest{Name: &name, ActualMinutes: &minutes})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if got.Name != name || got.ActualMinutes != 30 {
		t.Fatalf("unexpected project after update: %+v", got)
	}

	bad := "#12"
	if _, err := f.projects.Update(ctx, user, project.ID, models.UpdateProjectRequest{Color: &bad}); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error for bad color, got %v", err)
	}
}

func TestProjectStatusArchiveRestore(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")

	if _, err := f.projects.Restore(ctx, "u1", project.ID); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("restore of active project: expected conflict, got %v", err)
	}

	got, err := f.projects.UpdateStatus(ctx, "u1", project.ID, models.ProjectCompleted)
	if err != nil || got.CompletedAt == nil {
		t.Fatalf("complete: %+v %v", got, err)
	}
	got, err = f.projects.Archive(ctx, "u1", project.ID)
	if err != nil || got.Status != models.ProjectArchived || got.CompletedAt != nil {
		t.Fatalf("archive: %+v %v", got, err)
	}
	got, err = f.projects.Restore(ctx, "u1", project.ID)
	if err != nil || got.Status != models.ProjectActive {
		t.Fatalf("restore: %+v %v", got, err)
	}

	archived, err := f.projects.List(ctx, "u1", models.ProjectArchived)
	if err != nil || len(archived) != 0 {
		t.Fatalf("expected no archived projects, got %d: %v", len(archived), err)
	}
}

func TestProjectStatsAndDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")
	hours := 2.0
	if _, err := f.projects.Update(ctx, auth.Identity{UserID: "u1", Role: auth.RoleUser}, project.ID,
		models.UpdateProjectRequest{EstimatedHours: &hours}); err != nil {
		t.Fatalf("update: %v", err)
	}

	first := f.start(t, "u1", project.ID)
	f.clock.Set(at(9, 30))
	f.pulses.Stop(ctx, "u1", first.ID, models.StopPulseRequest{})
	second := f.start(t, "u1", project.ID)
	f.clock.Set(at(10, 30))
	f.pulses.Stop(ctx, "u1", second.ID, models.StopPulseRequest{})

	stats, err := f.projects.Stats(ctx, "u1", project.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSessions != 2 || stats.TotalMinutes != 90 || stats.AverageSessionMin != 45 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.CompletionPercentage != 75 || stats.TimeRemainingHours != 0.5 || stats.DeadlineStatus != models.DeadlineNone {
		t.Fatalf("unexpected derived stats: %+v", stats)
	}

	running := f.start(t, "u1", project.ID)
	if err := f.projects.Delete(ctx, "u1", project.ID); !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict deleting a project with a running session, got %v", err)
	}
	f.clock.Set(at(11, 0))
	f.pulses.Stop(ctx, "u1", running.ID, models.StopPulseRequest{})
	if err := f.projects.Delete(ctx, "u1", project.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.pulses.Get(ctx, "u1", first.ID); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("expected pulses removed with the project, got %v", err)
	}
}

func TestRecomputeTotals(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	project := f.project(t, "u1")
	pulse := f.start(t, "u1", project.ID)
	f.clock.Set(at(9, 40))
	f.pulses.Stop(ctx, "u1", pulse.ID, models.StopPulseRequest{})

	if err := f.repo.SetActualMinutes(ctx, project.ID, "u1", 5, at(9, 40)); err != nil {
		t.Fatalf("corrupt total: %v", err)
	}

	if _, err := f.projects.RecomputeTotals(ctx, auth.Identity{UserID: "u1", Role: auth.RoleUser}, false); !apperrors.Is(err, apperrors.KindForbidden) {
		t.Fatalf("user recompute: expected forbidden, got %v", err)
	}
	moderator := auth.Identity{UserID: "u1", Role: auth.RoleModerator}
	if _, err := f.projects.RecomputeTotals(ctx, moderator, true); !apperrors.Is(err, apperrors.KindForbidden) {
		t.Fatalf("moderator recompute of all users: expected forbidden, got %v", err)
	}

	changed, err := f.projects.RecomputeTotals(ctx, moderator, false)
	if err != nil || changed != 1 {
		t.Fatalf("recompute: changed=%d err=%v", changed, err)
	}
	if total := f.actualMinutes(t, "u1", project.ID); total != 40 {
		t.Fatalf("expected total 40 after recompute, got %d", total)
	}
}
