package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tojem/floorscan/internal/job"
)

func keyEnter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }
func keyEsc() tea.KeyMsg   { return tea.KeyMsg{Type: tea.KeyEsc} }
func keyDown() tea.KeyMsg  { return tea.KeyMsg{Type: tea.KeyDown} }

// openJob boots a full shell, feeds one code and returns the app with the
// job view resolved.
func openJob(t *testing.T, repo *fakeRepo, code string) (*App, *fakeRepo) {
	t.Helper()
	app, src := newTestApp(t, repo)
	app, wait := startApp(t, app)
	app = scanCode(t, app, src, wait, code)
	if app.jobView == nil {
		t.Fatalf("job view missing after scan")
	}
	return app, repo
}

func TestResolveUnknownCodeShowsErrorWithoutWrites(t *testing.T) {
	app, repo := openJob(t, &fakeRepo{}, "JOB-1234")
	view := app.jobView
	if view.state != jvError {
		t.Fatalf("expected error state, got %d", view.state)
	}
	if !strings.Contains(view.errMsg, "No job found") {
		t.Fatalf("unexpected message %q", view.errMsg)
	}
	if updates, assigns := repo.writeCounts(); updates != 0 || assigns != 0 {
		t.Fatalf("resolve failure must not write, got %d updates %d assigns", updates, assigns)
	}
}

func TestResolveAmbiguousCodeShowsErrorWithoutWrites(t *testing.T) {
	repo := &fakeRepo{records: []job.Record{
		{ID: "doc1", JobID: "JOB-9", Status: job.StatusPending},
		{ID: "doc2", JobID: "JOB-9", Status: job.StatusPending},
	}}
	app, _ := openJob(t, repo, "JOB-9")
	view := app.jobView
	if view.state != jvError {
		t.Fatalf("expected error state, got %d", view.state)
	}
	if !strings.Contains(view.errMsg, "More than one job card") {
		t.Fatalf("unexpected message %q", view.errMsg)
	}
	if updates, assigns := repo.writeCounts(); updates != 0 || assigns != 0 {
		t.Fatalf("ambiguity must never mutate, got %d updates %d assigns", updates, assigns)
	}
}

func TestErrorDismissalRearmsScanning(t *testing.T) {
	app, _ := openJob(t, &fakeRepo{}, "JOB-1234")
	cmd := app.jobView.Update(keyEnter())
	if cmd == nil {
		t.Fatalf("dismissing the error must close the view")
	}
	model, _ := app.Update(cmd())
	app = model.(*App)
	if app.state != stateScanning {
		t.Fatalf("dismissal must re-arm scanning, got state %d", app.state)
	}
}

func TestTransitionsGatedOnAssignment(t *testing.T) {
	repo := &fakeRepo{records: []job.Record{{
		ID: "doc1", JobID: "JOB-2", PartName: "Frame", Status: job.StatusPending,
	}}}
	app, _ := openJob(t, repo, "JOB-2")
	view := app.jobView

	// Start is the first action and must be disabled for an unassigned card.
	cmd := view.Update(keyEnter())
	if cmd != nil {
		t.Fatalf("gated transition must not produce I/O")
	}
	if view.state != jvDetails {
		t.Fatalf("gated transition must stay in details, got %d", view.state)
	}
	if view.notice == "" {
		t.Fatalf("expected a validation notice")
	}
	if updates, _ := repo.writeCounts(); updates != 0 {
		t.Fatalf("gated transition must not write, got %d updates", updates)
	}
}

func TestConfirmThenCancelIsPure(t *testing.T) {
	repo := &fakeRepo{records: []job.Record{{
		ID: "doc1", JobID: "JOB-3", Status: job.StatusPending,
		EmployeeID: "e1", EmployeeName: "Amy",
	}}}
	app, _ := openJob(t, repo, "JOB-3")
	view := app.jobView

	view.requestTransition(job.StatusInProgress)
	if view.state != jvConfirm || view.pendingTarget != job.StatusInProgress {
		t.Fatalf("expected confirm state for In Progress, got %d %q", view.state, view.pendingTarget)
	}
	if cmd := view.Update(keyEsc()); cmd != nil {
		t.Fatalf("cancel must not produce I/O")
	}
	if view.state != jvDetails {
		t.Fatalf("cancel must return to details, got %d", view.state)
	}
	if updates, _ := repo.writeCounts(); updates != 0 {
		t.Fatalf("request+cancel must not write, got %d updates", updates)
	}
}

func TestFirstStartStampsStartedAt(t *testing.T) {
	repo := &fakeRepo{records: []job.Record{{
		ID: "doc1", JobID: "JOB-4", Status: job.StatusPending,
		EmployeeID: "e1", EmployeeName: "Amy",
	}}}
	app, _ := openJob(t, repo, "JOB-4")
	view := app.jobView

	view.requestTransition(job.StatusInProgress)
	cmd := view.confirmTransition()
	if cmd == nil {
		t.Fatalf("confirm must issue the update")
	}
	view.Update(cmd())

	if updates, _ := repo.writeCounts(); updates != 1 {
		t.Fatalf("expected exactly one update, got %d", updates)
	}
	u := repo.updates[0]
	if u.id != "doc1" {
		t.Fatalf("update addressed %q, want doc1", u.id)
	}
	if u.update.Status != job.StatusInProgress || !u.update.SetStartedAt {
		t.Fatalf("unexpected update set %+v", u.update)
	}
	if u.update.PauseIncrementMS != 0 || u.update.SetPausedAt || u.update.SetCompletedAt {
		t.Fatalf("first start must not touch other fields: %+v", u.update)
	}
	if view.state != jvSuccess {
		t.Fatalf("expected success state, got %d", view.state)
	}
}

func TestResumeFromPausedIncrementsAccumulatorOnly(t *testing.T) {
	started := testNow.Add(-2 * time.Hour)
	paused := testNow.Add(-45 * time.Minute)
	repo := &fakeRepo{records: []job.Record{{
		ID: "doc1", JobID: "JOB-5678", Status: job.StatusPaused,
		EmployeeID: "e1", EmployeeName: "Amy",
		StartedAt: &started, PausedAt: &paused,
	}}}
	app, _ := openJob(t, repo, "JOB-5678")
	view := app.jobView

	view.requestTransition(job.StatusInProgress)
	cmd := view.confirmTransition()
	view.Update(cmd())

	u := repo.updates[0].update
	if u.SetStartedAt {
		t.Fatalf("existing StartedAt must never be restamped: %+v", u)
	}
	if want := (45 * time.Minute).Milliseconds(); u.PauseIncrementMS != want {
		t.Fatalf("expected pause increment %d, got %d", want, u.PauseIncrementMS)
	}
	if !u.ClearPausedAt {
		t.Fatalf("resume must consume the pause stamp: %+v", u)
	}
	if u.Status != job.StatusInProgress {
		t.Fatalf("unexpected target status %q", u.Status)
	}
}

func TestCompleteStampsCompletionAndAutoCloses(t *testing.T) {
	repo := &fakeRepo{records: []job.Record{{
		ID: "doc1", JobID: "JOB-6", Status: job.StatusInProgress,
		EmployeeID: "e1", EmployeeName: "Amy",
	}}}
	app, _ := openJob(t, repo, "JOB-6")
	view := app.jobView

	view.requestTransition(job.StatusAwaitingQC)
	cmd := view.confirmTransition()
	tick := view.Update(cmd())
	if tick == nil {
		t.Fatalf("success must schedule the auto-close")
	}

	u := repo.updates[0].update
	if u.Status != job.StatusAwaitingQC || !u.SetCompletedAt {
		t.Fatalf("completion must set status and stamp completed_at: %+v", u)
	}

	closeCmd := view.Update(successTickMsg{})
	if closeCmd == nil {
		t.Fatalf("auto-close tick must close the view")
	}
	model, _ := app.Update(closeCmd())
	app = model.(*App)
	if app.state != stateScanning {
		t.Fatalf("auto-close must re-arm scanning, got state %d", app.state)
	}
}

func TestUpdateFailureShowsErrorAndKeepsEffectUnapplied(t *testing.T) {
	repo := &fakeRepo{records: []job.Record{{
		ID: "doc1", JobID: "JOB-7", Status: job.StatusPending,
		EmployeeID: "e1", EmployeeName: "Amy",
	}}}
	app, _ := openJob(t, repo, "JOB-7")
	repo.updateErr = errors.New("deadline exceeded")
	view := app.jobView

	view.requestTransition(job.StatusInProgress)
	cmd := view.confirmTransition()
	view.Update(cmd())

	if view.state != jvError {
		t.Fatalf("expected error state after failed update, got %d", view.state)
	}
	if updates, _ := repo.writeCounts(); updates != 0 {
		t.Fatalf("failed update must not be recorded as applied")
	}
}

func TestCommitAssignWithoutEmployeeMakesNoCalls(t *testing.T) {
	repo := &fakeRepo{
		records:     []job.Record{{ID: "doc1", JobID: "JOB-8", Status: job.StatusPending}},
		departments: []job.Department{{ID: "d1", Name: "Fabrication"}},
	}
	app, _ := openJob(t, repo, "JOB-8")
	view := app.jobView
	view.enterAssign()
	view.draftEmpID = ""

	if cmd := view.commitAssign(); cmd != nil {
		t.Fatalf("commit without a selection must not produce I/O")
	}
	if view.notice == "" {
		t.Fatalf("expected a validation notice")
	}
	if _, assigns := repo.writeCounts(); assigns != 0 {
		t.Fatalf("expected zero assign calls, got %d", assigns)
	}
}

func TestSelectingDepartmentClearsDraftedEmployee(t *testing.T) {
	repo := &fakeRepo{
		records:     []job.Record{{ID: "doc1", JobID: "JOB-9b", Status: job.StatusPending, DepartmentID: "d1", EmployeeID: "e1", EmployeeName: "Amy"}},
		departments: []job.Department{{ID: "d1", Name: "Fabrication"}, {ID: "d2", Name: "Paint"}},
		employees: []job.Employee{
			{ID: "e1", Name: "Amy", DepartmentID: "d1"},
			{ID: "e2", Name: "Ben", DepartmentID: "d2"},
		},
	}
	app, _ := openJob(t, repo, "JOB-9b")
	view := app.jobView
	view.enterAssign()
	if view.draftEmpID != "e1" {
		t.Fatalf("draft must seed from the record, got %q", view.draftEmpID)
	}
	view.selectDepartment("d2")
	if view.draftEmpID != "" {
		t.Fatalf("picking a new department must clear the drafted employee")
	}
	// Re-picking the same department keeps the draft.
	view.draftEmpID = "e2"
	view.selectDepartment("d2")
	if view.draftEmpID != "e2" {
		t.Fatalf("re-picking the same department must keep the draft")
	}
}

func TestAssignWritesOnceAndRefetches(t *testing.T) {
	repo := &fakeRepo{
		records:     []job.Record{{ID: "doc1", JobID: "JOB-10", PartName: "Frame", Status: job.StatusPending, DepartmentID: "d1"}},
		departments: []job.Department{{ID: "d1", Name: "Fabrication"}},
		employees:   []job.Employee{{ID: "e1", Name: "Amy", DepartmentID: "d1"}},
	}
	app, _ := openJob(t, repo, "JOB-10")
	view := app.jobView
	view.enterAssign()

	// Pick the department, then the only employee; enter on the employee
	// column commits.
	view.Update(keyEnter()) // department
	cmd := view.Update(keyEnter())
	if cmd == nil {
		t.Fatalf("employee pick must commit the assignment")
	}
	resolveCmd := view.Update(cmd())
	if resolveCmd == nil {
		t.Fatalf("successful assignment must re-resolve the job")
	}
	view.Update(resolveCmd())

	if _, assigns := repo.writeCounts(); assigns != 1 {
		t.Fatalf("expected exactly one assign call, got %d", assigns)
	}
	call := repo.assigns[0]
	if call.id != "doc1" || call.employeeID != "e1" || call.employeeName != "Amy" {
		t.Fatalf("unexpected assign call %+v", call)
	}
	if view.state != jvDetails {
		t.Fatalf("expected details after re-resolve, got %d", view.state)
	}
	if view.rec.EmployeeName != "Amy" {
		t.Fatalf("re-resolve must show the new assignee, got %q", view.rec.EmployeeName)
	}
}

func TestPauseStampsPausedAt(t *testing.T) {
	started := testNow.Add(-time.Hour)
	repo := &fakeRepo{records: []job.Record{{
		ID: "doc1", JobID: "JOB-11", Status: job.StatusInProgress,
		EmployeeID: "e1", EmployeeName: "Amy", StartedAt: &started,
	}}}
	app, _ := openJob(t, repo, "JOB-11")
	view := app.jobView

	view.requestTransition(job.StatusPaused)
	cmd := view.confirmTransition()
	view.Update(cmd())

	u := repo.updates[0].update
	if u.Status != job.StatusPaused || !u.SetPausedAt {
		t.Fatalf("pause must set status and stamp paused_at: %+v", u)
	}
	if u.SetStartedAt || u.SetCompletedAt || u.PauseIncrementMS != 0 {
		t.Fatalf("pause must not touch other fields: %+v", u)
	}
}

func TestCurrentStatusActionDisabled(t *testing.T) {
	repo := &fakeRepo{records: []job.Record{{
		ID: "doc1", JobID: "JOB-12", Status: job.StatusInProgress,
		EmployeeID: "e1", EmployeeName: "Amy",
	}}}
	app, _ := openJob(t, repo, "JOB-12")
	view := app.jobView

	actions := view.actions()
	if !actions[0].disabled {
		t.Fatalf("Start must be disabled while already In Progress")
	}
	if actions[1].disabled {
		t.Fatalf("Pause must be available while In Progress")
	}

	// Enter on the disabled Start only raises a notice.
	if cmd := view.Update(keyEnter()); cmd != nil {
		t.Fatalf("disabled action must not produce I/O")
	}
	if view.notice == "" {
		t.Fatalf("expected a notice for the disabled action")
	}

	// Move to Pause and request it.
	view.Update(keyDown())
	view.Update(keyEnter())
	if view.state != jvConfirm || view.pendingTarget != job.StatusPaused {
		t.Fatalf("expected pause confirmation, got state %d target %q", view.state, view.pendingTarget)
	}
}
