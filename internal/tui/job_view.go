// internal/tui/job_view.go
//
// The job workflow view: one scanned business key driven through
// loading → details ⇄ {confirm, assign} → {success | error}. All store I/O
// runs inside tea.Cmd closures; every other transition is a pure in-memory
// state change. Success auto-closes back to scanning; errors wait for an
// explicit dismissal.

package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tojem/floorscan/internal/job"
)

// successAutoClose is how long the confirmation screen stays up before the
// view closes itself and the scanner re-arms.
const successAutoClose = 2 * time.Second

type jobViewState int

const (
	jvLoading jobViewState = iota
	jvDetails
	jvConfirm
	jvAssign
	jvSuccess
	jvError
)

var (
	statusStyleInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	statusStylePaused     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	statusStyleAwaitingQC = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	statusStyleDefault    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	noticeStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	errorStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	successStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ADE80")).Bold(true)
	labelStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

func statusStyle(s job.Status) lipgloss.Style {
	switch s {
	case job.StatusInProgress:
		return statusStyleInProgress
	case job.StatusPaused:
		return statusStylePaused
	case job.StatusAwaitingQC:
		return statusStyleAwaitingQC
	default:
		return statusStyleDefault
	}
}

// transitionLabel is the human name for a workflow action.
func transitionLabel(target job.Status) string {
	switch target {
	case job.StatusInProgress:
		return "Start"
	case job.StatusPaused:
		return "Pause"
	case job.StatusAwaitingQC:
		return "Complete"
	default:
		return string(target)
	}
}

type actionKind int

const (
	actionTransition actionKind = iota
	actionAssign
	actionClose
)

type jobAction struct {
	label    string
	kind     actionKind
	target   job.Status
	disabled bool
	reason   string
}

type jobResolvedMsg struct {
	rec *job.Record
	err error
}

type updateDoneMsg struct {
	target job.Status
	err    error
}

type assignDoneMsg struct {
	err error
}

type successTickMsg struct{}

type jobView struct {
	app   *App
	jobID string

	state  jobViewState
	rec    *job.Record
	busy   bool
	errMsg string
	notice string

	selection     int
	pendingTarget job.Status

	// assignment draft, seeded from the record on every resolve
	draftDeptID    string
	draftEmpID     string
	deptSel        int
	empSel         int
	focusEmployees bool
}

func newJobView(app *App, jobID string) *jobView {
	return &jobView{app: app, jobID: strings.TrimSpace(jobID), state: jvLoading}
}

// Init resolves the scanned business key.
func (v *jobView) Init() tea.Cmd {
	return v.resolve()
}

// resolve queries the store for the scanned key. It runs on first open and
// again after a successful reassignment.
func (v *jobView) resolve() tea.Cmd {
	v.state = jvLoading
	repo := v.app.repo
	ctx := v.app.ctx
	jobID := v.jobID
	return func() tea.Msg {
		rec, err := repo.FindByJobID(ctx, jobID)
		return jobResolvedMsg{rec: rec, err: err}
	}
}

func (v *jobView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case jobResolvedMsg:
		return v.handleResolved(m)
	case updateDoneMsg:
		return v.handleUpdateDone(m)
	case assignDoneMsg:
		return v.handleAssignDone(m)
	case successTickMsg:
		return v.close()
	case tea.KeyMsg:
		return v.handleKeyMsg(m)
	default:
		return nil
	}
}

func (v *jobView) handleResolved(m jobResolvedMsg) tea.Cmd {
	if m.err != nil {
		v.state = jvError
		v.errMsg = resolveErrorMessage(m.err)
		v.app.logWarn("Resolve %q failed: %v", v.jobID, m.err)
		return nil
	}
	v.rec = m.rec
	v.draftDeptID = m.rec.DepartmentID
	v.draftEmpID = m.rec.EmployeeID
	v.state = jvDetails
	v.notice = ""
	v.app.logInfo("Resolved %q → %s (%s, %s)", v.jobID, m.rec.PartName, m.rec.Status, employeeLabel(*m.rec))
	return nil
}

func resolveErrorMessage(err error) string {
	switch {
	case errors.Is(err, job.ErrNotFound):
		return "No job found with this ID."
	case errors.Is(err, job.ErrAmbiguous):
		return "More than one job card matches this ID. Flag the duplicate cards to the office."
	default:
		return fmt.Sprintf("Could not look up the job: %v", err)
	}
}

// actions builds the menu for the details state from the current record.
func (v *jobView) actions() []jobAction {
	rec := *v.rec
	gateReason := ""
	if !rec.Assigned() {
		gateReason = "assign an employee first"
	}
	transition := func(target job.Status) jobAction {
		a := jobAction{label: transitionLabel(target), kind: actionTransition, target: target}
		if rec.Status == target {
			a.disabled = true
			a.reason = "already " + strings.ToLower(string(target))
		} else if gateReason != "" {
			a.disabled = true
			a.reason = gateReason
		}
		return a
	}
	return []jobAction{
		transition(job.StatusInProgress),
		transition(job.StatusPaused),
		transition(job.StatusAwaitingQC),
		{label: "Reassign", kind: actionAssign},
		{label: "Close", kind: actionClose},
	}
}

func (v *jobView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if v.busy {
		return nil
	}
	switch v.state {
	case jvDetails:
		return v.handleDetailsKey(msg)
	case jvConfirm:
		return v.handleConfirmKey(msg)
	case jvAssign:
		return v.handleAssignKey(msg)
	case jvError:
		switch msg.String() {
		case "enter", "esc":
			return v.close()
		}
	}
	return nil
}

func (v *jobView) handleDetailsKey(msg tea.KeyMsg) tea.Cmd {
	actions := v.actions()
	switch msg.String() {
	case "up", "k":
		if v.selection > 0 {
			v.selection--
		}
	case "down", "j":
		if v.selection < len(actions)-1 {
			v.selection++
		}
	case "esc":
		return v.close()
	case "enter":
		act := actions[v.selection]
		if act.disabled {
			v.notice = fmt.Sprintf("%s unavailable: %s", act.label, act.reason)
			return nil
		}
		switch act.kind {
		case actionTransition:
			v.requestTransition(act.target)
		case actionAssign:
			v.enterAssign()
		case actionClose:
			return v.close()
		}
	}
	return nil
}

// requestTransition moves to the confirmation prompt. Pure state change —
// nothing is written until the prompt is accepted.
func (v *jobView) requestTransition(target job.Status) {
	if !v.rec.Assigned() {
		v.notice = "Assign an employee before changing status."
		return
	}
	v.pendingTarget = target
	v.notice = ""
	v.state = jvConfirm
}

func (v *jobView) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "y":
		return v.confirmTransition()
	case "esc", "n":
		v.cancelConfirm()
	}
	return nil
}

// cancelConfirm returns to details without touching the store.
func (v *jobView) cancelConfirm() {
	v.pendingTarget = ""
	v.state = jvDetails
}

// confirmTransition derives the field set for the pending target and issues
// the single partial update.
func (v *jobView) confirmTransition() tea.Cmd {
	rec := *v.rec
	target := v.pendingTarget
	update := job.DeriveUpdate(rec, target, v.app.clock())
	repo := v.app.repo
	ctx := v.app.ctx
	v.busy = true
	v.app.logInfo("Committing %s → %s", rec.Status, target)
	return func() tea.Msg {
		err := repo.ApplyUpdate(ctx, rec.ID, update)
		return updateDoneMsg{target: target, err: err}
	}
}

func (v *jobView) handleUpdateDone(m updateDoneMsg) tea.Cmd {
	v.busy = false
	if m.err != nil {
		v.state = jvError
		v.errMsg = "Failed to update status."
		v.app.logError("Update to %s failed: %v", m.target, m.err)
		return nil
	}
	v.state = jvSuccess
	v.pendingTarget = m.target
	v.app.logInfo("Status set to %s", m.target)
	return tea.Tick(successAutoClose, func(time.Time) tea.Msg {
		return successTickMsg{}
	})
}

// enterAssign opens the assignment draft. Selections start from the
// record's current department and employee.
func (v *jobView) enterAssign() {
	v.state = jvAssign
	v.notice = ""
	v.focusEmployees = false
	v.deptSel = 0
	for i, d := range v.app.directory.Departments() {
		if d.ID == v.draftDeptID {
			v.deptSel = i
			break
		}
	}
	v.syncEmployeeSelection()
}

func (v *jobView) syncEmployeeSelection() {
	v.empSel = 0
	for i, e := range v.app.directory.EmployeesByDepartment(v.draftDeptID) {
		if e.ID == v.draftEmpID {
			v.empSel = i
			break
		}
	}
}

func (v *jobView) handleAssignKey(msg tea.KeyMsg) tea.Cmd {
	departments := v.app.directory.Departments()
	employees := v.app.directory.EmployeesByDepartment(v.draftDeptID)
	switch msg.String() {
	case "esc":
		v.state = jvDetails
		v.notice = ""
	case "tab":
		v.focusEmployees = !v.focusEmployees
	case "up", "k":
		if v.focusEmployees {
			if v.empSel > 0 {
				v.empSel--
			}
		} else if v.deptSel > 0 {
			v.deptSel--
		}
	case "down", "j":
		if v.focusEmployees {
			if v.empSel < len(employees)-1 {
				v.empSel++
			}
		} else if v.deptSel < len(departments)-1 {
			v.deptSel++
		}
	case "enter":
		if !v.focusEmployees {
			if len(departments) == 0 {
				return nil
			}
			v.selectDepartment(departments[v.deptSel].ID)
			v.focusEmployees = true
			return nil
		}
		if v.empSel < len(employees) {
			v.draftEmpID = employees[v.empSel].ID
		}
		return v.commitAssign()
	}
	return nil
}

// selectDepartment drafts a department. Picking a different department
// always clears the drafted employee — the old pick may not belong to the
// new department.
func (v *jobView) selectDepartment(deptID string) {
	if deptID != v.draftDeptID {
		v.draftDeptID = deptID
		v.draftEmpID = ""
		v.empSel = 0
	}
}

// commitAssign validates the draft locally, then writes the employee pair
// and re-resolves the job to refresh the details view.
func (v *jobView) commitAssign() tea.Cmd {
	if v.draftEmpID == "" {
		v.notice = "Select an employee to assign."
		return nil
	}
	emp, ok := v.app.directory.EmployeeByID(v.draftEmpID)
	if !ok {
		v.notice = "Selected employee is not in the directory."
		return nil
	}
	repo := v.app.repo
	ctx := v.app.ctx
	id := v.rec.ID
	v.busy = true
	v.app.logInfo("Assigning %s to %s", emp.Name, v.jobID)
	return func() tea.Msg {
		return assignDoneMsg{err: repo.Assign(ctx, id, emp.ID, emp.Name)}
	}
}

func (v *jobView) handleAssignDone(m assignDoneMsg) tea.Cmd {
	v.busy = false
	if m.err != nil {
		v.state = jvError
		v.errMsg = "Failed to assign employee."
		v.app.logError("Assign failed: %v", m.err)
		return nil
	}
	return v.resolve()
}

// close discards this view's state and tells the shell to re-arm the
// scanner.
func (v *jobView) close() tea.Cmd {
	return func() tea.Msg { return jobClosedMsg{} }
}

func employeeLabel(rec job.Record) string {
	if rec.EmployeeName != "" {
		return rec.EmployeeName
	}
	return "Unassigned"
}

func (v *jobView) View() string {
	switch v.state {
	case jvLoading:
		return v.app.spinner.View() + " Loading job…"
	case jvError:
		return errorStyle.Render("Error: "+v.errMsg) + "\n\n" +
			dimStyle.Render("enter → dismiss and rescan")
	case jvSuccess:
		return successStyle.Render(fmt.Sprintf("Job status updated to: %s", v.pendingTarget)) + "\n\n" +
			dimStyle.Render("returning to scanner…")
	case jvConfirm:
		return v.renderConfirm()
	case jvAssign:
		return v.renderAssign()
	default:
		return v.renderDetails()
	}
}

func (v *jobView) renderDetails() string {
	rec := *v.rec
	lines := []string{
		"Scanned Job",
		"",
		fmt.Sprintf("%s %s", labelStyle.Render("Job:"), rec.JobID),
		fmt.Sprintf("%s %s", labelStyle.Render("Part:"), rec.PartName),
		fmt.Sprintf("%s %s", labelStyle.Render("Employee:"), employeeLabel(rec)),
		fmt.Sprintf("%s %s", labelStyle.Render("Status:"), statusStyle(rec.Status).Render(string(rec.Status))),
		"",
	}
	for i, act := range v.actions() {
		indicator := " "
		if i == v.selection {
			indicator = ">"
		}
		label := act.label
		if act.disabled {
			label = dimStyle.Render(fmt.Sprintf("%s (%s)", act.label, act.reason))
		}
		lines = append(lines, fmt.Sprintf("%s %s", indicator, label))
	}
	if v.notice != "" {
		lines = append(lines, "", noticeStyle.Render(v.notice))
	}
	lines = append(lines, "", dimStyle.Render("↑/↓ select · enter → choose · esc → close"))
	return strings.Join(lines, "\n")
}

func (v *jobView) renderConfirm() string {
	label := transitionLabel(v.pendingTarget)
	target := statusStyle(v.pendingTarget).Render(string(v.pendingTarget))
	body := fmt.Sprintf("%s %s?\n\nSet %s to %s.", label, v.rec.JobID, v.rec.PartName, target)
	if v.busy {
		return body + "\n\n" + dimStyle.Render("saving…")
	}
	return body + "\n\n" + dimStyle.Render("enter → confirm    esc → back")
}

func (v *jobView) renderAssign() string {
	departments := v.app.directory.Departments()
	employees := v.app.directory.EmployeesByDepartment(v.draftDeptID)

	var deptLines []string
	for i, d := range departments {
		marker := " "
		if !v.focusEmployees && i == v.deptSel {
			marker = ">"
		}
		name := d.Name
		if d.ID == v.draftDeptID {
			name += " ·"
		}
		deptLines = append(deptLines, fmt.Sprintf("%s %s", marker, name))
	}
	if len(deptLines) == 0 {
		deptLines = []string{dimStyle.Render("no departments")}
	}

	var empLines []string
	for i, e := range employees {
		marker := " "
		if v.focusEmployees && i == v.empSel {
			marker = ">"
		}
		name := e.Name
		if e.ID == v.draftEmpID {
			name += " ·"
		}
		empLines = append(empLines, fmt.Sprintf("%s %s", marker, name))
	}
	if len(empLines) == 0 {
		empLines = []string{dimStyle.Render("no employees in this department")}
	}

	left := lipgloss.JoinVertical(lipgloss.Left, append([]string{labelStyle.Render("Department")}, deptLines...)...)
	right := lipgloss.JoinVertical(lipgloss.Left, append([]string{labelStyle.Render("Employee")}, empLines...)...)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().MarginRight(4).Render(left), right)

	lines := []string{fmt.Sprintf("Assign %s", v.rec.JobID), "", body}
	if v.notice != "" {
		lines = append(lines, "", noticeStyle.Render(v.notice))
	}
	hint := "tab → switch column · enter → pick · esc → back"
	if v.busy {
		hint = "saving…"
	}
	lines = append(lines, "", dimStyle.Render(hint))
	return strings.Join(lines, "\n")
}
