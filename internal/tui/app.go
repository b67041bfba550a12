// internal/tui/app.go
//
// The session shell for a scanning station. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The shell owns the startup sequence (sign in, load the directory cache),
// the arm/disarm scan lifecycle, and hands each scanned code to a jobView.
// The scan session stays disarmed while a job is open, so at most one job
// is ever under review.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tojem/floorscan/internal/auth"
	"github.com/tojem/floorscan/internal/config"
	"github.com/tojem/floorscan/internal/directory"
	"github.com/tojem/floorscan/internal/job"
	"github.com/tojem/floorscan/internal/logbook"
	"github.com/tojem/floorscan/internal/scan"
	"github.com/tojem/floorscan/internal/wakelock"
)

// appState represents which "screen" we're on
type appState int

const (
	stateStarting appState = iota // signing in + loading the directory
	stateIdle                     // ready, scanner disarmed
	stateScanning                 // scanner armed, waiting for a code
	stateJob                      // a scanned job is open in the jobView
	stateFatal                    // startup failed; terminal error screen
)

// Authenticator is the identity provider as the shell sees it.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithAuthenticator overrides the identity client.
func WithAuthenticator(a Authenticator) AppOption {
	return func(app *App) {
		if a != nil {
			app.authenticator = a
		}
	}
}

// WithLogbook attaches a logbook; without one the shell stays silent.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(app *App) { app.logbook = lb }
}

// WithWakeLock attaches the display keep-awake lock.
func WithWakeLock(lock *wakelock.Lock) AppOption {
	return func(app *App) { app.lock = lock }
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) AppOption {
	return func(app *App) {
		if clock != nil {
			app.clock = clock
		}
	}
}

type startupDoneMsg struct {
	identity  *auth.Session
	directory *directory.Cache
	err       error
}

type scanResultMsg struct {
	scanID string
	result scan.Result
}

type jobClosedMsg struct{}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	ctx           context.Context
	cfg           *config.Config
	repo          job.Repository
	dirSource     job.DirectorySource
	session       *scan.Session
	authenticator Authenticator
	logbook       *logbook.Logbook
	lock          *wakelock.Lock
	clock         func() time.Time
	spinner       spinner.Model

	state     appState
	fatalErr  error
	identity  *auth.Session
	directory *directory.Cache
	jobView   *jobView
	statusMsg string

	width  int
	height int
}

// NewApp wires the shell to its collaborators. Everything is explicit —
// there are no package-level singletons to reach for.
func NewApp(ctx context.Context, cfg *config.Config, repo job.Repository, dirSource job.DirectorySource, session *scan.Session, opts ...AppOption) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle
	app := &App{
		ctx:           ctx,
		cfg:           cfg,
		repo:          repo,
		dirSource:     dirSource,
		session:       session,
		authenticator: auth.NewClient(cfg.Secrets.AuthURL),
		clock:         time.Now,
		spinner:       sp,
		state:         stateStarting,
		statusMsg:     "Signing in…",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

func (a *App) logInfo(format string, args ...any)  { a.logbook.Info(format, args...) }
func (a *App) logWarn(format string, args ...any)  { a.logbook.Warn(format, args...) }
func (a *App) logError(format string, args ...any) { a.logbook.Error(format, args...) }

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	if a.lock != nil {
		a.lock.Acquire()
	}
	return tea.Batch(a.startup(), a.spinner.Tick)
}

// startup signs in and loads the directory cache. Either failure is fatal
// to the session; there is no automatic retry.
func (a *App) startup() tea.Cmd {
	email := a.cfg.Secrets.AuthEmail
	password := a.cfg.Secrets.AuthPassword
	return func() tea.Msg {
		identity, err := a.authenticator.SignIn(a.ctx, email, password)
		if err != nil {
			return startupDoneMsg{err: fmt.Errorf("sign in: %w", err)}
		}
		cache, err := directory.Load(a.ctx, a.dirSource)
		if err != nil {
			return startupDoneMsg{err: err}
		}
		return startupDoneMsg{identity: identity, directory: cache}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case startupDoneMsg:
		if msg.err != nil {
			a.state = stateFatal
			a.fatalErr = msg.err
			a.logError("Startup failed: %v", msg.err)
			return a, nil
		}
		a.identity = msg.identity
		a.directory = msg.directory
		a.logInfo("Session opened as %s · %d departments · wake lock %s",
			a.identity.Email, len(a.directory.Departments()), a.wakeLockLabel())
		return a.armScan()

	case scanResultMsg:
		return a.handleScanResult(msg)

	case jobClosedMsg:
		a.jobView = nil
		a.logbook.SetSession("")
		return a.armScan()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, a.quit()
		case "q":
			if a.state != stateJob {
				return a, a.quit()
			}
		case "s", "enter":
			if a.state == stateIdle {
				return a.armScan()
			}
		case "esc":
			if a.state == stateScanning {
				a.session.Disarm()
				// the pending arm resolves with a cancellation result
				return a, nil
			}
		}
	}

	if a.state == stateJob && a.jobView != nil {
		return a, a.jobView.Update(msg)
	}
	return a, nil
}

func (a *App) quit() tea.Cmd {
	a.session.Disarm()
	if a.lock != nil {
		a.lock.Release()
	}
	a.logInfo("Session closed")
	return tea.Quit
}

// armScan transitions to scanning and waits for the session's one-shot
// result. Each arm gets a fresh scan id so log lines correlate.
func (a *App) armScan() (tea.Model, tea.Cmd) {
	scanID := shortID()
	results, err := a.session.Arm(a.ctx)
	if err != nil {
		if errors.Is(err, scan.ErrAlreadyScanning) {
			return a, nil
		}
		a.state = stateIdle
		a.statusMsg = fmt.Sprintf("Scanner unavailable: %v · press s to retry", err)
		a.logError("Arm failed: %v", err)
		return a, nil
	}
	a.state = stateScanning
	a.statusMsg = "Scanning… point the reader at a job card"
	a.logInfo("Armed scan %s", scanID)
	return a, func() tea.Msg {
		return scanResultMsg{scanID: scanID, result: <-results}
	}
}

func (a *App) handleScanResult(msg scanResultMsg) (tea.Model, tea.Cmd) {
	res := msg.result
	switch {
	case errors.Is(res.Err, scan.ErrTimeout):
		a.state = stateIdle
		a.statusMsg = "No scan — scanner put to sleep. Press s to scan."
		a.logInfo("Scan %s timed out", msg.scanID)
		return a, nil
	case res.Err != nil:
		// cancellation from esc or shutdown; stay idle quietly
		if a.state == stateScanning {
			a.state = stateIdle
			a.statusMsg = "Scanner stopped. Press s to scan."
		}
		return a, nil
	}
	a.logbook.SetSession(msg.scanID)
	a.logInfo("Scanned %q", res.Code)
	a.state = stateJob
	a.statusMsg = ""
	a.jobView = newJobView(a, res.Code)
	return a, a.jobView.Init()
}

func (a *App) wakeLockLabel() string {
	if a.lock != nil && a.lock.Held() {
		return "held"
	}
	return "unavailable"
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7DD3FC")).
			MarginBottom(1)
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
	fatalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

// View renders the current state to a string.
func (a *App) View() string {
	header := headerStyle.Render("⬡ TOJEM WORKSHOP SCANNER")

	var content string
	switch a.state {
	case stateStarting:
		content = a.spinner.View() + " Signing in and loading the directory…"
	case stateFatal:
		content = fatalStyle.Render(fmt.Sprintf("Session failed to start:\n%v", a.fatalErr)) +
			"\n\n" + dimStyle.Render("Fix the configuration and relaunch. q quits.")
	case stateIdle:
		content = "Scanner idle.\n\n" + dimStyle.Render("s → arm scanner    q → quit")
	case stateScanning:
		content = "Waiting for a job card…\n\n" + dimStyle.Render("esc → stop scanning    q → quit")
	case stateJob:
		if a.jobView != nil {
			content = a.jobView.View()
		}
	}

	width := a.width
	if width <= 0 {
		width = 80
	}
	body := boxStyle.Width(max(40, width-4)).Render(content)

	sections := []string{header, body}
	if panel := a.renderLogPanel(); panel != "" {
		sections = append(sections, panel)
	}
	if a.statusMsg != "" {
		sections = append(sections, footerStyle.Render(a.statusMsg))
	}
	return strings.Join(sections, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render("LOG")
	body := dimStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Render(head + "\n" + body)
}

// shortID yields a compact correlation id for one scan session.
func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
