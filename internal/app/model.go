// Package app implements the kiosk controller: a bubbletea model that arms
// the capture loop, keeps at most one verification in flight and stops for
// good once a terminal outcome arrives.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jwulff/attend/internal/attendance"
	"github.com/jwulff/attend/internal/logging"
	"github.com/jwulff/attend/internal/verify"
)

// DefaultInterval is the capture cadence when none is configured.
const DefaultInterval = 1800 * time.Millisecond

const statusTimeout = 5 * time.Second

// Exit codes reported by the run command.
const (
	ExitSuccess = 0
	ExitAborted = 1
	ExitFailed  = 2
)

// Phase is the controller state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseArmed
	PhaseInFlight
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseArmed:
		return "armed"
	case PhaseInFlight:
		return "in_flight"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}

// Result is what the controller settled on in PhaseDone.
type Result struct {
	Success bool
	Record  attendance.Record
	Reason  string
}

// Verifier submits frames to the attendance service.
type Verifier interface {
	Verify(ctx context.Context, frame attendance.Frame, userID string) attendance.Outcome
	Status(ctx context.Context, userID string) (verify.StatusResponse, error)
}

// Recorder persists successful results.
type Recorder interface {
	SaveRecord(rec attendance.Record) error
}

// Options wires the controller's collaborators.
type Options struct {
	Session    attendance.Session
	Source     Source
	Verifier   Verifier
	Scheduler  Scheduler
	Lock       Lock
	Recorder   Recorder
	Dispatcher *Dispatcher
	Interval   time.Duration
	// WaitForCamera blocks until the camera is present. Nil means ready.
	WaitForCamera func(ctx context.Context) error
	// Headless dismisses the result automatically.
	Headless bool
	Logger   *slog.Logger
	Now      func() time.Time
}

// Model is the root bubbletea model for the kiosk.
type Model struct {
	session       attendance.Session
	source        Source
	verifier      Verifier
	recorder      Recorder
	waitForCamera func(ctx context.Context) error
	headless      bool
	logger        *slog.Logger
	now           func() time.Time
	loop          *loop

	phase     Phase
	result    Result
	last      Result
	mode      attendance.Mode
	fatal     string
	requestID string
	attempts  int
	dropped   int
	lastTick  time.Time
	aborted   bool
	closed    bool

	saving         bool
	dismissPending bool
	saveErr        string

	width  int
	height int
}

// New creates a controller in PhaseIdle.
func New(opts Options) Model {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.NewComponentLogger(opts.Logger, "controller").
		With(logging.String(logging.FieldUserID, opts.Session.UserID()))

	return Model{
		session:       opts.Session,
		source:        opts.Source,
		verifier:      opts.Verifier,
		recorder:      opts.Recorder,
		waitForCamera: opts.WaitForCamera,
		headless:      opts.Headless,
		logger:        logger,
		now:           now,
		loop:          newLoop(opts.Scheduler, opts.Lock, opts.Dispatcher, interval),
	}
}

// Phase returns the current controller state.
func (m Model) Phase() Phase { return m.phase }

// Result returns the terminal result. It is meaningful once PhaseDone was reached.
func (m Model) Result() Result { return m.result }

// LastResult returns the current terminal result, or the one most recently
// dismissed.
func (m Model) LastResult() Result {
	if m.phase == PhaseDone {
		return m.result
	}
	return m.last
}

// Mode returns the check-in/check-out framing.
func (m Model) Mode() attendance.Mode { return m.mode }

// Fatal returns the error that kept the controller from arming, if any.
func (m Model) Fatal() string { return m.fatal }

// Attempts returns how many captures were issued.
func (m Model) Attempts() int { return m.attempts }

// Dropped returns how many ticks arrived while a verification was in flight.
func (m Model) Dropped() int { return m.dropped }

// ExitCode maps the final state to a process exit status.
func (m Model) ExitCode() int {
	switch {
	case m.fatal != "":
		return ExitFailed
	case m.LastResult().Success:
		return ExitSuccess
	case m.LastResult().Reason != "":
		return ExitFailed
	default:
		return ExitAborted
	}
}

// Close stops the loop and frees the camera. The run command calls it after
// the program exits however it ended.
func (m Model) Close() {
	_ = m.loop.shutdown()
}

// Init queries the attendance status and waits for the camera.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.statusCmd(), m.waitCameraCmd())
}

// statusCmd fetches the framing label. It never affects the loop.
func (m Model) statusCmd() tea.Cmd {
	if m.verifier == nil {
		return nil
	}
	verifier, userID, root := m.verifier, m.session.UserID(), m.loop.root
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(root, statusTimeout)
		defer cancel()
		status, err := verifier.Status(ctx, userID)
		if err != nil {
			return StatusMsg{Err: err}
		}
		return StatusMsg{Mode: status.Mode()}
	}
}

// waitCameraCmd reports CameraReadyMsg once the device is present.
func (m Model) waitCameraCmd() tea.Cmd {
	wait, root := m.waitForCamera, m.loop.root
	return func() tea.Msg {
		if wait != nil {
			if err := wait(root); err != nil {
				return CameraErrorMsg{Err: err}
			}
		}
		return CameraReadyMsg{}
	}
}

// verifyCmd captures one frame and submits it. Capture failures become
// CaptureFailed so every attempt yields exactly one OutcomeMsg.
func (m Model) verifyCmd(epoch uint64, requestID string) tea.Cmd {
	ctx, source, verifier, userID := m.loop.ctx, m.source, m.verifier, m.session.UserID()
	return func() tea.Msg {
		frame, err := source.Capture(ctx)
		if err != nil {
			return OutcomeMsg{Epoch: epoch, RequestID: requestID, Outcome: attendance.CaptureFailed{Cause: err}}
		}
		outcome := verifier.Verify(verify.WithRequestID(ctx, requestID), frame, userID)
		return OutcomeMsg{Epoch: epoch, RequestID: requestID, Outcome: outcome}
	}
}

func saveRecordCmd(recorder Recorder, rec attendance.Record) tea.Cmd {
	return func() tea.Msg {
		return recordSavedMsg{err: recorder.SaveRecord(rec)}
	}
}

func dismissCmd() tea.Msg { return DismissMsg{} }

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case CameraReadyMsg:
		return m.arm()

	case CameraErrorMsg:
		if m.phase != PhaseIdle || m.closed || errors.Is(msg.Err, context.Canceled) {
			return m, nil
		}
		return m.fail(msg.Err)

	case StatusMsg:
		if msg.Err != nil {
			m.logger.Warn("attendance status unavailable",
				logging.Error(msg.Err),
				logging.String(logging.FieldEventType, "status_failed"),
			)
			return m, nil
		}
		m.mode = msg.Mode
		return m, nil

	case TickMsg:
		return m.handleTick(msg)

	case OutcomeMsg:
		return m.handleOutcome(msg)

	case recordSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.saveErr = msg.err.Error()
			m.logger.Warn("attendance record not saved",
				logging.Error(msg.err),
				logging.String(logging.FieldRequestID, m.result.Record.ID),
			)
		}
		if m.dismissPending {
			m.dismissPending = false
			return m.dismiss()
		}
		return m, nil

	case DismissMsg:
		return m.dismiss()
	}

	return m, nil
}

// arm moves Idle to Armed. A permission failure is fatal and leaves the
// controller Idle without starting the scheduler.
func (m Model) arm() (tea.Model, tea.Cmd) {
	if m.phase != PhaseIdle || m.closed || m.fatal != "" {
		return m, nil
	}
	if err := m.source.Probe(); err != nil {
		if errors.Is(err, attendance.ErrPermissionDenied) {
			return m.fail(err)
		}
		m.logger.Warn("camera probe failed, arming anyway",
			logging.Error(err),
			logging.String(logging.FieldEventType, "probe_failed"),
		)
	}

	epoch, err := m.loop.acquire()
	if err != nil {
		return m.fail(err)
	}
	m.phase = PhaseArmed
	m.aborted = false
	m.logger.Info("capture loop armed",
		logging.String(logging.FieldEventType, "armed"),
		logging.Duration("interval", m.loop.interval),
		logging.Any("epoch", epoch),
	)
	return m, nil
}

func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.fatal = err.Error()
	m.logger.Error("controller cannot start",
		logging.Error(err),
		logging.String(logging.FieldEventType, "fatal"),
	)
	if m.headless {
		m.closed = true
		_ = m.loop.shutdown()
		return m, tea.Quit
	}
	return m, nil
}

// handleTick issues a capture from Armed. Ticks while InFlight are dropped;
// ticks from a released arming are ignored.
func (m Model) handleTick(msg TickMsg) (tea.Model, tea.Cmd) {
	if !m.loop.held || msg.Epoch != m.loop.epoch {
		return m, nil
	}
	switch m.phase {
	case PhaseInFlight:
		m.dropped++
		m.logger.Debug("tick dropped, verification in flight",
			logging.String(logging.FieldRequestID, m.requestID),
		)
		return m, nil
	case PhaseArmed:
		m.phase = PhaseInFlight
		m.attempts++
		m.lastTick = msg.At
		m.requestID = uuid.NewString()
		m.logger.Debug("capture issued",
			logging.String(logging.FieldRequestID, m.requestID),
			logging.Int("attempt", m.attempts),
		)
		return m, m.verifyCmd(msg.Epoch, m.requestID)
	}
	return m, nil
}

func (m Model) handleOutcome(msg OutcomeMsg) (tea.Model, tea.Cmd) {
	if m.phase != PhaseInFlight || msg.Epoch != m.loop.epoch || msg.RequestID != m.requestID {
		m.logger.Debug("stale outcome discarded",
			logging.String(logging.FieldRequestID, msg.RequestID),
			logging.String(logging.FieldPhase, m.phase.String()),
		)
		return m, nil
	}
	return m.applyOutcome(msg.Outcome)
}

// applyOutcome is total over attendance.Outcome.
func (m Model) applyOutcome(o attendance.Outcome) (tea.Model, tea.Cmd) {
	if !attendance.Terminal(o) {
		m.phase = PhaseArmed
		return m, nil
	}

	if err := m.loop.release(); err != nil {
		m.logger.Warn("camera lock release failed", logging.Error(err))
	}
	m.phase = PhaseDone

	var cmds []tea.Cmd
	if rec, ok := attendance.NewRecord(m.session, o, m.now()); ok {
		rec.ID = m.requestID
		m.result = Result{Success: true, Record: rec}
		m.logger.Info("attendance verified",
			logging.String(logging.FieldEventType, "verified"),
			logging.String(logging.FieldRequestID, m.requestID),
			logging.String("kind", string(rec.Kind)),
			logging.String("message", rec.Message),
			logging.Int("attempts", m.attempts),
		)
		if m.recorder != nil {
			m.saving = true
			cmds = append(cmds, saveRecordCmd(m.recorder, rec))
		}
	} else {
		m.result = Result{Reason: attendance.Reason(o)}
		m.logger.Warn("attendance not recorded",
			logging.String(logging.FieldEventType, "verification_failed"),
			logging.String(logging.FieldRequestID, m.requestID),
			logging.String("reason", m.result.Reason),
		)
	}

	if m.headless {
		cmds = append(cmds, dismissCmd)
	}
	switch len(cmds) {
	case 0:
		return m, nil
	case 1:
		return m, cmds[0]
	default:
		return m, tea.Sequence(cmds...)
	}
}

// dismiss acknowledges Done, resets to Idle and leaves the screen. A save
// still in progress completes first. The controller re-arms on the next
// CameraReadyMsg.
func (m Model) dismiss() (tea.Model, tea.Cmd) {
	if m.phase != PhaseDone {
		return m, nil
	}
	if m.saving {
		m.dismissPending = true
		return m, nil
	}
	if err := m.loop.release(); err != nil {
		m.logger.Warn("camera lock release failed", logging.Error(err))
	}
	m.phase = PhaseIdle
	m.last = m.result
	m.result = Result{}
	m.requestID = ""
	m.saveErr = ""
	return m, tea.Quit
}

// teardown abandons any in-flight work and quits.
func (m Model) teardown() (tea.Model, tea.Cmd) {
	if m.phase == PhaseArmed || m.phase == PhaseInFlight {
		m.aborted = true
		m.phase = PhaseIdle
		m.logger.Info("capture loop abandoned",
			logging.String(logging.FieldEventType, "aborted"),
			logging.Int("attempts", m.attempts),
		)
	}
	if err := m.loop.shutdown(); err != nil {
		m.logger.Warn("camera lock release failed", logging.Error(err))
	}
	m.closed = true
	return m, tea.Quit
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.phase == PhaseDone {
			return m.dismiss()
		}
		return m.teardown()
	case KeyEnter, KeyEsc:
		return m.dismiss()
	}
	return m, nil
}
