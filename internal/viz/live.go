package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dyngraph/internal/control"
	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/physics"
	"github.com/san-kum/dyngraph/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	pixelsPerMeter  = 20.0
	forceKick       = 5.0
	forceDecay      = 0.9
	manualStep      = 0.1
)

// Session is one simulated entity as driven by the live view.
type Session struct {
	Host  *sim.Host
	Model physics.Model
	Law   control.Law
}

// Builder creates a fresh session. It is called once at start and on every
// reset.
type Builder func() (*Session, error)

type TickMsg time.Time

// Model is the bubbletea model of the live view.
type Model struct {
	build   Builder
	sess    *Session
	dt      float64
	port    string
	canvas  *Canvas
	running bool
	err     error

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int

	force    float64
	last     sim.Step
	history  []float64
	offset   float64
	showHelp bool
}

// NewModel builds the first session and prepares the view.
func NewModel(build Builder, dt float64) (Model, error) {
	sess, err := build()
	if err != nil {
		return Model{}, err
	}
	m := Model{
		build:   build,
		sess:    sess,
		dt:      dt,
		canvas:  NewCanvas(width, height),
		running: true,
		history: make([]float64, 0, historyCapacity),
	}
	if ports := physics.OutputPorts(sess.Model.Class()); len(ports) > 0 {
		m.port = ports[0]
	}
	m.params = sess.Model.Params()
	m.initialParams = make(map[string]float64, len(m.params))
	m.paramKeys = make([]string, 0, len(m.params))
	for k, v := range m.params {
		m.initialParams[k] = v
		m.paramKeys = append(m.paramKeys, k)
	}
	sort.Strings(m.paramKeys)
	m.draw()
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "left", "h":
			m.push(-1)
		case "right", "l":
			m.push(1)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	if val == 0 {
		val = 0.01 * factor
	}
	if err := m.sess.Model.SetParam(key, val); err != nil {
		m.err = err
		return
	}
	m.params[key] = val
}

// push nudges a manual law, or kicks the disturbance force for any other law.
func (m *Model) push(dir float64) {
	if man, ok := m.sess.Law.(*control.Manual); ok {
		man.Nudge(0, dir*manualStep)
		return
	}
	m.force += dir * forceKick
	m.applyForce()
}

func (m *Model) applyForce() {
	mdl := m.sess.Model
	if err := mdl.ForceInput().Set(m.force, mdl.Time()+1); err != nil {
		m.err = err
	}
}

// step advances the entity by one tick through the host.
func (m *Model) step() {
	var ports []string
	if m.port != "" {
		ports = []string{m.port}
	}
	s, err := m.sess.Host.Step(m.sess.Model.Name(), m.dt, ports)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.last = s
	if m.port != "" {
		m.history = append(m.history, s.Outputs[m.port])
		if len(m.history) > historyCapacity {
			m.history = m.history[1:]
		}
	}

	if m.force != 0 {
		m.force *= forceDecay
		if math.Abs(m.force) < 1e-3 {
			m.force = 0
		}
		m.applyForce()
	}
}

// reset rebuilds the session and reapplies the tuned parameters.
func (m *Model) reset() {
	sess, err := m.build()
	if err != nil {
		m.err = err
		return
	}
	for _, k := range m.paramKeys {
		if err := sess.Model.SetParam(k, m.params[k]); err != nil {
			m.err = err
			return
		}
	}
	if old := m.sess; old != nil {
		_ = old.Host.Remove(old.Model.Name())
	}
	m.sess = sess
	m.err = nil
	m.force = 0
	m.offset = 0
	m.last = sim.Step{}
	m.history = m.history[:0]
	m.running = true
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return StatusError.Render("ERROR")
	case !m.running:
		return StatusPaused.Render("PAUSED")
	}
	return StatusRunning.Render("RUNNING")
}

// View renders the TUI interface.
func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())
	mdl := m.sess.Model

	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s(%s)", mdl.Class(), mdl.Name())) + "\n")
	s.WriteString(m.status() + "\n\n")

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption(m.port))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", mdl.Elapsed())) + "\n")
	s.WriteString(labelStyle.Render("Stamp") + valueStyle.Render(fmt.Sprintf("%d", mdl.Time())) + "\n")
	s.WriteString(labelStyle.Render("State") + valueStyle.Render(formatVector(mdl.State())) + "\n")
	s.WriteString(labelStyle.Render("Control") + valueStyle.Render(formatVector(mdl.PreviousControl())) + "\n")
	s.WriteString(labelStyle.Render("Force") + valueStyle.Render(fmt.Sprintf("%.3f", m.force)) + "\n")
	if m.port != "" && len(m.history) > 0 {
		s.WriteString(labelStyle.Render(m.port) + valueStyle.Render(fmt.Sprintf("%.4f", m.history[len(m.history)-1])) + "\n")
	}
	if m.err != nil {
		s.WriteString(StatusError.Render(m.err.Error()) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-14s %s %.3f", k, ParamBar(m.params[k], m.initialParams[k], 10), m.params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}
	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nTab/↑↓:Tune ←→:Push ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Rebuild, keep tuning     ║
║  Q        - Quit                     ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  Left/H   - Push left                ║
║  Right/L  - Push right               ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

func formatVector(v dynamo.Vector) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.3f", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// screenX maps a horizontal position in meters to canvas sub-pixels, panning
// the view so that x stays visible.
func (m *Model) screenX(x float64) int {
	cw := float64(m.canvas.Width * 2)
	px := cw/2 + (x-m.offset)*pixelsPerMeter
	if px < cw*0.1 || px > cw*0.9 {
		m.offset = x
		px = cw / 2
	}
	return int(px)
}

func (m *Model) draw() {
	m.canvas.Clear()
	switch mdl := m.sess.Model.(type) {
	case *physics.TableCart:
		m.drawTableCart(mdl)
	case *physics.InvertedPendulum:
		m.drawPendulum(mdl)
	}
}

func (m *Model) ground() int { return m.canvas.Height*4 - 6 }

func (m *Model) drawTableCart(c *physics.TableCart) {
	groundY := m.ground()
	m.canvas.DrawLine(0, groundY, m.canvas.Width*2, groundY)

	x := c.State()[0]
	cartX := m.screenX(x)
	topY := groundY - int(c.CartHeight()*pixelsPerMeter*2)
	if topY < 4 {
		topY = 4
	}
	m.canvas.DrawLine(cartX, groundY, cartX, topY+2)
	m.canvas.DrawLine(cartX-8, topY+2, cartX+8, topY+2)
	m.canvas.FillRect(cartX, topY-1, 4, 2)

	if len(m.history) > 0 {
		z := m.history[len(m.history)-1]
		m.canvas.Marker(cartX+int((z-x)*pixelsPerMeter), groundY+1)
	}
}

func (m *Model) drawPendulum(p *physics.InvertedPendulum) {
	groundY := m.ground()
	m.canvas.DrawLine(0, groundY, m.canvas.Width*2, groundY)

	x := p.State()
	cartX := m.screenX(x[0])
	cartY := groundY - 4
	m.canvas.FillRect(cartX, cartY, 6, 2)

	poleLen := math.Min(p.PendulumLength()*pixelsPerMeter*4, float64(m.canvas.Height*4)*0.7)
	theta := x[1]
	px := cartX + int(poleLen*math.Sin(theta))
	py := cartY - int(poleLen*math.Cos(theta))
	m.canvas.DrawLine(cartX, cartY, px, py)
	m.canvas.FillRect(px, py, 1, 1)

	m.canvas.Marker(cartX, groundY+1)
}
