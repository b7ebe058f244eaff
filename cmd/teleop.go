// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the brainstem-pm authors

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dancxjo/brainstem-pm/pkg/hostlink"
)

var teleopCmd = &cobra.Command{
	Use:   "teleop",
	Short: "Interactive TUI for driving the robot over the host link",
	Long: `Drive the robot via an interactive terminal UI.

On connect a NUL byte is sent to promote the brainstem to HOST_CONTROLLED,
then checksummed TWIST commands are streamed at a fixed cadence so the
staleness watchdog stays fed while keys are held.

Keys:
  up/down      adjust forward velocity
  left/right   adjust turn rate
  space        zero both velocities
  e            toggle emergency stop (SAFE,0 / SAFE,1)
  l            cycle the LED mask
  tab          focus the raw command line (enter sends, esc leaves)
  q, ctrl+c    quit

On reconnection the TUI replays missed telemetry with REPLAY.

Supports both serial and WebSocket host links.`,
	RunE: runTeleop,
}

func init() {
	rootCmd.AddCommand(teleopCmd)
}

// teleopConn handles connection lifecycle and reconnection.
type teleopConn struct {
	conn     Connection
	connInfo string
	mu       sync.RWMutex
	p        *tea.Program
	done     chan struct{}
}

func (tc *teleopConn) getConn() Connection {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.conn
}

func (tc *teleopConn) setConn(conn Connection, connInfo string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.conn = conn
	tc.connInfo = connInfo
}

// send writes a checksummed, newline-terminated command line.
func (tc *teleopConn) send(line string) {
	conn := tc.getConn()
	if conn == nil {
		return
	}
	conn.Write([]byte(hostlink.AppendChecksum(line) + "\n"))
}

// Messages
type teleopBatchMsg struct {
	lines []string
}
type teleopLostMsg struct{}
type teleopReconnectedMsg struct {
	connInfo string
}
type teleopTickMsg time.Time

func runTeleop(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenHostConnection()
	if err != nil {
		return err
	}

	tc := &teleopConn{
		conn:     conn,
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	m := initialTeleopModel(tc, connInfo)

	p := tea.NewProgram(m, tea.WithAltScreen())
	tc.p = p

	go tc.readerLoop()

	// Promote to HOST_CONTROLLED before the first keypress.
	conn.Write([]byte{0})

	if _, err := p.Run(); err != nil {
		close(tc.done)
		tc.getConn().Close()
		return fmt.Errorf("TUI error: %v", err)
	}

	// Leave the robot stopped and the brainstem autonomous.
	tc.send("TWIST,0.0,0.0,0")
	tc.send("PASS")

	close(tc.done)
	tc.getConn().Close()
	return nil
}

// readerLoop reads telemetry lines with automatic reconnection.
func (tc *teleopConn) readerLoop() {
	for {
		select {
		case <-tc.done:
			return
		default:
		}

		connLost := tc.readFromConnection()

		if connLost {
			tc.p.Send(teleopLostMsg{})
			if !tc.reconnect() {
				return
			}
		}
	}
}

// readFromConnection reads lines until the connection fails.
// Returns true if connection was lost, false if shutdown requested.
func (tc *teleopConn) readFromConnection() bool {
	lineChan := make(chan string, 256)
	readerDone := make(chan struct{})

	// Reader goroutine: split the byte stream into lines.
	go func() {
		defer close(readerDone)
		buf := make([]byte, 256)
		var partial []byte
		for {
			select {
			case <-tc.done:
				return
			default:
			}

			conn := tc.getConn()
			if conn == nil {
				return
			}

			n, err := conn.Read(buf)
			if err != nil {
				select {
				case <-tc.done:
					return
				default:
					if err == ErrConnectionClosed {
						return
					}
					time.Sleep(10 * time.Millisecond)
					continue
				}
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}

			for _, b := range buf[:n] {
				switch b {
				case '\n', '\r':
					if len(partial) > 0 {
						select {
						case lineChan <- string(partial):
						default:
						}
						partial = partial[:0]
					}
				default:
					partial = append(partial, b)
				}
			}
		}
	}()

	// Batch sender: push accumulated lines to the TUI at a fixed rate.
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-tc.done:
				return
			case <-readerDone:
				return
			case <-ticker.C:
				var batch teleopBatchMsg
			drainLoop:
				for {
					select {
					case l := <-lineChan:
						batch.lines = append(batch.lines, l)
					default:
						break drainLoop
					}
				}
				if len(batch.lines) > 0 {
					tc.p.Send(batch)
				}
			}
		}
	}()

	<-readerDone

	select {
	case <-tc.done:
		return false
	default:
		return true
	}
}

// reconnect attempts to reconnect with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (tc *teleopConn) reconnect() bool {
	if conn := tc.getConn(); conn != nil {
		conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-tc.done:
			return false
		case <-time.After(backoff):
		}

		conn, connInfo, err := OpenHostConnection()
		if err == nil {
			tc.setConn(conn, connInfo)
			conn.Write([]byte{0})
			tc.p.Send(teleopReconnectedMsg{connInfo: connInfo})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

type teleopModel struct {
	tc       *teleopConn
	connInfo string

	connected bool
	vx, wz    float64
	seq       int
	estop     bool
	ledMask   uint32

	state   string
	odom    string
	battery string
	lastEID uint64

	lineCount  int
	errorCount int

	log      []string
	vp       viewport.Model
	input    textinput.Model
	focused  bool
	width    int
	height   int
	quitting bool
}

const teleopMaxLog = 200

// Velocity increments per keypress.
const (
	vxStep = 0.05
	wzStep = 0.2
)

func initialTeleopModel(tc *teleopConn, connInfo string) teleopModel {
	ti := textinput.New()
	ti.Placeholder = "raw command (checksum appended automatically)"
	ti.CharLimit = 96

	vp := viewport.New(78, 10)

	return teleopModel{
		tc:        tc,
		connInfo:  connInfo,
		connected: true,
		state:     "?",
		vp:        vp,
		input:     ti,
		width:     80,
		height:    24,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		teleopTickCmd(),
		tea.EnterAltScreen,
	)
}

func teleopTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return teleopTickMsg(t)
	})
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.focused {
			switch msg.String() {
			case "enter":
				line := strings.TrimSpace(m.input.Value())
				if line != "" {
					m.tc.send(line)
					m.addLog("> " + line)
				}
				m.input.SetValue("")
				return m, nil
			case "esc", "tab":
				m.focused = false
				m.input.Blur()
				return m, nil
			case "ctrl+c":
				m.quitting = true
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			m.focused = true
			return m, m.input.Focus()
		case "up":
			m.vx += vxStep
		case "down":
			m.vx -= vxStep
		case "left":
			m.wz += wzStep
		case "right":
			m.wz -= wzStep
		case " ":
			m.vx, m.wz = 0, 0
		case "e":
			m.estop = !m.estop
			if m.estop {
				m.vx, m.wz = 0, 0
				m.tc.send("SAFE,0")
			} else {
				m.tc.send("SAFE,1")
			}
		case "l":
			m.ledMask = (m.ledMask + 1) & 0x0F
			m.tc.send(fmt.Sprintf("LED,%d", m.ledMask))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width - 4
		h := msg.Height - 12
		if h < 5 {
			h = 5
		}
		m.vp.Height = h

	case teleopTickMsg:
		// Stream TWIST every tick so the staleness watchdog stays fed.
		if m.connected && !m.estop {
			m.seq++
			m.tc.send(fmt.Sprintf("TWIST,%.3f,%.3f,%d", m.vx, m.wz, m.seq))
		}
		return m, teleopTickCmd()

	case teleopLostMsg:
		m.connected = false
		m.addLog("connection lost, reconnecting...")

	case teleopReconnectedMsg:
		m.connected = true
		m.connInfo = msg.connInfo
		m.addLog("reconnected: " + msg.connInfo)
		// Recover telemetry the link outage swallowed.
		if m.lastEID > 0 {
			m.tc.send(fmt.Sprintf("REPLAY,%d", m.lastEID))
		}
		if m.estop {
			m.tc.send("SAFE,0")
		}

	case teleopBatchMsg:
		for _, line := range msg.lines {
			m.applyLine(line)
		}
		m.vp.SetContent(strings.Join(m.log, "\n"))
		m.vp.GotoBottom()
	}

	return m, nil
}

// applyLine folds one telemetry line into the displayed state.
func (m *teleopModel) applyLine(line string) {
	m.lineCount++

	if idx := strings.LastIndex(line, ",eid="); idx >= 0 {
		if eid, err := strconv.ParseUint(line[idx+5:], 10, 64); err == nil && eid > m.lastEID {
			m.lastEID = eid
		}
	}

	verb := line
	if i := strings.IndexByte(line, ','); i >= 0 {
		verb = line[:i]
	}

	switch verb {
	case "STATE":
		fields := strings.Split(line, ",")
		if len(fields) >= 2 {
			m.state = fields[1]
		}
		m.addLog(line)
	case "ODOM":
		m.odom = line
	case "BAT":
		m.battery = line
	case "TIME", "PONG":
		// Cadenced noise, keep it out of the log.
	case "ERR":
		m.errorCount++
		m.addLog(line)
	case "ACK":
		if !strings.HasPrefix(line, "ACK,TWIST") {
			m.addLog(line)
		}
	default:
		m.addLog(line)
	}
}

func (m *teleopModel) addLog(line string) {
	stamp := time.Now().Format("15:04:05.000")
	m.log = append(m.log, stamp+" "+line)
	if len(m.log) > teleopMaxLog {
		m.log = m.log[len(m.log)-teleopMaxLog:]
	}
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Stopping...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("BRAINSTEM - TELEOP"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | arrows drive, space stops, e estop, tab raw input, q quits", m.connInfo)))
	s.WriteString("\n\n")

	if !m.connected {
		s.WriteString(errorStyle.Render("✗ Disconnected, reconnecting..."))
		s.WriteString("\n\n")
	}

	status := strings.Builder{}
	status.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("State:"), valueStyle.Render(m.state),
		labelStyle.Render("Twist:"), valueStyle.Render(fmt.Sprintf("vx=%.2f wz=%.2f", m.vx, m.wz)),
		labelStyle.Render("Estop:"), func() string {
			if m.estop {
				return errorStyle.Render("ACTIVE")
			}
			return valueStyle.Render("clear")
		}(),
	))
	if m.odom != "" {
		status.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Odom:"), valueStyle.Render(m.odom)))
	}
	if m.battery != "" {
		status.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Battery:"), valueStyle.Render(m.battery)))
	}
	status.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Lines:"), valueStyle.Render(fmt.Sprintf("%d", m.lineCount)),
		labelStyle.Render("Errors:"), func() string {
			if m.errorCount > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", m.errorCount))
			}
			return valueStyle.Render("0")
		}(),
		labelStyle.Render("Last eid:"), valueStyle.Render(fmt.Sprintf("%d", m.lastEID)),
	))
	s.WriteString(boxStyle.Render(status.String()))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Telemetry:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.vp.View()))
	s.WriteString("\n")

	s.WriteString(m.input.View())
	s.WriteString("\n")

	return s.String()
}
