// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
)

var controlAddr int

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive throttle TUI for a single locomotive",
	RunE:  runControl,
}

func init() {
	controlCmd.Flags().IntVar(&controlAddr, "addr", 3, "Locomotive address to control")
	rootCmd.AddCommand(controlCmd)
}

func runControl(cmd *cobra.Command, args []string) error {
	addr, err := xpressnet.NewLocoAddr(controlAddr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := newControlModel(addr)
	p := tea.NewProgram(m)
	m.program = p

	events := &xpressnet.Events{
		OnTrkStatusChanged: func(s xpressnet.TrkStatus) { p.Send(trkStatusMsg(s)) },
		OnError:            func(e error) { p.Send(controlErrMsg(e)) },
	}

	d, desc, err := connectDriver(ctx, events)
	if err != nil {
		return err
	}
	defer d.Disconnect()
	m.driver = d
	m.connInfo = desc

	_, err = p.Run()
	return err
}

// controlModel is the Bubble Tea model for the interactive throttle.
type controlModel struct {
	driver   *xpressnet.Driver
	program  *tea.Program
	connInfo string

	addr      xpressnet.LocoAddr
	speed     int
	dir       xpressnet.Direction
	trkStatus xpressnet.TrkStatus

	log      []string
	quitting bool
}

func newControlModel(addr xpressnet.LocoAddr) *controlModel {
	return &controlModel{addr: addr, dir: xpressnet.Forward}
}

type trkStatusMsg xpressnet.TrkStatus
type controlErrMsg error
type controlLogMsg string

func (m *controlModel) Init() tea.Cmd { return nil }

func (m *controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up":
			if m.speed < 28 {
				m.speed++
			}
			return m, m.sendSpeed()
		case "down":
			if m.speed > 0 {
				m.speed--
			}
			return m, m.sendSpeed()
		case " ":
			m.speed = 0
			return m, m.sendSpeed()
		case "left", "right":
			m.dir = !m.dir
			return m, m.sendSpeed()
		case "t":
			return m, m.toggleTrack()
		}
	case trkStatusMsg:
		m.trkStatus = xpressnet.TrkStatus(msg)
	case controlErrMsg:
		m.log = append(m.log, "error: "+error(msg).Error())
	case controlLogMsg:
		m.log = append(m.log, string(msg))
	}
	if len(m.log) > 8 {
		m.log = m.log[len(m.log)-8:]
	}
	return m, nil
}

func (m *controlModel) sendSpeed() tea.Cmd {
	return func() tea.Msg {
		result := make(chan error, 1)
		m.driver.SetLocoSpeed(m.addr, m.speed, m.dir, func() { result <- nil }, func(e error) { result <- e })
		if err := <-result; err != nil {
			return controlErrMsg(err)
		}
		return controlLogMsg("speed " + strconv.Itoa(m.speed) + " " + dirName(m.dir))
	}
}

func (m *controlModel) toggleTrack() tea.Cmd {
	target := xpressnet.TrkOn
	if m.trkStatus == xpressnet.TrkOn {
		target = xpressnet.TrkOff
	}
	return func() tea.Msg {
		result := make(chan error, 1)
		m.driver.SetTrackStatus(target, func() { result <- nil }, func(e error) { result <- e })
		if err := <-result; err != nil {
			return controlErrMsg(err)
		}
		return controlLogMsg("track " + target.String())
	}
}

var (
	controlTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("12")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	controlLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	controlValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	controlBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 1)
)

func (m *controlModel) View() string {
	if m.quitting {
		return "disconnecting...\n"
	}

	header := controlTitleStyle.Render(fmt.Sprintf("xncli control: %s", m.connInfo))

	body := fmt.Sprintf(
		"%s %s\n%s %s\n%s %s\n\nup/down: speed   left/right: direction   space: stop   t: toggle track   q: quit",
		controlLabelStyle.Render("loco:"), controlValueStyle.Render(m.addr.String()),
		controlLabelStyle.Render("speed/dir:"), controlValueStyle.Render(fmt.Sprintf("%d %s", m.speed, dirName(m.dir))),
		controlLabelStyle.Render("track:"), controlValueStyle.Render(m.trkStatus.String()),
	)

	logBox := controlBoxStyle.Render(fmt.Sprintf("log:\n%s", joinLog(m.log)))

	return header + "\n\n" + body + "\n\n" + logBox + "\n"
}

func joinLog(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	if out == "" {
		out = "(nothing yet)"
	}
	return out
}
