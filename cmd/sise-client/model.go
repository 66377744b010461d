package main

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"sisedash/pkg/sisedash"
)

// Messages.
type pageLoadedMsg struct {
	seq  int
	resp *sisedash.DashboardResponse
	err  error
}

type detailLoadedMsg struct {
	code string
	resp *sisedash.TickerResponse
	err  error
}

// detailState is the expanded panel of one row.
type detailState struct {
	loading bool
	resp    *sisedash.TickerResponse
	err     error
}

// Model.
type model struct {
	ctx    context.Context
	cancel context.CancelFunc
	client api
	logger *slog.Logger

	snapshots []sisedash.Snapshot
	snapIdx   int // 0 is the most recent
	query     string

	filter    textinput.Model
	filtering bool

	seq     int // bumped on every page request; stale replies are dropped
	loading bool
	err     error
	rows    []sisedash.Row

	selected int                     // index into rows
	details  map[string]*detailState // by ticker code; present means expanded

	spinner       spinner.Model
	viewport      viewport.Model
	ready         bool
	width, height int
}

func initialModel(ctx context.Context, cancel context.CancelFunc, client api, snaps []sisedash.Snapshot, logger *slog.Logger) model {
	ti := textinput.New()
	ti.Prompt = "종목명 필터: "
	ti.Placeholder = "예: 삼성"
	ti.CharLimit = 64

	return model{
		ctx:       ctx,
		cancel:    cancel,
		client:    client,
		logger:    logger,
		snapshots: snaps,
		filter:    ti,
		details:   make(map[string]*detailState),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return reloadMsg{} })
}

type reloadMsg struct{}

func (m model) currentSnapshot() sisedash.Snapshot {
	if m.snapIdx < 0 || m.snapIdx >= len(m.snapshots) {
		return sisedash.Snapshot{}
	}
	return m.snapshots[m.snapIdx]
}

// loadPage requests the rows of the current snapshot and query.
func (m *model) loadPage() tea.Cmd {
	m.seq++
	m.loading = true
	m.err = nil
	seq := m.seq
	q := sisedash.DashboardQuery{Snapshot: m.currentSnapshot().ID, Query: m.query}
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		resp, err := client.Dashboard(ctx, q)
		return pageLoadedMsg{seq: seq, resp: resp, err: err}
	}
}

// loadDetail requests the enrichment of one row.
func (m *model) loadDetail(row sisedash.Row) tea.Cmd {
	m.details[row.Code] = &detailState{loading: true}
	client, ctx := m.client, m.ctx
	code, name := row.Code, row.Name
	return func() tea.Msg {
		resp, err := client.Ticker(ctx, code, name)
		return detailLoadedMsg{code: code, resp: resp, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "/":
			m.filtering = true
			m.filter.SetValue(m.query)
			m.filter.CursorEnd()
			return m, m.filter.Focus()
		case "left":
			// Older snapshot.
			if m.snapIdx < len(m.snapshots)-1 {
				m.snapIdx++
				return m, m.resetAndLoad()
			}
			return m, nil
		case "right":
			if m.snapIdx > 0 {
				m.snapIdx--
				return m, m.resetAndLoad()
			}
			return m, nil
		case "up":
			if m.selected > 0 {
				m.selected--
			}
			m.refresh()
			return m, nil
		case "down":
			if m.selected < len(m.rows)-1 {
				m.selected++
			}
			m.refresh()
			return m, nil
		case "enter":
			if m.selected >= len(m.rows) {
				return m, nil
			}
			row := m.rows[m.selected]
			if _, open := m.details[row.Code]; open {
				delete(m.details, row.Code)
				m.refresh()
				return m, nil
			}
			cmd = m.loadDetail(row)
			m.refresh()
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerH := 2
		footerH := 1
		vpHeight := m.height - headerH - footerH
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.filter.Width = m.width - len(m.filter.Prompt) - 2
		m.refresh()
		return m, nil

	case reloadMsg:
		return m, m.loadPage()

	case pageLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.logger.Error("loading dashboard", "snapshot", m.currentSnapshot().ID, "error", msg.err)
			m.err = msg.err
			m.rows = nil
		} else {
			m.rows = msg.resp.Rows
			m.logger.Info("dashboard loaded", "snapshot", msg.resp.Snapshot.ID, "rows", msg.resp.Count)
		}
		m.selected = 0
		m.refresh()
		if m.ready {
			m.viewport.GotoTop()
		}
		return m, nil

	case detailLoadedMsg:
		st, open := m.details[msg.code]
		if !open {
			// Collapsed while loading.
			return m, nil
		}
		st.loading = false
		st.resp = msg.resp
		st.err = msg.err
		if msg.err != nil {
			m.logger.Warn("loading ticker detail", "code", msg.code, "error", msg.err)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading || m.detailsLoading() {
			m.refresh()
		}
		return m, cmd
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "enter":
		m.filtering = false
		m.filter.Blur()
		m.query = m.filter.Value()
		return m, m.resetAndLoad()
	case "esc":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

// resetAndLoad clears per-page state and requests the new page.
func (m *model) resetAndLoad() tea.Cmd {
	m.details = make(map[string]*detailState)
	m.selected = 0
	cmd := m.loadPage()
	m.refresh()
	return cmd
}

func (m *model) detailsLoading() bool {
	for _, st := range m.details {
		if st.loading {
			return true
		}
	}
	return false
}

// refresh re-renders the viewport and keeps the selected row visible.
func (m *model) refresh() {
	if !m.ready {
		return
	}
	content, line := m.renderContent()
	m.viewport.SetContent(content)
	if line < 0 {
		return
	}
	yOff := m.viewport.YOffset
	vpH := m.viewport.Height
	if line < yOff {
		m.viewport.SetYOffset(line)
	} else if line >= yOff+vpH {
		m.viewport.SetYOffset(line - vpH + 1)
	}
}
