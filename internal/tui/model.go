// Package tui is an interactive terminal view of a loaded session.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/crimson-sun/timeline/internal/model"
	"github.com/crimson-sun/timeline/internal/output/text"
	"github.com/crimson-sun/timeline/internal/session"
	"github.com/crimson-sun/timeline/internal/timefmt"
)

// ReloadedMsg tells the view the controller loaded new content.
type ReloadedMsg struct{}

type mode int

const (
	modeList mode = iota
	modeSearch
	modeDetail
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// row is one display line of the list: a day heading or an entry.
type row struct {
	heading string
	entry   *model.Entry
}

// Model is the bubbletea model of the timeline view.
type Model struct {
	ctrl   *session.Controller
	keys   KeyMap
	help   help.Model
	styles text.Styles

	search   textinput.Model
	detail   viewport.Model
	mode     mode
	truncate bool
	raw      bool

	timeline model.Timeline
	rows     []row
	entries  []int // indexes into rows of entry rows
	cursor   int   // index into entries
	offset   int   // first visible row

	width, height int
}

// New creates the view for ctrl.
func New(ctrl *session.Controller) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search events"
	ti.CharLimit = 256

	m := Model{
		ctrl:     ctrl,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		styles:   text.NewStyles(lipgloss.DefaultRenderer()),
		search:   ti,
		detail:   viewport.New(80, 20),
		truncate: true,
		width:    120,
		height:   40,
	}
	m.search.SetValue(ctrl.Snapshot().Filters.Query)
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.detail.Width = msg.Width
		m.detail.Height = max(msg.Height-3, 1)
		m.clampOffset()
		return m, nil
	case ReloadedMsg:
		m.refresh()
		if m.mode == modeDetail {
			m.mode = modeList
		}
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeDetail:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.move(-m.listHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.move(m.listHeight())
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Type):
		m.ctrl.SetType(nextType(m.ctrl.Snapshot().Filters.Type, m.ctrl.Types()))
		m.refresh()
	case key.Matches(msg, m.keys.Hide):
		m.ctrl.SetHideToolDetails(!m.ctrl.Snapshot().Filters.HideToolDetails)
		m.refresh()
	case key.Matches(msg, m.keys.TZ):
		if m.ctrl.Snapshot().TZ == timefmt.UTC {
			m.ctrl.SetTZ(timefmt.Local)
		} else {
			m.ctrl.SetTZ(timefmt.UTC)
		}
		m.refresh()
	case key.Matches(msg, m.keys.Clear):
		m.ctrl.ClearFilters()
		m.search.SetValue("")
		m.refresh()
	case key.Matches(msg, m.keys.Detail):
		if e := m.selected(); e != nil {
			m.mode = modeDetail
			m.raw = false
			m.ctrl.Select(m.key(e))
			m.renderDetail()
		}
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = modeList
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.mode = modeList
		m.search.Blur()
		m.search.SetValue("")
		m.ctrl.SetQuery("")
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.ctrl.SetQuery(m.search.Value())
	m.refresh()
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.mode = modeList
		return m, nil
	case key.Matches(msg, m.keys.Truncate):
		m.truncate = !m.truncate
		m.renderDetail()
		return m, nil
	case key.Matches(msg, m.keys.Raw):
		m.raw = !m.raw
		m.renderDetail()
		return m, nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

// nextType cycles all → each known type → all.
func nextType(current string, types []string) string {
	if current == "" || current == model.TypeAll {
		if len(types) == 0 {
			return model.TypeAll
		}
		return types[0]
	}
	for i, t := range types {
		if t == current {
			if i+1 < len(types) {
				return types[i+1]
			}
			return model.TypeAll
		}
	}
	return model.TypeAll
}

// refresh re-renders the timeline from the controller, keeping the cursor
// on the same event when it is still visible.
func (m *Model) refresh() {
	var keep string
	if e := m.selected(); e != nil {
		keep = m.key(e)
	}

	st := m.ctrl.Snapshot()
	m.timeline = m.ctrl.TimelineFor(st.Filters, st.TZ)
	m.rows = nil
	m.entries = nil
	for di := range m.timeline.Days {
		day := &m.timeline.Days[di]
		m.rows = append(m.rows, row{heading: day.Day})
		for ei := range day.Entries {
			m.entries = append(m.entries, len(m.rows))
			m.rows = append(m.rows, row{entry: &day.Entries[ei]})
		}
	}

	m.cursor = 0
	for i, ri := range m.entries {
		if keep != "" && m.key(m.rows[ri].entry) == keep {
			m.cursor = i
			break
		}
	}
	m.clampOffset()
}

func (m Model) key(e *model.Entry) string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprint(e.Index)
}

func (m Model) selected() *model.Entry {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return nil
	}
	return m.rows[m.entries[m.cursor]].entry
}

func (m *Model) move(delta int) {
	if len(m.entries) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.entries)-1)
	m.clampOffset()
}

func (m Model) listHeight() int {
	// title, filter line, search line, help
	return max(m.height-4, 1)
}

func (m *Model) clampOffset() {
	if len(m.entries) == 0 {
		m.offset = 0
		return
	}
	pos := m.entries[m.cursor]
	h := m.listHeight()
	if pos < m.offset {
		m.offset = pos
		// keep the day heading in view
		if pos > 0 && m.rows[pos-1].heading != "" {
			m.offset = pos - 1
		}
	}
	if pos >= m.offset+h {
		m.offset = pos - h + 1
	}
	m.offset = max(m.offset, 0)
}

func (m *Model) renderDetail() {
	e := m.selected()
	if e == nil {
		return
	}
	k := m.key(e)
	var content string
	if m.raw {
		raw, err := m.ctrl.RawLine(k)
		if err != nil {
			content = err.Error()
		} else {
			content = raw
		}
	} else {
		data, err := m.ctrl.DetailJSON(k, m.truncate)
		if err != nil {
			content = err.Error()
		} else {
			content = string(data)
		}
	}
	m.detail.SetContent(content)
	m.detail.GotoTop()
}

func (m Model) View() string {
	if m.mode == modeDetail {
		return m.viewDetail()
	}

	st := m.ctrl.Snapshot()
	var b strings.Builder

	title := "Session timeline"
	if st.Source != "" {
		title += " · " + st.Source
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')

	hide := "off"
	if st.Filters.HideToolDetails {
		hide = "on"
	}
	typ := st.Filters.Type
	if typ == "" {
		typ = model.TypeAll
	}
	b.WriteString(subtleStyle.Render(fmt.Sprintf("Showing %d of %d · duration %s · type %s · hide %s · %s",
		m.timeline.Showing, m.timeline.Total, m.timeline.Duration, typ, hide, st.TZ)))
	b.WriteByte('\n')

	if m.mode == modeSearch || st.Filters.Query != "" {
		b.WriteString(m.search.View())
	} else if st.Status != nil {
		b.WriteString(renderStatus(*st.Status))
	}
	b.WriteByte('\n')

	b.WriteString(m.viewList())
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) viewList() string {
	h := m.listHeight()
	var b strings.Builder
	if len(m.rows) == 0 {
		b.WriteString(subtleStyle.Render("No events match the current filters."))
		b.WriteByte('\n')
		for i := 1; i < h; i++ {
			b.WriteByte('\n')
		}
		return b.String()
	}

	var cur int
	if len(m.entries) > 0 {
		cur = m.entries[m.cursor]
	}
	for i := m.offset; i < m.offset+h; i++ {
		if i < len(m.rows) {
			r := m.rows[i]
			switch {
			case r.heading != "":
				b.WriteString(m.styles.Day.Render(r.heading))
			case i == cur:
				b.WriteString(cursorStyle.Render(text.FormatLine(m.styles, *r.entry)))
			default:
				b.WriteString(text.FormatLine(m.styles, *r.entry))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) viewDetail() string {
	e := m.selected()
	title := "Event"
	if e != nil {
		title = fmt.Sprintf("%s · %s", e.Type, e.Timestamp)
	}
	view := "json"
	if m.raw {
		view = "raw"
	} else if m.truncate {
		view = "json, truncated"
	}
	return titleStyle.Render(title) + " " + subtleStyle.Render("("+view+")") + "\n" +
		m.detail.View() + "\n" +
		m.help.ShortHelpView([]key.Binding{m.keys.Back, m.keys.Truncate, m.keys.Raw, m.keys.Quit})
}

func renderStatus(st session.Status) string {
	switch st.Level {
	case session.LevelWarn:
		return warnStyle.Render(st.Message)
	case session.LevelError:
		return errorStyle.Render(st.Message)
	default:
		return subtleStyle.Render(st.Message)
	}
}
