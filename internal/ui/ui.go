package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/intake"
	"github.com/osa030/vinylbox/internal/app/notification"
	"github.com/osa030/vinylbox/internal/app/playback"
	"github.com/osa030/vinylbox/internal/domain/playlist"
	"github.com/osa030/vinylbox/internal/domain/track"
)

const (
	frameInterval      = 100 * time.Millisecond
	defaultRotation    = 8.0
	minRotation        = 2.0
	maxRotation        = 20.0
	defaultNoticeAfter = 3 * time.Second
	volumeStep         = 0.1
)

// Mode represents which input currently has focus.
type Mode int

const (
	ModeNormal Mode = iota // Transport and playlist keys
	ModeAdd                // URL intake form
	ModeSearch             // Search box
)

// Controller is the playback surface the TUI drives.
type Controller interface {
	Snapshot() playback.Snapshot
	AddTrack(ctx context.Context, ref string) (track.Track, error)
	PlayPause() error
	SkipNext() error
	SkipPrevious() error
	SeekRelative(delta float64) error
	SeekStep() float64
	SeekFraction(fraction float64) error
	SelectID(id string) (int, error)
	RemoveTrack(id string) error
	ToggleFavorite(ctx context.Context) (bool, error)
	ToggleFavoriteID(ctx context.Context, id string) (bool, error)
	SetVolume(volume float64)
}

// Options holds presentation settings.
type Options struct {
	RotationSeconds float64                  // Seconds per disc turn, 2..20
	NoticeDuration  time.Duration            // How long a notice stays visible
	Messages        func(code string) string // Texts for notices raised by the UI
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	chain   *intake.Chain
	updates <-chan *notification.Notification
	opts    Options

	state    playback.Snapshot
	mode     Mode
	cursor   int // Index into the visible rows
	spin     float64
	lastTick time.Time

	notice    *playback.Notice
	noticeSeq int

	urlInput    textinput.Model
	searchInput textinput.Model
	bar         progress.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
}

// NewModel creates a new TUI model. updates may be nil, in which case the
// model only refreshes after its own actions.
func NewModel(ctx context.Context, ctrl Controller, chain *intake.Chain, updates <-chan *notification.Notification, opts Options) *Model {
	if opts.RotationSeconds < minRotation || opts.RotationSeconds > maxRotation {
		opts.RotationSeconds = defaultRotation
	}
	if opts.NoticeDuration <= 0 {
		opts.NoticeDuration = defaultNoticeAfter
	}
	if chain == nil {
		chain = intake.NewChain()
	}

	url := textinput.New()
	url.Placeholder = "Paste a YouTube URL or video ID"
	url.Prompt = "add › "
	url.CharLimit = 256

	search := textinput.New()
	search.Placeholder = "Search title or artist"
	search.Prompt = "search › "
	search.CharLimit = 64

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 40

	return &Model{
		ctx:         ctx,
		ctrl:        ctrl,
		chain:       chain,
		updates:     updates,
		opts:        opts,
		state:       ctrl.Snapshot(),
		urlInput:    url,
		searchInput: search,
		bar:         bar,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts the animation and notification loops.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.nextFrame(), m.waitForNotification())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-20, 10)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAdd:
			return m.handleAddKeys(msg)
		case ModeSearch:
			return m.handleSearchKeys(msg)
		default:
			return m.handleNormalKeys(msg)
		}

	case notificationMsg:
		if !msg.ok {
			return m, nil
		}
		var cmd tea.Cmd
		switch msg.n.Type {
		case notification.TypeState:
			m.setState(*msg.n.State)
		case notification.TypeNotice:
			cmd = m.showNotice(*msg.n.Notice)
		}
		return m, tea.Batch(cmd, m.waitForNotification())

	case noticeMsg:
		return m, m.showNotice(playback.Notice(msg))

	case dismissNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case addDoneMsg:
		if msg.err != nil {
			zlog.Debug().Err(msg.err).Msgf("ui: add rejected: ref=%s", msg.ref)
		}
		m.refresh()
		return m, nil

	case frameMsg:
		now := time.Time(msg)
		if m.state.IsPlaying && !m.lastTick.IsZero() {
			m.spin = advanceSpin(m.spin, now.Sub(m.lastTick), m.opts.RotationSeconds)
		}
		m.lastTick = now
		return m, m.nextFrame()
	}

	return m, nil
}

// View renders the whole screen.
func (m *Model) View() string {
	title := "No track"
	artist := ""
	if cur, ok := m.state.Current(); ok {
		title, artist = cur.Title, cur.Artist
	}

	header := styles.title.Render("♫ vinylbox")
	disc := styles.disc.Render(RenderDisc(title, m.spin, m.state.ArmAngle()))
	info := lipgloss.JoinVertical(lipgloss.Left,
		styles.current.Render(title),
		styles.help.Render(artist),
		"",
		RenderControls(m.state, m.bar, m.opts.RotationSeconds),
	)

	sections := []string{
		header,
		lipgloss.JoinHorizontal(lipgloss.Center, disc, "  ", info),
		"",
		m.renderInput(),
		m.renderRows(),
		m.renderNotice(),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	}
	return strings.Join(sections, "\n")
}

func (m *Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.quit):
		return m, tea.Quit
	case key.Matches(msg, k.playPause):
		m.do("play/pause", m.ctrl.PlayPause())
	case key.Matches(msg, k.next):
		m.do("next", m.ctrl.SkipNext())
	case key.Matches(msg, k.prev):
		m.do("prev", m.ctrl.SkipPrevious())
	case key.Matches(msg, k.forward):
		m.do("seek", m.ctrl.SeekRelative(m.ctrl.SeekStep()))
	case key.Matches(msg, k.backward):
		m.do("seek", m.ctrl.SeekRelative(-m.ctrl.SeekStep()))
	case key.Matches(msg, k.seekTenth):
		tenth := float64(msg.String()[0]-'0') / 10
		m.do("seek", m.ctrl.SeekFraction(tenth))
	case key.Matches(msg, k.volUp):
		m.ctrl.SetVolume(m.state.Volume + volumeStep)
	case key.Matches(msg, k.volDown):
		m.ctrl.SetVolume(m.state.Volume - volumeStep)
	case key.Matches(msg, k.spinUp):
		m.opts.RotationSeconds = min(m.opts.RotationSeconds+1, maxRotation)
	case key.Matches(msg, k.spinDown):
		m.opts.RotationSeconds = max(m.opts.RotationSeconds-1, minRotation)
	case key.Matches(msg, k.favorite):
		_, err := m.ctrl.ToggleFavorite(m.ctx)
		m.do("favorite", err)
	case key.Matches(msg, k.favRow):
		if idx, ok := m.cursorTrack(); ok {
			_, err := m.ctrl.ToggleFavoriteID(m.ctx, m.state.Tracks[idx].ID)
			m.do("favorite row", err)
		}
	case key.Matches(msg, k.remove):
		if idx, ok := m.cursorTrack(); ok {
			m.do("remove", m.ctrl.RemoveTrack(m.state.Tracks[idx].ID))
		}
	case key.Matches(msg, k.enter):
		if idx, ok := m.cursorTrack(); ok {
			_, err := m.ctrl.SelectID(m.state.Tracks[idx].ID)
			m.do("select", err)
		}
	case key.Matches(msg, k.up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, k.down):
		m.cursor = min(m.cursor+1, max(len(m.visibleRows())-1, 0))
	case key.Matches(msg, k.add):
		m.mode = ModeAdd
		m.urlInput.Reset()
		return m, m.urlInput.Focus()
	case key.Matches(msg, k.search):
		m.mode = ModeSearch
		return m, m.searchInput.Focus()
	}
	m.refresh()
	return m, nil
}

func (m *Model) handleAddKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.mode = ModeNormal
		m.urlInput.Blur()
		m.urlInput.Reset()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		input := m.urlInput.Value()
		result := m.chain.Execute(m.ctx, input)
		if !result.Accepted {
			zlog.Debug().Msgf("ui: intake rejected: code=%s", result.Code)
			return m, m.showNotice(m.localNotice(result.Code))
		}
		m.mode = ModeNormal
		m.urlInput.Blur()
		m.urlInput.Reset()
		return m, m.addTrack(result.VideoID)
	}

	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.mode = ModeNormal
		m.searchInput.Blur()
		m.searchInput.Reset()
		m.cursor = 0
		return m, nil
	case key.Matches(msg, m.keys.enter):
		// Keep the filter and return to the rows.
		m.mode = ModeNormal
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.cursor = 0
	return m, cmd
}

// do logs a failed intent. User-facing failures arrive as notices.
func (m *Model) do(action string, err error) {
	if err != nil && !errors.Is(err, playback.ErrNotReady) {
		zlog.Debug().Err(err).Msgf("ui: %s failed", action)
	}
}

func (m *Model) refresh() {
	m.setState(m.ctrl.Snapshot())
}

func (m *Model) setState(s playback.Snapshot) {
	m.state = s
	if rows := m.visibleRows(); m.cursor >= len(rows) {
		m.cursor = max(len(rows)-1, 0)
	}
}

// visibleRows returns the playlist indexes matching the search box.
func (m *Model) visibleRows() []int {
	term := m.searchInput.Value()
	rows := make([]int, 0, len(m.state.Tracks))
	for i, t := range m.state.Tracks {
		if playlist.Match(t, term) {
			rows = append(rows, i)
		}
	}
	return rows
}

// cursorTrack returns the playlist index under the cursor.
func (m *Model) cursorTrack() (int, bool) {
	rows := m.visibleRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return 0, false
	}
	return rows[m.cursor], true
}

func (m *Model) addTrack(ref string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.AddTrack(m.ctx, ref)
		return addDoneMsg{ref: ref, err: err}
	}
}

func (m *Model) waitForNotification() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-m.updates
		return notificationMsg{n: n, ok: ok}
	}
}

func (m *Model) nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) showNotice(n playback.Notice) tea.Cmd {
	m.noticeSeq++
	seq := m.noticeSeq
	m.notice = &n
	return tea.Tick(m.opts.NoticeDuration, func(time.Time) tea.Msg {
		return dismissNoticeMsg{seq: seq}
	})
}

func (m *Model) localNotice(code string) playback.Notice {
	n := playback.Notice{Code: code, Level: playback.LevelError, At: time.Now()}
	if m.opts.Messages != nil {
		n.Message = m.opts.Messages(code)
	}
	if n.Message == "" {
		n.Message = code
	}
	return n
}

func (m *Model) renderInput() string {
	switch m.mode {
	case ModeAdd:
		return m.urlInput.View()
	case ModeSearch:
		return m.searchInput.View()
	}
	if term := m.searchInput.Value(); term != "" {
		return styles.help.Render(fmt.Sprintf("filter: %q (/ to edit, esc in search to clear)", term))
	}
	return ""
}

func (m *Model) renderRows() string {
	rows := m.visibleRows()
	if len(rows) == 0 {
		if len(m.state.Tracks) == 0 {
			return styles.help.Render("Playlist is empty. Press a to add a video.")
		}
		return styles.help.Render("No tracks match.")
	}

	width := m.width - 2
	lines := make([]string, 0, len(rows))
	for i, idx := range rows {
		t := m.state.Tracks[idx]
		lines = append(lines, RenderRow(idx, t, idx == m.state.CurrentIndex, i == m.cursor && m.mode == ModeNormal, m.state.IsFavorite(t.ID), width))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderNotice() string {
	if m.notice == nil {
		return ""
	}
	text := m.notice.Message
	if text == "" {
		text = m.notice.Code
	}
	switch m.notice.Level {
	case playback.LevelError:
		return styles.err.Render(text)
	case playback.LevelSuccess:
		return styles.ok.Render(text)
	default:
		return styles.accent.Render(text)
	}
}

// advanceSpin rotates the disc for elapsed time at one turn per rotation seconds.
func advanceSpin(spin float64, elapsed time.Duration, rotation float64) float64 {
	if rotation <= 0 {
		return spin
	}
	spin += 360 * elapsed.Seconds() / rotation
	for spin >= 360 {
		spin -= 360
	}
	return spin
}
