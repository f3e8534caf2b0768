// Package tui показывает обратный отсчет окна просмотра альбома.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"go.uber.org/zap"
)

const (
	tickInterval     = time.Second
	unsealTimeout    = 10 * time.Second
	maxProgressWidth = 60
	progressPadding  = 4
)

// Unsealer вскрывает альбом на сервере. Ему удовлетворяет api.Client.
type Unsealer interface {
	UnsealAlbum(ctx context.Context, albumID string) (*models.AlbumView, error)
}

// --- Сообщения --- //

// tickMsg - очередной тик отсчета.
type tickMsg time.Time

// unsealedMsg - альбом вскрыт на сервере.
type unsealedMsg struct {
	album *models.AlbumView
}

// errMsg - ошибка фоновой команды.
type errMsg struct {
	err error
}

// model - состояние экрана отсчета.
type model struct {
	album    models.Album
	clock    access.Clock
	unsealer Unsealer

	decision  access.Decision
	progress  progress.Model
	err       error
	unsealing bool
	quitting  bool
	ticking   bool
}

func newModel(album models.Album, unsealer Unsealer, clock access.Clock) *model {
	if clock == nil {
		clock = time.Now
	}
	return &model{
		album:    album,
		clock:    clock,
		unsealer: unsealer,
		decision: access.Evaluate(album.UnlockAt, clock()),
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithoutPercentage(),
			progress.WithWidth(maxProgressWidth),
		),
	}
}

// Init запускает тики, только если окно просмотра открыто.
func (m *model) Init() tea.Cmd {
	return m.startTicking()
}

func (m *model) startTicking() tea.Cmd {
	if m.decision.Terminal() || m.ticking {
		return nil
	}
	m.ticking = true
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update обрабатывает сообщения bubbletea.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.progress.Width = min(msg.Width-progressPadding, maxProgressWidth)
		return m, nil

	case tickMsg:
		m.decision = access.Evaluate(m.album.UnlockAt, m.clock())
		if m.decision.Terminal() {
			// Цепочка тиков обрывается: после истечения состояние не меняется
			m.ticking = false
			zap.S().Infof("[Countdown] Альбом %s: %s", m.album.ID, m.decision.Status)
			if m.decision.Status == access.StatusExpired {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
		return m, tick()

	case unsealedMsg:
		m.unsealing = false
		m.err = nil
		m.album = msg.album.Album
		m.decision = access.Evaluate(m.album.UnlockAt, m.clock())
		zap.S().Infof("[Countdown] Альбом %s вскрыт: %s", m.album.ID, m.decision.Status)
		return m, m.startTicking()

	case errMsg:
		m.unsealing = false
		m.err = msg.err
		zap.S().Errorf("[Countdown] Ошибка: %v", msg.err)
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "u":
		if m.decision.Status != access.StatusSealed || m.unsealer == nil || m.unsealing {
			return m, nil
		}
		m.unsealing = true
		return m, unsealCmd(m.unsealer, m.album.ID)
	}
	return m, nil
}

func unsealCmd(unsealer Unsealer, albumID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), unsealTimeout)
		defer cancel()
		album, err := unsealer.UnsealAlbum(ctx, albumID)
		if err != nil {
			return errMsg{err: err}
		}
		return unsealedMsg{album: album}
	}
}

// Run показывает отсчет для альбома, пока пользователь не выйдет или окно
// не закроется. Возвращает последнее вычисленное решение.
func Run(ctx context.Context, album models.Album, unsealer Unsealer) (access.Decision, error) {
	m := newModel(album, unsealer, time.Now)
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if fm, ok := final.(*model); ok {
		return fm.decision, err
	}
	return m.decision, err
}
