package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// manualClock - часы, которые двигает тест.
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeUnsealer возвращает заранее заданный результат.
type fakeUnsealer struct {
	album *models.AlbumView
	err   error
	calls int
}

func (f *fakeUnsealer) UnsealAlbum(_ context.Context, _ string) (*models.AlbumView, error) {
	f.calls++
	return f.album, f.err
}

func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func toModel(t *testing.T, m tea.Model) *model {
	t.Helper()
	result, ok := m.(*model)
	require.True(t, ok, "ожидался *model, получен %T", m)
	return result
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func unlockedAlbum(unlockAt time.Time) models.Album {
	return models.Album{ID: "a1", Title: "Отпуск", UnlockAt: &unlockAt}
}

func TestModel_Init(t *testing.T) {
	clock := &manualClock{now: testNow}

	t.Run("Открытый альбом запускает тики", func(t *testing.T) {
		m := newModel(unlockedAlbum(testNow.Add(-time.Hour)), nil, clock.Now)
		assert.Equal(t, access.StatusUnlocked, m.decision.Status)
		assert.NotNil(t, m.Init())
		assert.Nil(t, m.Init(), "повторный запуск не создает вторую цепочку")
	})

	t.Run("Запечатанный альбом не тикает", func(t *testing.T) {
		m := newModel(models.Album{ID: "a1", Title: "Отпуск"}, nil, clock.Now)
		assert.Equal(t, access.StatusSealed, m.decision.Status)
		assert.Nil(t, m.Init())
	})

	t.Run("Истекший альбом не тикает", func(t *testing.T) {
		m := newModel(unlockedAlbum(testNow.Add(-access.Window)), nil, clock.Now)
		assert.Equal(t, access.StatusExpired, m.decision.Status)
		assert.Nil(t, m.Init())
	})
}

func TestModel_Tick(t *testing.T) {
	clock := &manualClock{now: testNow}
	m := newModel(unlockedAlbum(testNow.Add(-access.Window+2*time.Second)), nil, clock.Now)
	require.NotNil(t, m.Init())
	assert.Equal(t, 2*time.Second, m.decision.TimeRemaining)

	clock.Advance(time.Second)
	updated, cmd := m.Update(tickMsg(clock.now))
	m = toModel(t, updated)
	assert.Equal(t, time.Second, m.decision.TimeRemaining)
	assert.NotNil(t, cmd, "пока окно открыто, тики продолжаются")
	assert.Contains(t, m.View(), "00:00:01")

	clock.Advance(time.Second)
	updated, cmd = m.Update(tickMsg(clock.now))
	m = toModel(t, updated)
	assert.Equal(t, access.StatusExpired, m.decision.Status)
	assert.True(t, isQuit(cmd), "после истечения программа завершается")
	assert.False(t, m.ticking)
	assert.Contains(t, m.View(), "Окно просмотра закрыто")
}

func TestModel_Keys(t *testing.T) {
	clock := &manualClock{now: testNow}

	for _, key := range []string{"q", "esc", "ctrl+c"} {
		t.Run("Выход по "+key, func(t *testing.T) {
			m := newModel(unlockedAlbum(testNow), nil, clock.Now)
			var msg tea.KeyMsg
			switch key {
			case "esc":
				msg = tea.KeyMsg{Type: tea.KeyEsc}
			case "ctrl+c":
				msg = tea.KeyMsg{Type: tea.KeyCtrlC}
			default:
				msg = keyMsg(key)
			}
			updated, cmd := m.Update(msg)
			assert.True(t, toModel(t, updated).quitting)
			assert.True(t, isQuit(cmd))
		})
	}

	t.Run("Вскрытие открытого альбома игнорируется", func(t *testing.T) {
		unsealer := &fakeUnsealer{}
		m := newModel(unlockedAlbum(testNow), unsealer, clock.Now)
		_, cmd := m.Update(keyMsg("u"))
		assert.Nil(t, cmd)
		assert.Zero(t, unsealer.calls)
	})
}

func TestModel_Unseal(t *testing.T) {
	clock := &manualClock{now: testNow}

	t.Run("Успешное вскрытие запускает отсчет", func(t *testing.T) {
		unsealed := &models.AlbumView{Album: unlockedAlbum(testNow)}
		unsealer := &fakeUnsealer{album: unsealed}
		m := newModel(models.Album{ID: "a1", Title: "Отпуск"}, unsealer, clock.Now)
		assert.Contains(t, m.View(), "u - вскрыть")

		updated, cmd := m.Update(keyMsg("u"))
		m = toModel(t, updated)
		require.NotNil(t, cmd)
		assert.True(t, m.unsealing)
		assert.Contains(t, m.View(), "Вскрываем")

		_, again := m.Update(keyMsg("u"))
		assert.Nil(t, again, "повторное нажатие во время вскрытия игнорируется")

		msg := cmd()
		require.IsType(t, unsealedMsg{}, msg)
		updated, cmd = m.Update(msg)
		m = toModel(t, updated)
		assert.Equal(t, 1, unsealer.calls)
		assert.False(t, m.unsealing)
		assert.Equal(t, access.StatusUnlocked, m.decision.Status)
		assert.Equal(t, access.Window, m.decision.TimeRemaining)
		assert.NotNil(t, cmd, "после вскрытия начинается отсчет")
		assert.Contains(t, m.View(), "24:00:00")
	})

	t.Run("Ошибка вскрытия показывается", func(t *testing.T) {
		unsealer := &fakeUnsealer{err: errors.New("альбом уже вскрыт")}
		m := newModel(models.Album{ID: "a1", Title: "Отпуск"}, unsealer, clock.Now)

		_, cmd := m.Update(keyMsg("u"))
		require.NotNil(t, cmd)
		updated, next := m.Update(cmd())
		m = toModel(t, updated)
		assert.Nil(t, next)
		assert.Equal(t, access.StatusSealed, m.decision.Status)
		assert.Contains(t, m.View(), "альбом уже вскрыт")
	})
}

func TestModel_WindowSize(t *testing.T) {
	m := newModel(unlockedAlbum(testNow), nil, (&manualClock{now: testNow}).Now)

	_, _ = m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})
	assert.Equal(t, 26, m.progress.Width)

	_, _ = m.Update(tea.WindowSizeMsg{Width: 200, Height: 10})
	assert.Equal(t, maxProgressWidth, m.progress.Width)
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: access.Window, want: "24:00:00"},
		{in: time.Hour + 2*time.Minute + 3*time.Second, want: "01:02:03"},
		{in: 1500 * time.Millisecond, want: "00:00:02"},
		{in: time.Millisecond, want: "00:00:01"},
		{in: 0, want: "00:00:00"},
		{in: -time.Second, want: "00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatRemaining(tt.in))
		})
	}
}

func TestRemainingRatio(t *testing.T) {
	assert.InDelta(t, 1.0, remainingRatio(access.Window), 1e-9)
	assert.InDelta(t, 0.5, remainingRatio(access.Window/2), 1e-9)
	assert.InDelta(t, 0.0, remainingRatio(-time.Second), 1e-9)
	assert.InDelta(t, 1.0, remainingRatio(2*access.Window), 1e-9)
}
