package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/maynagashev/timelock/internal/access"
)

var (
	docStyle    = lipgloss.NewStyle().Margin(1, 2)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")) // Серый
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94"))
	badgeStyle  = lipgloss.NewStyle().Padding(0, 1).Bold(true)

	statusColors = map[access.Status]lipgloss.Color{
		access.StatusSealed:   lipgloss.Color("63"),  // Синий
		access.StatusUnlocked: lipgloss.Color("42"),  // Зеленый
		access.StatusExpired:  lipgloss.Color("241"), // Серый
	}
	statusNames = map[access.Status]string{
		access.StatusSealed:   "ЗАПЕЧАТАН",
		access.StatusUnlocked: "ОТКРЫТ",
		access.StatusExpired:  "ИСТЕК",
	}
)

// View отрисовывает экран.
func (m *model) View() string {
	var b strings.Builder

	badge := badgeStyle.Background(statusColors[m.decision.Status]).Render(statusNames[m.decision.Status])
	b.WriteString(titleStyle.Render(m.album.Title) + " " + badge + "\n\n")

	switch m.decision.Status {
	case access.StatusSealed:
		b.WriteString("Альбом запечатан. После вскрытия он будет доступен 24 часа.\n")
		if m.unsealing {
			b.WriteString(subtleStyle.Render("Вскрываем...") + "\n")
		}
	case access.StatusUnlocked:
		b.WriteString("Осталось: " + formatRemaining(m.decision.TimeRemaining) + "\n")
		b.WriteString(m.progress.ViewAs(remainingRatio(m.decision.TimeRemaining)) + "\n")
	case access.StatusExpired:
		b.WriteString("Окно просмотра закрыто. Альбом больше недоступен.\n")
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Ошибка: "+m.err.Error()) + "\n")
	}

	if !m.quitting {
		help := "q - выход"
		if m.decision.Status == access.StatusSealed && m.unsealer != nil {
			help = "u - вскрыть, " + help
		}
		b.WriteString("\n" + subtleStyle.Render(help))
	}
	return docStyle.Render(b.String())
}

// formatRemaining форматирует оставшееся время как ЧЧ:ММ:СС, округляя вверх
// до секунды, чтобы 00:00:00 не показывалось в открытом окне.
func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	total := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}

// remainingRatio - доля окна, которая еще осталась.
func remainingRatio(d time.Duration) float64 {
	ratio := float64(d) / float64(access.Window)
	return max(0, min(1, ratio))
}
