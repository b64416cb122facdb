package tui

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/gatehouse/internal/notify"
)

// Shimmer animation for the header logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "GATEHOUSE" as a slow wave of brass light
// running across spaced letters.
func renderShimmerLogo(frame int) string {
	const text = "GATEHOUSE"
	n := len(text)
	t := float64(frame)

	var b strings.Builder
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		phase := t*0.08 - x*2.5 + math.Sin(t*0.02)*1.5

		br := math.Pow(math.Sin(phase)*0.5+0.5, 1.4)
		br = br*0.8 + math.Sin(t*0.03)*0.1 + 0.15
		br = math.Max(0.05, math.Min(1, br))

		// Dark bronze (#3a2a12) -> bright brass (#f5c451)
		r := clampByte(58 + br*(245-58))
		g := clampByte(42 + br*(196-42))
		bl := clampByte(18 + br*(81-18))

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, bl)))
		b.WriteString(s.Render(string(text[i])))
		if i < n-1 {
			b.WriteString("  ")
		}
	}
	return b.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f5c451"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f5c451")).
			Bold(true)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#f5c451")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#606878"))

	// Countdown colors
	healthyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
	expiringStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	expiredStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#b45555"))

	toastColors = map[notify.Severity]lipgloss.Color{
		notify.Success: lipgloss.Color("#34d474"),
		notify.Warning: lipgloss.Color("#f59e0b"),
		notify.Error:   lipgloss.Color("#e06060"),
	}
)

// toastStyle returns the bordered box a notification is drawn in.
func toastStyle(sev notify.Severity) lipgloss.Style {
	c, ok := toastColors[sev]
	if !ok {
		c = lipgloss.Color("#8890a0")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c).
		Foreground(c).
		Padding(0, 1)
}

// renderToast draws n as a one-line box.
func renderToast(n notify.Notification, width int) string {
	msg := n.Message
	if room := width - utf8.RuneCountInString(n.Title) - 8; width > 0 && room < utf8.RuneCountInString(msg) {
		msg = truncStr(msg, max(room, 1))
	}
	text := lipgloss.NewStyle().Bold(true).Render(n.Title)
	if msg != "" {
		text += "  " + normalStyle.Render(msg)
	}
	return toastStyle(n.Severity).Render(text)
}

// expiryStyle colors a countdown by how much of it is left.
func expiryStyle(left time.Duration) lipgloss.Style {
	switch {
	case left <= 0:
		return expiredStyle
	case left <= 2*time.Minute:
		return expiringStyle
	default:
		return healthyStyle
	}
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins entries into the bottom help line.
func helpBar(entries ...string) string {
	return " " + strings.Join(entries, "  ")
}

// helpView renders the help overlay.
func helpView(docsURL string) string {
	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	commands := []struct{ cmd, desc string }{
		{"gatehouse", "Open the interactive client"},
		{"gatehouse login", "Sign in from the shell"},
		{"gatehouse logout", "End the session"},
		{"gatehouse whoami", "Show the signed-in user"},
		{"gatehouse refresh", "Renew the access token now"},
		{"gatehouse version", "Show version"},
	}
	keys := []struct{ key, desc string }{
		{"tab / shift+tab", "Move between fields"},
		{"enter", "Next field, submit on the last one"},
		{"esc", "Back"},
		{"ctrl+o", "Open the documentation"},
		{"ctrl+c", "Quit"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n", titleStyle.Render("G A T E H O U S E"))
	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", k.key)), descStyle.Render(k.desc))
	}
	if docsURL != "" {
		fmt.Fprintf(&b, "\n  %s  %s\n", sectionStyle.Render("Docs"), dimStyle.Render(docsURL))
	}
	return b.String()
}
