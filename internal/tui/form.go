package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type field struct {
	label  string
	value  string
	secret bool
}

// form is a vertical list of text fields. Enter on the last field submits.
type form struct {
	title  string
	intro  string
	fields []field
	focus  int
	status string
	failed bool
	busy   bool
}

func newForm(title string, labels ...string) form {
	f := form{title: title}
	for _, l := range labels {
		f.fields = append(f.fields, field{label: l})
	}
	return f
}

// secret masks the named fields.
func (f form) secret(labels ...string) form {
	for i := range f.fields {
		for _, l := range labels {
			if f.fields[i].label == l {
				f.fields[i].secret = true
			}
		}
	}
	return f
}

// with pre-fills a field.
func (f form) with(label, value string) form {
	for i := range f.fields {
		if f.fields[i].label == label {
			f.fields[i].value = value
		}
	}
	return f
}

func (f form) value(label string) string {
	for _, fl := range f.fields {
		if fl.label == label {
			return strings.TrimSpace(fl.value)
		}
	}
	return ""
}

// missing returns the label of the first empty field.
func (f form) missing() (string, bool) {
	for _, fl := range f.fields {
		if strings.TrimSpace(fl.value) == "" {
			return fl.label, true
		}
	}
	return "", false
}

func (f form) fail(msg string) form {
	f.status, f.failed, f.busy = msg, true, false
	return f
}

func (f form) ok(msg string) form {
	f.status, f.failed, f.busy = msg, false, false
	return f
}

// update applies a key. submit is true when the user confirmed the form.
func (f form) update(msg tea.KeyMsg) (next form, submit bool) {
	if f.busy || len(f.fields) == 0 {
		return f, false
	}
	switch msg.String() {
	case "tab", "down":
		f.focus = (f.focus + 1) % len(f.fields)
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
	case "enter":
		if f.focus == len(f.fields)-1 {
			return f, true
		}
		f.focus++
	default:
		fl := &f.fields[f.focus]
		if msg.Type == tea.KeyRunes && msg.Paste {
			for _, r := range msg.Runes {
				fl.value = editRune(fl.value, string(r))
			}
			return f, false
		}
		fl.value = editRune(fl.value, msg.String())
	}
	f.status, f.failed = "", false
	return f, false
}

func (f form) view() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s\n", titleStyle.Render(f.title))
	if f.intro != "" {
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render(f.intro))
	}
	b.WriteString("\n")

	width := 0
	for _, fl := range f.fields {
		width = max(width, len(fl.label))
	}
	for i, fl := range f.fields {
		shown := fl.value
		if fl.secret {
			shown = strings.Repeat("•", len([]rune(fl.value)))
		}
		label := fmt.Sprintf("%-*s", width, fl.label)
		if i == f.focus {
			fmt.Fprintf(&b, "  %s %s  %s%s\n", inputPromptStyle.Render(">"), selectedStyle.Render(label), normalStyle.Render(shown), accentStyle.Render("█"))
			continue
		}
		if shown == "" {
			shown = inputPlaceholderStyle.Render("·")
		}
		fmt.Fprintf(&b, "    %s  %s\n", metaStyle.Render(label), dimStyle.Render(shown))
	}

	b.WriteString("\n")
	switch {
	case f.busy:
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render("working..."))
	case f.status != "" && f.failed:
		fmt.Fprintf(&b, "  %s\n", errorTextStyle.Render(f.status))
	case f.status != "":
		fmt.Fprintf(&b, "  %s\n", healthyStyle.Render(f.status))
	}
	return b.String()
}
