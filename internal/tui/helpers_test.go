package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/naveenspark/gatehouse/internal/notify"
)

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "expired"},
		{0, "expired"},
		{4*time.Minute + 12*time.Second + 900*time.Millisecond, "4m12s"},
		{59 * time.Second, "0m59s"},
		{2*time.Hour + 5*time.Minute, "2h05m"},
		{3*24*time.Hour + 4*time.Hour, "3d4h"},
	}
	for _, tc := range tests {
		if got := formatCountdown(tc.d); got != tc.want {
			t.Errorf("formatCountdown(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestMaskToken(t *testing.T) {
	if got := maskToken("at_01HZY3Q8W5N6R7S8T9V0W1X2Y3"); got != "at_0••••••X2Y3" {
		t.Errorf("maskToken = %q", got)
	}
	if got := maskToken("short"); got != "•••••" {
		t.Errorf("maskToken(short) = %q", got)
	}
}

func TestTruncStr(t *testing.T) {
	if got := truncStr("hello world", 5); got != "hell…" {
		t.Errorf("truncStr = %q", got)
	}
	if got := truncStr("hi", 5); got != "hi" {
		t.Errorf("truncStr short = %q", got)
	}
}

func TestRenderToastKeepsText(t *testing.T) {
	n := notify.Notification{Severity: notify.Error, Title: "Logout failed", Message: "Failed to logout, you are not logged in"}
	out := renderToast(n, 120)
	if !strings.Contains(out, "Logout failed") || !strings.Contains(out, "you are not logged in") {
		t.Errorf("toast lost its text: %q", out)
	}
	narrow := renderToast(n, 30)
	if strings.Contains(narrow, "you are not logged in") {
		t.Error("message should be truncated on a narrow terminal")
	}
}

func TestShimmerLogoSpellsName(t *testing.T) {
	for _, frame := range []int{0, 17, 250} {
		out := renderShimmerLogo(frame)
		for _, r := range "GATEHOUSE" {
			if !strings.ContainsRune(out, r) {
				t.Errorf("frame %d: logo missing %q", frame, r)
			}
		}
	}
}
