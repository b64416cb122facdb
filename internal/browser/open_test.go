package browser

import (
	"errors"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		link string
		ok   bool
	}{
		{"https://github.com/naveenspark/gatehouse#readme", true},
		{"http://localhost:8080/docs", true},
		{"file:///etc/passwd", false},
		{"javascript:alert(1)", false},
		{"/relative/path", false},
		{"", false},
	}
	for _, tt := range tests {
		err := check(tt.link)
		if tt.ok && err != nil {
			t.Errorf("check(%q) = %v, want nil", tt.link, err)
		}
		if !tt.ok && !errors.Is(err, ErrUnsupportedURL) {
			t.Errorf("check(%q) = %v, want ErrUnsupportedURL", tt.link, err)
		}
	}
}

func TestCommand(t *testing.T) {
	for goos, want := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
		cmd := command(goos, "https://example.com")
		if cmd == nil {
			t.Fatalf("command(%q) = nil", goos)
		}
		if cmd.Args[0] != want {
			t.Errorf("command(%q) runs %q, want %q", goos, cmd.Args[0], want)
		}
		if last := cmd.Args[len(cmd.Args)-1]; last != "https://example.com" {
			t.Errorf("command(%q) last arg = %q", goos, last)
		}
	}
	if command("plan9", "https://example.com") != nil {
		t.Error("command(plan9) should be nil")
	}
}
