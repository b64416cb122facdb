// Package browser hands documentation links to the desktop's URL handler.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// ErrUnsupportedURL is returned for anything other than an absolute
// http(s) URL.
var ErrUnsupportedURL = errors.New("only http and https links can be opened")

// command returns the launcher for goos, or nil when there is none.
func command(goos, link string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", link)
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", link)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
	}
	return nil
}

// Open opens link in the user's default browser without waiting for it.
func Open(link string) error {
	if err := check(link); err != nil {
		return err
	}
	cmd := command(runtime.GOOS, link)
	if cmd == nil {
		return fmt.Errorf("browser.Open: unsupported OS: %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser.Open: %w", err)
	}
	return nil
}

func check(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("browser.Open: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("browser.Open: %q: %w", link, ErrUnsupportedURL)
	}
	return nil
}
