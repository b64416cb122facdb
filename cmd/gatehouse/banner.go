package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"

	"github.com/naveenspark/gatehouse/pkg/domain"
)

var gateGreetings = [...]string{
	"The gate is shut. It usually is, for people without a token.",
	"No key, no entry. The lock has never once made an exception.",
	"Your session left without you. It did not leave a note.",
	"The gatekeeper checked the list twice. You are on it, just not signed in.",
	"Refresh tokens do not last forever. Neither does my patience.",
	"Every request here carries a badge. Yours is in the drawer.",
	"The torches are lit and the portcullis is down. Knock properly.",
	"A signed-out user is just a visitor with ambitions.",
	"I remember every face that passed. Yours is a little blurry right now.",
	"The bridge is lowered for those with credentials. Bring some.",
	"Somewhere a timer was counting down to your next refresh. It stopped.",
	"The guard on the wall waved. It was not a welcome.",
}

var (
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C9A227")).Bold(true)
	quoteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	attribStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C6A1C"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
)

func printHelp(w io.Writer) {
	art := figure.NewFigure("gatehouse", "cybermedium", true).String()
	quote := quoteStyle.Render(`"State your business. Here is what the gate permits."`)
	attrib := attribStyle.Render("- The Gatekeeper")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	commands := []struct{ cmd, desc string }{
		{"gatehouse", "Open the interactive session console"},
		{"gatehouse login", "Sign in with email and password"},
		{"gatehouse register", "Create an account"},
		{"gatehouse verify-email", "Confirm an email address with its token"},
		{"gatehouse reset-password", "Request or complete a password reset"},
		{"gatehouse whoami", "Show the current session"},
		{"gatehouse refresh", "Renew the access token now"},
		{"gatehouse logout", "End the session on this machine"},
		{"gatehouse docs", "Open the documentation"},
		{"gatehouse --version", "Show version"},
		{"gatehouse help", "You are here"},
	}

	fmt.Fprintf(w, "\n%s\n  %s\n  %s\n\n  Commands:\n", bannerStyle.Render(strings.TrimRight(art, "\n")), quote, attrib)
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", c.cmd)), mutedStyle.Render(c.desc))
	}
	fmt.Fprintf(w, "\n  %s\n\n", mutedStyle.Render("Settings are read from GATEHOUSE_* variables and ./.env"))
}

func printGreeting(w io.Writer) {
	msg := gateGreetings[rand.IntN(len(gateGreetings))]

	fmt.Fprintf(w, "\n%s\n\n%s\n%s\n\n%s\n\n",
		bannerStyle.Render("GATEHOUSE"),
		quoteStyle.Render(msg),
		attribStyle.Render("- The Gatekeeper"),
		mutedStyle.Render("To enter: gatehouse login"))
}

// printSession describes the signed-in user and how long each token lasts.
func printSession(w io.Writer, sess *domain.Session, now time.Time) {
	info := sess.UserInfo()
	fmt.Fprintf(w, "%s <%s>\n", info.Name, info.Email)
	fmt.Fprintf(w, "  user id        %s\n", info.UserID)
	fmt.Fprintf(w, "  access token   %s\n", expiry(sess.AccessTokenExpiration, now))
	fmt.Fprintf(w, "  refresh token  %s\n", expiry(sess.RefreshTokenExpiration, now))
}

func expiry(at, now time.Time) string {
	left := at.Sub(now)
	switch {
	case left <= 0:
		return badStyle.Render("expired")
	case left < 5*time.Minute:
		return warnStyle.Render("expires in " + left.Truncate(time.Second).String())
	}
	return okStyle.Render("expires in " + left.Truncate(time.Second).String())
}
