package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/rs/zerolog"

	"github.com/naveenspark/gatehouse/internal/browser"
	"github.com/naveenspark/gatehouse/internal/config"
	"github.com/naveenspark/gatehouse/internal/notify"
	"github.com/naveenspark/gatehouse/internal/router"
	"github.com/naveenspark/gatehouse/internal/session"
	"github.com/naveenspark/gatehouse/internal/tui"
	"github.com/naveenspark/gatehouse/pkg/client"
	"github.com/naveenspark/gatehouse/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cli is one invocation: config, streams and the wired session stack.
type cli struct {
	cfg    *config.Config
	stdin  io.Reader
	in     *bufio.Reader
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger

	state  *session.State
	mgr    *session.Manager
	router *router.Router
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "--version", "version", "-v":
		fmt.Fprintln(stdout, "gatehouse "+version)
		return nil
	case "help", "--help", "-h":
		printHelp(stdout)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c := &cli{cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr}

	switch cmd {
	case "":
		return c.runTUI()
	case "docs":
		if err := browser.Open(cfg.DocsURL); err != nil {
			fmt.Fprintln(stdout, cfg.DocsURL)
		}
		return nil
	case "login":
		return c.runLogin(args)
	case "register":
		return c.runRegister(args)
	case "logout":
		return c.withSession(c.runLogout)
	case "whoami":
		return c.withSession(c.runWhoami)
	case "refresh":
		return c.withSession(c.runRefresh)
	case "verify-email":
		return c.runVerifyEmail(args)
	case "reset-password":
		return c.runResetPassword(args)
	}
	printHelp(stderr)
	return fmt.Errorf("unknown command %q", cmd)
}

// wire builds the session stack. note receives every toast.
func (c *cli) wire(note notify.Notifier) {
	c.state = session.NewState()
	api := client.New(c.cfg.APIURL, c.state, c.cfg.APITimeout)
	store := session.NewStore(session.NewFileStorage(c.cfg.DataDir))
	c.router = router.New(router.DefaultRoutes)
	c.router.BeforeEach(router.Guard(c.state))
	c.mgr = session.NewManager(api, c.state, store, session.Options{
		Notifier:  note,
		Navigator: c.router,
		Logger:    c.log,
	})
}

// headless prepares logging to stderr and toasts to stdout.
func (c *cli) headless() {
	c.log = zerolog.New(zerolog.ConsoleWriter{Out: c.stderr, TimeFormat: time.Kitchen}).
		Level(c.cfg.LogLevel).With().Timestamp().Logger()
	c.wire(notify.NewWriter(c.stdout))
}

// withSession restores the stored session before fn and stops the refresh
// timer after it.
func (c *cli) withSession(fn func(ctx context.Context) error) error {
	c.headless()
	ctx, cancel := context.WithTimeout(context.Background(), 2*c.cfg.APITimeout)
	defer cancel()
	defer c.mgr.Scheduler().Cancel()
	if err := c.mgr.Restore(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

func (c *cli) runTUI() error {
	if err := os.MkdirAll(c.cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create %s: %w", c.cfg.DataDir, err)
	}
	logFile, err := os.OpenFile(c.cfg.LogFile(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close() //nolint:errcheck
	c.log = zerolog.New(logFile).Level(c.cfg.LogLevel).With().Timestamp().Logger()

	bridge := tui.NewBridge()
	defer bridge.Close()
	c.wire(bridge)
	defer c.mgr.Scheduler().Cancel()
	stop := bridge.Watch(c.state, c.router)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*c.cfg.APITimeout)
	err = c.mgr.Restore(ctx)
	cancel()
	if err != nil {
		c.log.Warn().Err(err).Msg("restore session")
	}

	app := tui.NewApp(c.mgr, c.router, tui.Options{
		DocsURL:  c.cfg.DocsURL,
		Version:  version,
		Notifier: bridge,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	bridge.Attach(p.Send)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func (c *cli) runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		v, err := c.prompt("Email: ")
		if err != nil {
			return err
		}
		*email = v
	}
	password, err := c.password("Password: ")
	if err != nil {
		return err
	}

	return c.withSession(func(ctx context.Context) error {
		if err := c.mgr.Login(ctx, *email, password); err != nil {
			notify.DisplayError(notify.NewWriter(c.stdout), err)
			return errors.New("login failed")
		}
		info := c.state.UserInfo()
		if info == nil {
			return c.expired()
		}
		fmt.Fprintf(c.stdout, "Signed in as %s <%s>\n", info.Name, info.Email)
		return nil
	})
}

func (c *cli) runRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", "", "account email")
	first := fs.String("first-name", "", "first name")
	last := fs.String("last-name", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, f := range []struct {
		v     *string
		label string
	}{{email, "Email: "}, {first, "First name: "}, {last, "Last name: "}} {
		if *f.v != "" {
			continue
		}
		v, err := c.prompt(f.label)
		if err != nil {
			return err
		}
		*f.v = v
	}
	password, err := c.password("Password (min. 10 characters): ")
	if err != nil {
		return err
	}

	c.headless()
	req := domain.RegisterRequest{Email: *email, FirstName: *first, LastName: *last, Password: password}
	if err := c.mgr.Register(context.Background(), req); err != nil {
		notify.DisplayError(notify.NewWriter(c.stdout), err)
		return errors.New("registration failed")
	}
	fmt.Fprintf(c.stdout, "Account created for %s. Check your inbox, then run: gatehouse verify-email <token>\n", *email)
	return nil
}

func (c *cli) runLogout(ctx context.Context) error {
	if err := c.mgr.Logout(ctx); err != nil {
		return err
	}
	if !c.state.LoggedIn() {
		printGreeting(c.stdout)
	}
	return nil
}

func (c *cli) runWhoami(_ context.Context) error {
	sess := c.state.Current()
	if sess == nil {
		fmt.Fprintln(c.stdout, "Not signed in.")
		return nil
	}
	printSession(c.stdout, sess, time.Now())
	return nil
}

func (c *cli) runRefresh(ctx context.Context) error {
	if !c.state.LoggedIn() {
		fmt.Fprintln(c.stdout, "Not signed in.")
		return nil
	}
	if err := c.mgr.Refresh(ctx); err != nil {
		notify.DisplayError(notify.NewWriter(c.stdout), err)
		return errors.New("refresh failed")
	}
	sess := c.state.Current()
	if sess == nil {
		return c.expired()
	}
	fmt.Fprintf(c.stdout, "Access token renewed, valid until %s\n", sess.AccessTokenExpiration.Local().Format(time.Kitchen))
	return nil
}

// expired reports a session the server issued already unusable.
func (c *cli) expired() error {
	fmt.Fprintln(c.stdout, "The session expired as soon as it was issued. Sign in again.")
	return errors.New("session expired")
}

func (c *cli) runVerifyEmail(args []string) error {
	fs := flag.NewFlagSet("verify-email", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	resend := fs.Bool("resend", false, "send a new verification email instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: gatehouse verify-email [--resend] <token>")
	}
	token := fs.Arg(0)

	c.headless()
	ctx := context.Background()
	if *resend {
		if err := c.mgr.ResendVerificationEmail(ctx, token); err != nil {
			notify.DisplayError(notify.NewWriter(c.stdout), err)
			return errors.New("resend failed")
		}
		fmt.Fprintln(c.stdout, "A new verification email is on its way.")
		return nil
	}
	if err := c.mgr.VerifyEmail(ctx, token); err != nil {
		notify.DisplayError(notify.NewWriter(c.stdout), err)
		return errors.New("verification failed")
	}
	fmt.Fprintln(c.stdout, "Email verified. You can now run: gatehouse login")
	return nil
}

func (c *cli) runResetPassword(args []string) error {
	if len(args) != 2 || (args[0] != "begin" && args[0] != "finish") {
		return errors.New("usage: gatehouse reset-password begin <email> | finish <token>")
	}

	if args[0] == "begin" {
		c.headless()
		if err := c.mgr.BeginResetPassword(context.Background(), args[1]); err != nil {
			notify.DisplayError(notify.NewWriter(c.stdout), err)
			return errors.New("reset failed")
		}
		fmt.Fprintln(c.stdout, "If the address is registered, a reset token is on its way.")
		return nil
	}

	password, err := c.password("New password (min. 10 characters): ")
	if err != nil {
		return err
	}
	c.headless()
	if err := c.mgr.ResetPassword(context.Background(), args[1], password); err != nil {
		notify.DisplayError(notify.NewWriter(c.stdout), err)
		return errors.New("reset failed")
	}
	fmt.Fprintln(c.stdout, "Password changed. You can now run: gatehouse login")
	return nil
}

// password reads a secret from GATEHOUSE_PASSWORD, the terminal without
// echo, or one line of stdin.
func (c *cli) password(label string) (string, error) {
	if c.cfg.Password != "" {
		return c.cfg.Password, nil
	}
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(f.Fd()) {
		fmt.Fprint(c.stderr, label)
		b, err := term.ReadPassword(f.Fd())
		fmt.Fprintln(c.stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return c.prompt(label)
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.stderr, label)
	if c.in == nil {
		c.in = bufio.NewReader(c.stdin)
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}
