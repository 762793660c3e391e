// Package console implements the shopdesk command line.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/shopdesk/shopdesk/internal/api"
	"github.com/shopdesk/shopdesk/internal/config"
	"github.com/shopdesk/shopdesk/internal/identity"
	"github.com/shopdesk/shopdesk/internal/log"
	"github.com/shopdesk/shopdesk/internal/push"
)

// App carries what every command needs. It is populated once the root
// command has parsed its flags.
type App struct {
	cfgPath string

	cfg    *config.Config
	logger zerolog.Logger
	id     *identity.Provider
	client *api.Client

	rawIn  io.Reader
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	// readSecret reads a line without echo when stdin is a terminal.
	readSecret func(prompt string) (string, error)
}

func newApp() *App {
	a := &App{
		id:  identity.NewProvider(),
		now: time.Now,
	}
	a.readSecret = a.promptSecret
	return a
}

// setup loads configuration and builds the API client.
func (a *App) setup(in io.Reader, out, errOut io.Writer) error {
	a.rawIn = in
	a.in = bufio.NewReader(in)
	a.out = out
	a.errOut = errOut

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = log.New(cfg.Log, errOut)

	opts := []api.Option{
		api.WithTokenSource(a.id),
		api.WithTimeout(cfg.API.Timeout),
	}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst))
	}
	a.client = api.New(cfg.API.BaseURL, opts...)
	return nil
}

// requireSession restores the saved login, failing when there is none.
func (a *App) requireSession(ctx context.Context) error {
	sess, err := identity.LoadSession(a.cfg.Session.Path)
	if err != nil {
		if errors.Is(err, identity.ErrNotLoggedIn) {
			return fmt.Errorf("%w: run `shopdesk login` first", err)
		}
		return err
	}
	if err := a.id.Bootstrap(ctx, sess, a.client, a.now()); err != nil {
		if errors.Is(err, identity.ErrSessionExpired) || api.IsStatus(err, http.StatusUnauthorized) {
			_ = identity.RemoveSession(a.cfg.Session.Path)
			return fmt.Errorf("%w: log in again", identity.ErrSessionExpired)
		}
		return err
	}
	return nil
}

func (a *App) pushConfig() push.Config {
	p := a.cfg.Push
	return push.Config{
		URL:            p.URL,
		PingInterval:   p.PingInterval,
		PongWait:       p.PongWait,
		WriteWait:      p.WriteWait,
		MaxMessageSize: p.MaxMessageSize,
	}
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// prompt asks for a value unless current already holds one.
func (a *App) prompt(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	fmt.Fprintf(a.errOut, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

func (a *App) promptSecret(label string) (string, error) {
	fmt.Fprintf(a.errOut, "%s: ", label)
	if f, ok := a.rawIn.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.errOut)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
		}
		return string(secret), nil
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
