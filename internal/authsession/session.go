// Package authsession opens a platform consent page in the user's browser and
// waits for the redirect back.
package authsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"github.com/gofiber/fiber/v2"
)

type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultCancel  ResultType = "cancel"
	ResultDismiss ResultType = "dismiss"
)

// Result is the outcome of one browser session. URL is the full redirect URL
// and is only set on success.
type Result struct {
	Type ResultType
	URL  string
}

type Session interface {
	Open(ctx context.Context, authURL, redirectURI string) (Result, error)
}

// Opener hands the authorization URL to whatever shows it to the user.
type Opener func(authURL string) error

// Loopback serves the redirect URI on its own host and path and resolves on
// the first request to it.
type Loopback struct {
	opener Opener
}

var _ Session = (*Loopback)(nil)

func NewLoopback(opener Opener) *Loopback {
	return &Loopback{opener: opener}
}

const closePage = `<html><body><p>You can close this window and return to the terminal.</p></body></html>`

func (l *Loopback) Open(ctx context.Context, authURL, redirectURI string) (Result, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return Result{}, fmt.Errorf("invalid redirect uri: %w", err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return Result{}, errors.New("loopback session needs an http redirect uri with a host")
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return Result{}, fmt.Errorf("listen on %s: %w", u.Host, err)
	}

	redirected := make(chan string, 1)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get(path, func(c *fiber.Ctx) error {
		callback := *u
		callback.RawQuery = string(c.Request().URI().QueryString())
		select {
		case redirected <- callback.String():
		default:
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(closePage)
	})

	go func() {
		if err := app.Listener(ln); err != nil {
			slog.Info(err.Error())
		}
	}()
	defer func() {
		if err := app.Shutdown(); err != nil {
			slog.Warn("loopback shutdown", "error", err)
		}
		// Serve may not have started yet; closing the listener ends it either way.
		_ = ln.Close()
	}()

	if l.opener != nil {
		if err := l.opener(authURL); err != nil {
			return Result{Type: ResultDismiss}, fmt.Errorf("open browser: %w", err)
		}
	}

	select {
	case got := <-redirected:
		return Result{Type: ResultSuccess, URL: got}, nil
	case <-ctx.Done():
		// nobody came back in time
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Type: ResultDismiss}, nil
		}
		return Result{Type: ResultCancel}, nil
	}
}
