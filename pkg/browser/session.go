// Package browser drives a Chrome instance through the DevTools protocol and
// exposes it as the session the interpreter and its steps work with.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	DefaultTimeout = 30 * time.Second
)

type Options struct {
	// RemoteURL is the DevTools websocket or http endpoint of a running
	// browser. When empty a local Chrome is started.
	RemoteURL string
	Headless  bool
	// Timeout bounds every single browser call.
	Timeout time.Duration
	// BaseURL resolves relative urls given to Open.
	BaseURL string
	Logger  *slog.Logger
}

// Session is one browser tab.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	baseURL     *url.URL
	logger      *slog.Logger
}

// New starts or connects to a browser and opens a tab. The returned session
// lives until Close is called, independently of ctx's deadline.
func New(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "browser")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url '%s': %w", opts.BaseURL, err)
		}
		base = u
	}

	// The browser must outlive any deadline on ctx.
	parent := context.WithoutCancel(ctx)

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", opts.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, allocOpts...)
	}

	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...))
		}),
	)

	chromedp.ListenTarget(tabCtx, func(ev any) {
		if ev, ok := ev.(*runtime.EventConsoleAPICalled); ok {
			args := make([]string, len(ev.Args))
			for i, arg := range ev.Args {
				args[i] = string(arg.Value)
			}
			logger.Debug("console", "type", ev.Type, "message", strings.Join(args, " "))
		}
	})

	s := &Session{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		timeout:     timeout,
		baseURL:     base,
		logger:      logger,
	}

	// The first Run allocates the browser. It must use the long-lived tab
	// context, not one with a timeout.
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("browser session started", "remote", opts.RemoteURL, "headless", opts.Headless)
	return s, nil
}

// Close shuts the tab and, for a local browser, the browser process.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

// run executes actions in the tab. It honors the cancellation of the
// caller's ctx as well as the per call timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, s.timeout, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, s.timeout, chromedp.Navigate(url))
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *Session) Evaluate(ctx context.Context, script string, res any) error {
	return s.run(ctx, s.timeout, chromedp.Evaluate(script, res))
}

// Open navigates to target, resolved against the base url or, without
// one, against the current page.
func (s *Session) Open(ctx context.Context, target string) error {
	base := s.baseURL
	if base == nil {
		current, err := s.CurrentURL(ctx)
		if err != nil {
			return err
		}
		if base, err = url.Parse(current); err != nil {
			return fmt.Errorf("invalid current url '%s': %w", current, err)
		}
	}

	resolved, err := resolveURL(base, target)
	if err != nil {
		return err
	}

	s.logger.Debug("opening page", "url", resolved)
	return s.Navigate(ctx, resolved)
}

func (s *Session) Click(ctx context.Context, locator string) error {
	loc, err := ParseLocator(locator)
	if err != nil {
		return err
	}
	return s.run(ctx, s.timeout, chromedp.Click(loc.Selector, loc.queryOptions()...))
}

func (s *Session) Type(ctx context.Context, locator, text string) error {
	loc, err := ParseLocator(locator)
	if err != nil {
		return err
	}
	opts := loc.queryOptions()
	return s.run(ctx, s.timeout,
		chromedp.SetValue(loc.Selector, "", opts...),
		chromedp.SendKeys(loc.Selector, text, opts...),
	)
}

func (s *Session) WaitForPageToLoad(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.timeout
	}
	var ready bool
	return s.run(ctx, timeout,
		chromedp.Poll(`document.readyState === "complete"`, &ready, chromedp.WithPollingTimeout(timeout)),
	)
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, s.timeout, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (s *Session) Text(ctx context.Context, locator string) (string, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return "", err
	}
	var text string
	if err := s.run(ctx, s.timeout, chromedp.Text(loc.Selector, &text, loc.queryOptions()...)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *Session) Value(ctx context.Context, locator string) (string, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return "", err
	}
	var value string
	if err := s.run(ctx, s.timeout, chromedp.Value(loc.Selector, &value, loc.queryOptions()...)); err != nil {
		return "", err
	}
	return value, nil
}

func (s *Session) IsElementPresent(ctx context.Context, locator string) (bool, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return false, err
	}
	var nodes []*cdp.Node
	opts := append(loc.queryOptions(), chromedp.AtLeast(0))
	if err := s.run(ctx, s.timeout, chromedp.Nodes(loc.Selector, &nodes, opts...)); err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	script := `document.body ? document.body.innerText : ""`
	if err := s.run(ctx, s.timeout, chromedp.Evaluate(script, &text)); err != nil {
		return "", err
	}
	return text, nil
}

func (s *Session) Eval(ctx context.Context, script string) (string, error) {
	var res any
	if err := s.run(ctx, s.timeout, chromedp.Evaluate(script, &res)); err != nil {
		return "", err
	}
	return formatEvalResult(res)
}

// formatEvalResult renders a decoded script result the way it would read
// in a table cell.
func formatEvalResult(res any) (string, error) {
	switch v := res.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode script result: %w", err)
		}
		return string(b), nil
	}
}

func resolveURL(base *url.URL, target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url '%s': %w", target, err)
	}
	if base == nil || ref.IsAbs() {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
