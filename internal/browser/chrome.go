package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"airlift/internal/services"
)

// chromeState is the serialized form stored in a session descriptor.
type chromeState struct {
	Cookies []*network.Cookie `json:"cookies"`
}

type chromeDriver struct {
	headless bool
}

// NewChromeDriver returns a Driver backed by a headless Chrome instance via
// the DevTools protocol.
func NewChromeDriver() Driver {
	return &chromeDriver{headless: true}
}

func (d *chromeDriver) Launch(ctx context.Context, state json.RawMessage) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.headless),
		chromedp.NoSandbox,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force the browser process to start so launch failures surface here
	// rather than on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	session := &chromeSession{tabCtx: tabCtx, tabCancel: tabCancel, allocCancel: allocCancel}
	if len(state) > 0 {
		if err := session.restore(ctx, state); err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("restore session state: %w", err)
		}
	}
	return session, nil
}

type chromeSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

func (s *chromeSession) restore(ctx context.Context, state json.RawMessage) error {
	var parsed chromeState
	if err := json.Unmarshal(state, &parsed); err != nil {
		return err
	}
	if len(parsed.Cookies) == 0 {
		return nil
	}

	params := make([]*network.CookieParam, 0, len(parsed.Cookies))
	for _, cookie := range parsed.Cookies {
		param := &network.CookieParam{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HTTPOnly,
			SameSite: cookie.SameSite,
		}
		if cookie.Expires > 0 {
			expiry := cdp.TimeSinceEpoch(time.Unix(int64(cookie.Expires), 0))
			param.Expires = &expiry
		}
		params = append(params, param)
	}
	return s.run(ctx, storage.SetCookies(params))
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := s.runWith(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "browser", "wait",
			fmt.Sprintf("element %q not visible within %s", selector, timeout), err)
	}
	return err
}

func (s *chromeSession) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (s *chromeSession) SelectOption(ctx context.Context, selector, value string) error {
	return s.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

func (s *chromeSession) SetFiles(ctx context.Context, selector string, paths ...string) error {
	return s.run(ctx, chromedp.SetUploadFiles(selector, paths, chromedp.ByQuery))
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromeSession) State(ctx context.Context) (json.RawMessage, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(actionCtx context.Context) error {
		var actionErr error
		cookies, actionErr = storage.GetCookies().Do(actionCtx)
		return actionErr
	}))
	if err != nil {
		return nil, fmt.Errorf("capture cookies: %w", err)
	}
	state, err := json.Marshal(chromeState{Cookies: cookies})
	if err != nil {
		return nil, fmt.Errorf("marshal session state: %w", err)
	}
	return state, nil
}

func (s *chromeSession) Close() error {
	s.tabCancel()
	s.allocCancel()
	return nil
}

// run executes actions on the session tab while honoring cancellation of the
// caller's context.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	return s.runWith(ctx, actions...)
}

func (s *chromeSession) runWith(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.tabCtx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
