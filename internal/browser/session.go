// Package browser wraps chromedp behind the small capability set the
// campaign worker needs: navigate, wait for a clickable element, click,
// screenshot.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Session is one controllable browser instance. Implementations keep a
// logged-in WhatsApp Web state alive via a persistent profile directory.
type Session interface {
	Navigate(url string) error
	WaitClickable(selector string, timeout time.Duration) error
	Click(selector string) error
	Screenshot() ([]byte, error)
	// Err reports whether the underlying browser is still alive.
	Err() error
	Close()
}

// Factory opens sessions. The worker holds a Factory so tests can swap in
// a scripted session.
type Factory interface {
	Open(ctx context.Context) (Session, error)
}

// ChromeFactory opens headless Chrome sessions bound to one profile
// directory. Concurrent sessions must not share a ProfileDir.
type ChromeFactory struct {
	ProfileDir string
}

func (f ChromeFactory) Open(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserDataDir(f.ProfileDir),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Forces the browser process to actually start.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, err
	}
	return &chromeSession{ctx: browserCtx, cancels: []context.CancelFunc{cancelBrowser, cancelAlloc}}, nil
}

type chromeSession struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

func (s *chromeSession) Navigate(url string) error {
	return chromedp.Run(s.ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitClickable(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.WaitEnabled(selector, chromedp.ByQuery),
	)
}

func (s *chromeSession) Click(selector string) error {
	return chromedp.Run(s.ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromeSession) Screenshot() ([]byte, error) {
	var png []byte
	if err := chromedp.Run(s.ctx, chromedp.CaptureScreenshot(&png)); err != nil {
		return nil, err
	}
	return png, nil
}

func (s *chromeSession) Err() error { return s.ctx.Err() }

func (s *chromeSession) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}
