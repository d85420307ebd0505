package player

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Playback defaults.
const (
	DefaultTimeout = 30 * time.Second
	DefaultDwell   = 2 * time.Second
	settleDelay    = 500 * time.Millisecond
	pollInterval   = 100 * time.Millisecond
)

// scrollScript scrolls the content frame nested in the package wrapper
// to the bottom. Frames share the server origin, so the DOM is reachable.
const scrollScript = `() => {
  try {
    const wrapper = document.getElementById('sco').contentWindow;
    const content = wrapper.document.getElementById('content-frame').contentWindow;
    content.scrollTo(0, content.document.documentElement.scrollHeight);
    return true;
  } catch (e) {
    return false;
  }
}`

// unloadScript navigates the package frame away so the wrapper's unload
// handlers terminate the session against the parent API.
const unloadScript = `() => { document.getElementById('sco').src = 'about:blank'; }`

// Browser drives headless Chrome through go-rod.
// Rod downloads Chromium on first run if no browser is found.
type Browser struct {
	browser *rod.Browser
	timeout time.Duration
}

// NewBrowser creates a Browser with the given page timeout.
func NewBrowser(timeout time.Duration) *Browser {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Browser{timeout: timeout}
}

// ensureBrowser lazily connects to the browser.
func (b *Browser) ensureBrowser() error {
	if b.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b.browser = rod.New().ControlURL(u)
	if err := b.browser.Connect(); err != nil {
		b.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (b *Browser) Close() error {
	if b.browser != nil {
		err := b.browser.Close()
		b.browser = nil
		return err
	}
	return nil
}

// Play opens url, lets the content run for dwell, scrolls it to the end,
// lets it run again and unloads it. Calls reach rec through the server;
// Play returns once a termination is recorded or the settle time passes.
func (b *Browser) Play(ctx context.Context, url string, dwell time.Duration, rec *Recorder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.ensureBrowser(); err != nil {
		return err
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	defer page.Close()

	timeout := b.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}
	page = page.Context(ctx).Timeout(timeout)

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if err := sleep(ctx, dwell); err != nil {
		return err
	}
	if _, err := page.Eval(scrollScript); err != nil {
		return fmt.Errorf("%w: scrolling content: %v", ErrPageLoad, err)
	}
	if err := sleep(ctx, dwell); err != nil {
		return err
	}
	if _, err := page.Eval(unloadScript); err != nil {
		return fmt.Errorf("%w: unloading content: %v", ErrPageLoad, err)
	}

	deadline := time.Now().Add(settleDelay * 4)
	for !rec.Terminated() && time.Now().Before(deadline) {
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	// Beacons sent during unload can trail the termination call.
	return sleep(ctx, settleDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BrowserAvailable reports the browser binary rod would launch, without
// launching it.
func BrowserAvailable() (string, bool) {
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		_, err := os.Stat(bin)
		return bin, err == nil
	}
	return launcher.LookPath()
}
