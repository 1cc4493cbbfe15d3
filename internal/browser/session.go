package browser

import (
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"stockwatch/internal/config"
	"stockwatch/internal/logbus"
)

// Session owns one headless browser for the duration of a run. The profile
// directory is freshly created per run and removed on Close, so no state
// leaks between scheduled invocations.
type Session struct {
	bus      *logbus.Bus
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *Page
	dataDir  string
	closed   bool
}

func Open(cfg config.BrowserConfig, bus *logbus.Bus) (*Session, error) {
	dataDir, err := os.MkdirTemp("", "stockwatch-profile-*")
	if err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	l := launcher.New().
		Headless(cfg.HeadlessMode()).
		NoSandbox(true).
		UserDataDir(dataDir).
		Set("disable-dev-shm-usage").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.Width(), cfg.Height()))
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	u, err := l.Launch()
	if err != nil {
		l.Kill()
		_ = os.RemoveAll(dataDir)
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		_ = os.RemoveAll(dataDir)
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bus.Log("info", "browser session started", map[string]any{"profileDir": dataDir})
	return &Session{bus: bus, launcher: l, browser: b, dataDir: dataDir}, nil
}

// Page returns the session's page, creating it on first use. One page is
// reused for every target in the run.
func (s *Session) Page() (*Page, error) {
	if s.page != nil {
		return s.page, nil
	}
	var p *rod.Page
	if err := rod.Try(func() {
		p = stealth.MustPage(s.browser)
	}); err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = &Page{page: p}
	return s.page, nil
}

// Close releases the browser process and the disposable profile directory.
// Safe to call more than once and on partially failed runs.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.page != nil {
		_ = s.page.page.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
	if s.dataDir != "" {
		_ = os.RemoveAll(s.dataDir)
	}
	s.bus.Log("info", "browser session closed", nil)
}

// Page wraps a rod page with the small surface the detector needs.
type Page struct {
	page *rod.Page
}

func (p *Page) Navigate(url string) error {
	waitDom := p.page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.page.Navigate(url); err != nil {
		return err
	}
	waitDom()
	return nil
}

func (p *Page) WaitBodyReady(timeout time.Duration) error {
	_, err := p.page.Timeout(timeout).Element("body")
	return err
}

func (p *Page) ElementsText(selector string) ([]string, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		out = append(out, text)
	}
	return out, nil
}

func (p *Page) Screenshot(path string) error {
	data, err := p.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
