package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/chromedp/chromedp"

	"sitescout/internal/logging"
)

// ChromeDriver drives a Chrome instance through chromedp.
type ChromeDriver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// findChrome attempts to find a Chrome executable in common locations.
func findChrome() (string, error) {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		}
	case "linux":
		paths = []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}

	for _, path := range paths {
		if runtime.GOOS == "darwin" {
			if _, err := os.Stat(path); err == nil {
				logging.Debug("Found Chrome at: %s", path)
				return path, nil
			}
		} else {
			if _, err := exec.LookPath(path); err == nil {
				logging.Debug("Found Chrome at: %s", path)
				return path, nil
			}
		}
	}

	if path, err := exec.LookPath("chrome"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("chrome browser not found, install Chrome or Chromium")
}

// NewChromeDriver opens a new Chrome session.
func NewChromeDriver(ctx context.Context, headless bool) (*ChromeDriver, error) {
	chromePath, err := findChrome()
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if !headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, v ...interface{}) {
			logging.Debug("[chrome] "+format, v...)
		}),
	)

	// Starting the browser eagerly surfaces launch failures here instead of
	// on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logging.Info("Browser session opened (headless=%v)", headless)
	return &ChromeDriver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
	}, nil
}

// NewChromeFactory returns a Factory that opens Chrome sessions.
func NewChromeFactory(headless bool) Factory {
	return func(ctx context.Context) (Driver, error) {
		return NewChromeDriver(ctx, headless)
	}
}

// Navigate loads the given URL and waits for the document body.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := d.withDeadline(ctx)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond), // let late JS settle
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// CurrentURL returns the URL of the current page.
func (d *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	runCtx, cancel := d.withDeadline(ctx)
	defer cancel()

	var url string
	err := chromedp.Run(runCtx, chromedp.Location(&url))
	return url, err
}

// PageTitle returns the current page title.
func (d *ChromeDriver) PageTitle(ctx context.Context) (string, error) {
	runCtx, cancel := d.withDeadline(ctx)
	defer cancel()

	var title string
	err := chromedp.Run(runCtx, chromedp.Title(&title))
	return title, err
}

// PageSource returns the serialized HTML of the current page.
func (d *ChromeDriver) PageSource(ctx context.Context) (string, error) {
	runCtx, cancel := d.withDeadline(ctx)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return html, nil
}

// Screenshot captures a full-page screenshot to the given path.
func (d *ChromeDriver) Screenshot(ctx context.Context, path string) error {
	runCtx, cancel := d.withDeadline(ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}

// Close releases the browser session.
func (d *ChromeDriver) Close() error {
	d.cancel()
	d.allocCancel()
	logging.Info("Browser session closed")
	return nil
}

func (d *ChromeDriver) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(d.ctx, deadline)
	}
	return context.WithCancel(d.ctx)
}

// QuerySelectorAll evaluates the probe script for the given selector and
// returns a description of every matching node.
func (d *ChromeDriver) QuerySelectorAll(ctx context.Context, selector string) ([]ElementInfo, error) {
	runCtx, cancel := d.withDeadline(ctx)
	defer cancel()

	script := fmt.Sprintf(probeScript, jsString(selector))

	var result string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &result)); err != nil {
		return nil, fmt.Errorf("element probe failed for %q: %w", selector, err)
	}

	if result == "" || result == "undefined" || result == "null" {
		return []ElementInfo{}, nil
	}

	var infos []ElementInfo
	if err := json.Unmarshal([]byte(result), &infos); err != nil {
		return nil, fmt.Errorf("failed to parse probe result for %q: %w", selector, err)
	}
	return infos, nil
}

// jsString encodes a Go string as a JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// probeScript walks every node matching a selector and serializes the
// details the analyzer needs: targeting info, visibility, geometry, and
// surrounding context.
const probeScript = `
	(function() {
		const out = [];

		function elementText(el) {
			return (el.textContent || '').trim().slice(0, 200) ||
				   el.value ||
				   el.placeholder ||
				   el.alt ||
				   el.title ||
				   el.getAttribute('aria-label') ||
				   '';
		}

		function cssSelector(el) {
			if (el.id) return '#' + CSS.escape(el.id);
			const parts = [];
			let node = el;
			while (node && node.nodeType === 1 && parts.length < 4) {
				let part = node.tagName.toLowerCase();
				if (node.id) {
					parts.unshift('#' + CSS.escape(node.id));
					break;
				}
				const cls = (node.className && typeof node.className === 'string')
					? node.className.split(' ').filter(c => c.trim())[0] : null;
				if (cls) part += '.' + CSS.escape(cls);
				const parent = node.parentElement;
				if (parent) {
					const siblings = Array.from(parent.children).filter(c => c.tagName === node.tagName);
					if (siblings.length > 1) part += ':nth-of-type(' + (siblings.indexOf(node) + 1) + ')';
				}
				parts.unshift(part);
				node = parent;
			}
			return parts.join(' > ');
		}

		function xpathOf(el) {
			if (el.id) return '//*[@id="' + el.id + '"]';
			const parts = [];
			let node = el;
			while (node && node.nodeType === 1) {
				let index = 1;
				for (let sib = node.previousElementSibling; sib; sib = sib.previousElementSibling) {
					if (sib.tagName === node.tagName) index++;
				}
				parts.unshift(node.tagName.toLowerCase() + '[' + index + ']');
				node = node.parentElement;
			}
			return '/' + parts.join('/');
		}

		function parentContext(el) {
			const p = el.parentElement;
			if (!p) return '';
			let desc = p.tagName.toLowerCase();
			if (p.id) desc += '#' + p.id;
			else if (p.className && typeof p.className === 'string') {
				const cls = p.className.split(' ').filter(c => c.trim())[0];
				if (cls) desc += '.' + cls;
			}
			return desc;
		}

		document.querySelectorAll(%s).forEach(el => {
			const rect = el.getBoundingClientRect();
			const attrs = {};
			for (const attr of el.attributes) {
				attrs[attr.name] = attr.value;
			}
			out.push({
				tag: el.tagName.toLowerCase(),
				text: elementText(el),
				selector: cssSelector(el),
				xpath: xpathOf(el),
				attributes: attrs,
				position: { x: rect.left, y: rect.top, width: rect.width, height: rect.height },
				visible: el.offsetParent !== null && rect.width > 0 && rect.height > 0,
				enabled: !el.disabled,
				parent_context: parentContext(el),
				child_count: el.children.length
			});
		});

		return JSON.stringify(out);
	})();
`
