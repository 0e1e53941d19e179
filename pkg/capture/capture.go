package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/root4loot/goutils/log"
)

// Capturer renders local HTML documents in a headless browser and returns
// the decoded screenshot. It is the asynchronous half of the pipeline; the
// synchronous composition step lives in pkg/compose.
type Capturer struct {
	Options captureOptions
}

// captureOptions contains the options for capturing screenshots.
type captureOptions struct {
	ViewportWidth     int     // Width of the browser viewport
	ViewportHeight    int     // Height of the browser viewport
	DeviceScaleFactor float64 // Device scale factor, clamped to >= 1.0
	WaitSeconds       float64 // Seconds to wait after load for assets to settle
	Zoom              float64 // CSS zoom applied before the screenshot
	Selector          string  // CSS selector to capture instead of the full page
	Timeout           int     // Timeout for the whole capture (seconds)
	Headless          bool    // Run the browser headless
}

// NewOptions returns a captureOptions struct initialized with default values.
func NewOptions() captureOptions {
	return captureOptions{
		ViewportWidth:     3840,
		ViewportHeight:    2160,
		DeviceScaleFactor: 2.0,
		WaitSeconds:       1.0,
		Zoom:              1.0,
		Timeout:           30,
		Headless:          true,
	}
}

// NewCapturer creates a Capturer with default options.
func NewCapturer() *Capturer {
	return &Capturer{Options: NewOptions()}
}

// NewCapturerWithOptions creates a Capturer with the provided options.
func NewCapturerWithOptions(options captureOptions) *Capturer {
	return &Capturer{Options: options}
}

// Capture renders the HTML document at htmlPath and returns one screenshot.
// The page is captured full-page unless a selector is configured, in which
// case only the matching element is captured.
func (c *Capturer) Capture(htmlPath string) (image.Image, error) {
	uri, err := fileURI(htmlPath)
	if err != nil {
		return nil, err
	}

	log.Debugf("Attempting capture on %s", uri)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.Options.Timeout)*time.Second)
	defer cancel()

	path, _ := launcher.LookPath()

	l := launcher.New().
		Headless(c.Options.Headless).
		Bin(path).
		NoSandbox(true)

	browserURL := l.MustLaunch()
	browser := rod.New().ControlURL(browserURL).MustConnect()
	defer browser.MustClose()

	page := browser.MustPage("")

	scaleFactor := c.Options.DeviceScaleFactor
	if scaleFactor < 1.0 {
		scaleFactor = 1.0
	}

	viewport := &proto.EmulationSetDeviceMetricsOverride{
		Width:             c.Options.ViewportWidth,
		Height:            c.Options.ViewportHeight,
		DeviceScaleFactor: scaleFactor,
		Mobile:            false,
	}

	if err := page.SetViewport(viewport); err != nil {
		return nil, fmt.Errorf("error setting viewport: %w", err)
	}

	if err := page.Context(ctx).Navigate(uri); err != nil {
		return nil, fmt.Errorf("error navigating to %s: %w", uri, err)
	}

	if err := page.Context(ctx).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%s timed out after %v: %w", uri, time.Duration(c.Options.Timeout)*time.Second, err)
	}

	if c.Options.WaitSeconds > 0 {
		time.Sleep(time.Duration(c.Options.WaitSeconds * float64(time.Second)))
	}

	if c.Options.Zoom != 1.0 {
		_, err := page.Context(ctx).Eval(`(value) => {
			document.body.style.transformOrigin = 'top left'
			document.body.style.zoom = value
		}`, c.Options.Zoom)
		if err != nil {
			return nil, fmt.Errorf("error applying zoom %v: %w", c.Options.Zoom, err)
		}
	}

	var raw []byte
	if c.Options.Selector != "" {
		el, err := page.Context(ctx).Element(c.Options.Selector)
		if err != nil {
			return nil, fmt.Errorf("error finding element %q: %w", c.Options.Selector, err)
		}
		raw, err = el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
		if err != nil {
			return nil, fmt.Errorf("error capturing element %q: %w", c.Options.Selector, err)
		}
	} else {
		raw, err = page.Screenshot(true, nil)
		if err != nil {
			return nil, fmt.Errorf("error capturing screenshot for %s: %w", uri, err)
		}
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("error decoding screenshot: %w", err)
	}

	return img, nil
}

// fileURI resolves htmlPath and converts it to a file:// URL the browser
// can navigate to. The file must exist.
func fileURI(htmlPath string) (string, error) {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return "", fmt.Errorf("error resolving path %s: %w", htmlPath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("HTML file not found: %s", abs)
	}
	if info.IsDir() {
		return "", fmt.Errorf("not a file: %s", abs)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
