package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/root4loot/goutils/log"

	"github.com/deckforge/slidecap/pkg/capture"
	"github.com/deckforge/slidecap/pkg/compose"
	"github.com/deckforge/slidecap/pkg/output"
)

const (
	version = "0.1.0"
	usage   = `USAGE:
  slidecap [options] -t <document.html>

INPUT:
  -t,   --target                 HTML document to render

CONFIGURATIONS:
  -sw,  --width                  slide width in pixels                         (Default: 3840)
  -sh,  --height                 slide height in pixels                        (Default: 2160)
  -m,   --mode                   fit (letterbox) or fill (cover)               (Default: fit)
  -fx,  --focus-x                horizontal crop focus 0-1 when using fill     (Default: 0.5)
  -fy,  --focus-y                vertical crop focus 0-1 when using fill       (Default: 0.5)
  -bg,  --background             letterbox color as R,G,B                      (Default: 5,5,8)
  -s,   --selector               CSS selector to capture instead of the page
  -z,   --zoom                   CSS zoom applied before capture               (Default: 1.0)
  -wt,  --wait                   seconds to wait after load for assets         (Default: 1.0)
  -sf,  --scale-factor           device scale factor for crisper captures      (Default: 2.0)
  -to,  --timeout                capture timeout (seconds)                     (Default: 30)

OUTPUT:
  -o,   --outfolder              save slides under this folder                 (Default: ./output)
  -ow,  --overwrite              regenerate the slide even if it exists        (Default: false)
  -lb,  --label                  imprint the document name on the slide        (Default: false)
        --debug                  enable debug mode
        --version                display version
`
)

type cli struct {
	*capture.Capturer
	TargetPath  string
	Mode        string
	Background  string
	ComposeOpts compose.Options
	OutFolder   string
	Overwrite   bool
	Label       bool
}

func NewCLI() *cli {
	return &cli{
		Capturer:    capture.NewCapturerWithOptions(capture.NewOptions()),
		ComposeOpts: compose.NewOptions(),
	}
}

func init() {
	log.Init("slidecap")
}

func main() {
	cli := NewCLI()
	cli.parseFlags()

	if err := cli.run(); err != nil {
		handleCaptureError(cli.TargetPath, err)
		os.Exit(1)
	}
}

func (cli *cli) run() error {
	img, err := cli.Capturer.Capture(cli.TargetPath)
	if err != nil {
		return err
	}

	slide, err := compose.Compose(img, cli.ComposeOpts)
	if err != nil {
		return fmt.Errorf("error composing slide for %s: %w", cli.TargetPath, err)
	}

	var out image.Image = slide
	if cli.Label {
		out, err = compose.AddLabel(slide, filepath.Base(cli.TargetPath))
		if err != nil {
			return fmt.Errorf("error adding label for %s: %w", cli.TargetPath, err)
		}
	}

	writer := &output.Writer{Root: cli.OutFolder, Overwrite: cli.Overwrite}
	filename, skipped, err := writer.Save(out, cli.TargetPath)
	if err != nil {
		return err
	}

	if skipped {
		log.Warnf("Skipping %s (already exists, use --overwrite to regenerate)", filename)
		return nil
	}

	log.Resultf("Slide saved to %s", filename)
	return nil
}

func (cli *cli) parseFlags() {
	var help, ver, debug bool

	composeOptions := compose.NewOptions()
	captureOptions := capture.NewOptions()

	// TARGET
	flag.StringVar(&cli.TargetPath, "target", "", "")
	flag.StringVar(&cli.TargetPath, "t", "", "")

	// CONFIGURATIONS
	flag.IntVar(&cli.ComposeOpts.Width, "width", composeOptions.Width, "")
	flag.IntVar(&cli.ComposeOpts.Width, "sw", composeOptions.Width, "")
	flag.IntVar(&cli.ComposeOpts.Height, "height", composeOptions.Height, "")
	flag.IntVar(&cli.ComposeOpts.Height, "sh", composeOptions.Height, "")
	flag.StringVar(&cli.Mode, "mode", string(composeOptions.Mode), "")
	flag.StringVar(&cli.Mode, "m", string(composeOptions.Mode), "")
	flag.Float64Var(&cli.ComposeOpts.FocusX, "focus-x", composeOptions.FocusX, "")
	flag.Float64Var(&cli.ComposeOpts.FocusX, "fx", composeOptions.FocusX, "")
	flag.Float64Var(&cli.ComposeOpts.FocusY, "focus-y", composeOptions.FocusY, "")
	flag.Float64Var(&cli.ComposeOpts.FocusY, "fy", composeOptions.FocusY, "")
	flag.StringVar(&cli.Background, "background", "5,5,8", "")
	flag.StringVar(&cli.Background, "bg", "5,5,8", "")
	flag.StringVar(&cli.Options.Selector, "selector", "", "")
	flag.StringVar(&cli.Options.Selector, "s", "", "")
	flag.Float64Var(&cli.Options.Zoom, "zoom", captureOptions.Zoom, "")
	flag.Float64Var(&cli.Options.Zoom, "z", captureOptions.Zoom, "")
	flag.Float64Var(&cli.Options.WaitSeconds, "wait", captureOptions.WaitSeconds, "")
	flag.Float64Var(&cli.Options.WaitSeconds, "wt", captureOptions.WaitSeconds, "")
	flag.Float64Var(&cli.Options.DeviceScaleFactor, "scale-factor", captureOptions.DeviceScaleFactor, "")
	flag.Float64Var(&cli.Options.DeviceScaleFactor, "sf", captureOptions.DeviceScaleFactor, "")
	flag.IntVar(&cli.Options.Timeout, "timeout", captureOptions.Timeout, "")
	flag.IntVar(&cli.Options.Timeout, "to", captureOptions.Timeout, "")

	// OUTPUT
	flag.StringVar(&cli.OutFolder, "outfolder", "./output", "")
	flag.StringVar(&cli.OutFolder, "o", "./output", "")
	flag.BoolVar(&cli.Overwrite, "overwrite", false, "")
	flag.BoolVar(&cli.Overwrite, "ow", false, "")
	flag.BoolVar(&cli.Label, "label", false, "")
	flag.BoolVar(&cli.Label, "lb", false, "")
	flag.BoolVar(&debug, "debug", false, "")
	flag.BoolVar(&help, "help", false, "")
	flag.BoolVar(&help, "h", false, "")
	flag.BoolVar(&ver, "version", false, "")

	flag.Usage = func() {
		fmt.Print(usage)
	}

	flag.Parse()

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if help {
		fmt.Print(usage)
		os.Exit(0)
	}

	if ver {
		fmt.Println("slidecap ", version)
		os.Exit(0)
	}

	if cli.TargetPath == "" && flag.NArg() > 0 {
		cli.TargetPath = flag.Arg(0)
	}

	if cli.TargetPath == "" {
		log.Error("No target specified")
		fmt.Print(usage)
		os.Exit(0)
	}

	mode, err := compose.ParseMode(cli.Mode)
	if err != nil {
		log.Errorf("Invalid mode: %v", err)
		os.Exit(1)
	}
	cli.ComposeOpts.Mode = mode

	background, err := parseBackground(cli.Background)
	if err != nil {
		log.Errorf("Invalid background: %v", err)
		os.Exit(1)
	}
	cli.ComposeOpts.Background = background

	// Keep the capture viewport in sync with the slide size so the
	// browser renders at the resolution the slide is built for.
	cli.Options.ViewportWidth = cli.ComposeOpts.Width
	cli.Options.ViewportHeight = cli.ComposeOpts.Height
}

// parseBackground parses an "R,G,B" triple into an opaque color.
func parseBackground(s string) (color.NRGBA, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.NRGBA{}, fmt.Errorf("expected R,G,B, got %q", s)
	}

	var channels [3]uint8
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 || v > 255 {
			return color.NRGBA{}, fmt.Errorf("invalid channel %q in %q", part, s)
		}
		channels[i] = uint8(v)
	}

	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: 255}, nil
}

func handleCaptureError(target string, err error) {
	switch {
	case isTimeoutError(err):
		log.Errorf("Timeout occurred while capturing %s", target)
	default:
		log.Errorf("Error processing %s: %s", target, unwrapError(err))
	}
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return strings.Contains(err.Error(), "context deadline exceeded") ||
		strings.Contains(err.Error(), "timed out")
}

func unwrapError(err error) string {
	rootErr := err
	for {
		unwrappedErr := errors.Unwrap(rootErr)
		if unwrappedErr == nil {
			break
		}
		rootErr = unwrappedErr
	}
	return rootErr.Error()
}
