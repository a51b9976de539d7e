package main

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/sammcvicker/fruit-sub000/internal/config"
	"github.com/sammcvicker/fruit-sub000/internal/render"
)

// timeNow is the reference time for --newer and --older.
var timeNow = time.Now

// newRenderer builds the output backend. stdout is the unbuffered
// destination, used only to decide color and width.
func newRenderer(cfg *config.Config, w io.Writer, stdout io.Writer) (render.Renderer, error) {
	format, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	tty := isTerminal(stdout)
	return render.New(format, w, render.Options{
		Color:    wantColor(cfg.Color, tty),
		Width:    wrapWidth(cfg.Wrap, stdout, tty),
		ShowSize: cfg.Size,
	})
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// wantColor resolves the auto|always|never color setting. NO_COLOR disables
// auto color.
func wantColor(mode string, tty bool) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		return tty
	}
}

// wrapWidth resolves the wrap setting: positive is a fixed width, negative
// disables wrapping, zero uses the terminal width when there is one.
func wrapWidth(wrap int, stdout io.Writer, tty bool) int {
	switch {
	case wrap > 0:
		return wrap
	case wrap < 0 || !tty:
		return 0
	}
	f, ok := stdout.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	return width
}
