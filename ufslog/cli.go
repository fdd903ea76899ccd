// SPDX-License-Identifier: MIT

// Package ufslog is an ambient logging stack for programs that embed this
// module (capfs, quota and archive themselves emit no log lines):
// an apex/log handler that writes colorized, aligned log lines, plus a
// disk-rotated sink for long-running embedders.
package ufslog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	apexcli "github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/multi"
	color2 "github.com/fatih/color"
	"github.com/mattn/go-colorable"
)

var (
	bold    = color2.New(color2.Bold)
	boldred = color2.New(color2.Bold, color2.FgRed)
)

// levelStrings renders each apex/log level as a fixed-width label, padded
// so multi-level output lines up in a terminal.
var levelStrings = [...]string{
	log.DebugLevel: "DEBUG",
	log.InfoLevel:  " INFO",
	log.WarnLevel:  " WARN",
	log.ErrorLevel: "ERROR",
	log.FatalLevel: "FATAL",
}

// Handler is an apex/log handler writing human-readable, colorized lines.
type Handler struct {
	mu      sync.Mutex
	Writer  io.Writer
	Padding int
}

// New builds a Handler over w, colorizing output only if w is a terminal
// and useColors is true.
func New(w io.Writer, useColors bool) *Handler {
	if f, ok := w.(*os.File); ok && useColors {
		return &Handler{Writer: colorable.NewColorable(f), Padding: 2}
	}
	return &Handler{Writer: colorable.NewNonColorable(w), Padding: 2}
}

// Default is the package-level handler used by Init when no explicit
// writer is supplied.
var Default = New(os.Stderr, true)

// HandleLog implements log.Handler.
func (h *Handler) HandleLog(e *log.Entry) error {
	color := apexcli.Colors[e.Level]
	level := levelStrings[e.Level]
	names := e.Fields.Names()

	h.mu.Lock()
	defer h.mu.Unlock()

	color.Fprintf(h.Writer, "%s: [%s] %-25s", bold.Sprintf("%*s", h.Padding+1, level), time.Now().Format(time.StampMilli), e.Message)
	for _, name := range names {
		if name == "source" {
			continue
		}
		fmt.Fprintf(h.Writer, " %s=%v", color.Sprint(name), e.Fields.Get(name))
	}
	fmt.Fprintln(h.Writer)

	for _, name := range names {
		if name != "error" {
			continue
		}
		if err, ok := e.Fields.Get("error").(error); ok {
			err = errors.WithStackDepthIf(err, 1)
			fmt.Fprintf(h.Writer, "\n%s\n%+v\n\n", boldred.Sprintf("Stacktrace:"), err)
		}
	}
	return nil
}

// Init configures the package-level apex/log logger to write to both the
// terminal (via Default) and, if logPath is non-empty, a rotated file on
// disk, matching cmd/root.go's initLogging.
func Init(logPath string, debug bool) error {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if logPath == "" {
		log.SetHandler(Default)
		return nil
	}

	w, err := newRotatedFile(logPath)
	if err != nil {
		return errors.Wrap(err, "ufslog: opening rotated log file")
	}
	log.SetHandler(multi.New(Default, New(w, false)))
	return nil
}
