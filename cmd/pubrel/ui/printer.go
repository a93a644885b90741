/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ui formats pubrel terminal output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Printer writes status lines for pubrel commands.
type Printer struct {
	Out io.Writer
	Err io.Writer

	label   func(...any) string
	value   func(...any) string
	success func(...any) string
	failure func(...any) string
}

// NewPrinter creates a Printer on stdout/stderr, colored when stdout is a color terminal.
func NewPrinter() *Printer {
	return NewPrinterTo(os.Stdout, os.Stderr, supportsColorOutput(os.Stdout))
}

// NewPrinterTo creates a Printer on the given writers.
func NewPrinterTo(out, errOut io.Writer, useColor bool) *Printer {
	p := &Printer{Out: out, Err: errOut}
	if useColor {
		p.label = color.New(color.FgHiWhite, color.Bold).SprintFunc()
		p.value = color.New(color.FgHiGreen).SprintFunc()
		p.success = color.New(color.FgGreen, color.Bold).SprintFunc()
		p.failure = color.New(color.FgRed, color.Bold).SprintFunc()
		return p
	}

	noColor := func(a ...any) string { return fmt.Sprint(a...) }
	p.label, p.value, p.success, p.failure = noColor, noColor, noColor, noColor
	return p
}

// Success prints a check-marked line.
func (p *Printer) Success(format string, args ...any) {
	_, _ = fmt.Fprintf(p.Out, "%s %s\n", p.success("✓"), fmt.Sprintf(format, args...))
}

// Field prints an aligned label/value pair.
func (p *Printer) Field(label string, value any) {
	_, _ = fmt.Fprintf(p.Out, "  %s %s\n", p.label(fmt.Sprintf("%-10s", label+":")), p.value(value))
}

// Error prints err to the error stream.
func (p *Printer) Error(err error) {
	_, _ = fmt.Fprintf(p.Err, "%s %v\n", p.failure("Error:"), err)
}

// supportsColorOutput reports whether f is a terminal that accepts color.
// color.NoColor already reflects NO_COLOR and TERM=dumb; we add the TTY and mono checks.
func supportsColorOutput(f *os.File) bool {
	if color.NoColor || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	termType := strings.ToLower(os.Getenv("TERM"))
	return !strings.Contains(termType, "mono")
}
