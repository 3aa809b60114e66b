package templating

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/valyala/fasttemplate"
)

// DefinesVar is the variable holding the rendered #define lines
// in header templates.
const DefinesVar = "DEFINES"

// DefaultHeader is the header rendered when no template file is
// given.
const DefaultHeader = `// Code generated by fwstamp. DO NOT EDIT.
// Firmware: {{PROGNAME}}

#ifndef FWSTAMP_FIRMWARE_VERSION_H
#define FWSTAMP_FIRMWARE_VERSION_H

{{DEFINES}}
#endif
`

// Engine expands templates against a variable map.
type Engine struct {
	StartTag string
	EndTag   string
}

// Expand reads the template at tplPath, substitutes variables and
// writes the result to out. An empty tplPath renders
// DefaultHeader.
func (en *Engine) Expand(
	tplPath string,
	vars map[string]any,
	out io.Writer,
) error {
	const errCtx = "expanding template"

	tpl, err := readTemplate(tplPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	startTag, endTag := en.tags()

	if _, err := fasttemplate.ExecuteStd(
		tpl, startTag, endTag, out, vars,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// tags returns the configured start/end tags, falling
// back to double-brace defaults.
func (en *Engine) tags() (string, string) {
	startTag := en.StartTag
	if startTag == "" {
		startTag = "{{"
	}

	endTag := en.EndTag
	if endTag == "" {
		endTag = "}}"
	}

	return startTag, endTag
}

func readTemplate(tplPath string) (string, error) {
	const errCtx = "reading template"

	if tplPath == "" {
		return DefaultHeader, nil
	}

	content, err := os.ReadFile(tplPath) //nolint:gosec // path from CLI flag
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return string(content), nil
}

// FormatString substitutes single-brace {VAR} placeholders in
// format.
func FormatString(format string, vars map[string]any) string {
	return fasttemplate.ExecuteStringStd(format, "{", "}", vars)
}

// Macro is a header #define line.
type Macro struct {
	Name string
	Body string
}

// DefineLines renders one #define line per macro, each terminated
// by a newline. Macros without a body are defined empty.
func DefineLines(macros []Macro) string {
	var sb strings.Builder

	for _, ma := range macros {
		sb.WriteString("#define ")
		sb.WriteString(ma.Name)

		if ma.Body != "" {
			sb.WriteByte(' ')
			sb.WriteString(ma.Body)
		}

		sb.WriteByte('\n')
	}

	return sb.String()
}
