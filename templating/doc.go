// Package templating renders stamped build values into text. It uses
// valyala/fasttemplate with configurable delimiters (default "{{" and
// "}}") for template files such as generated C headers, and single
// brace {VAR} placeholders for short format strings.
//
// Unknown placeholders are preserved as-is in both modes.
package templating
