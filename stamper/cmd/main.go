// Package main provides the fwstamp CLI. It gathers the firmware
// name and version options from project, option, dotenv and
// workspace status files, stamps them into a build environment and
// prints the result in the requested format or runs a build
// command with the stamped values exported.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	"github.com/byte4ever/firmware_stamp/buildenv"
	"github.com/byte4ever/firmware_stamp/digester"
	"github.com/byte4ever/firmware_stamp/exec"
	"github.com/byte4ever/firmware_stamp/stamper"
	"github.com/byte4ever/firmware_stamp/templating"
)

// Output formats.
const (
	formatCPPFlags = "cppflags"
	formatProgName = "progname"
	formatLDFlags  = "ldflags"
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatTable    = "table"
	formatHeader   = "header"
)

var (
	errUsage    = errors.New("usage")
	errOutdated = errors.New("output is out of date")
)

type config struct {
	projectFile   string
	pioEnv        string
	optionsFile   string
	envFiles      []string
	statusFiles   []string
	options       []string
	format        string
	formatString  string
	template      string
	startTag      string
	endTag        string
	ldflagsSymbol string
	output        string
	check         bool
	verbose       bool
	command       []string
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt,
	)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("fatal", "error", err)
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	const errCtx = "parsing flags"

	var cfg config

	fs := pflag.NewFlagSet("fwstamp", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(
		&cfg.projectFile, "project-file", "",
		"PlatformIO project file (platformio.ini)",
	)
	fs.StringVar(
		&cfg.pioEnv, "pio-env", "",
		"PlatformIO environment (default: first of default_envs)",
	)
	fs.StringVar(
		&cfg.optionsFile, "options-file", "",
		"YAML or JSON file of option values",
	)
	fs.StringArrayVar(
		&cfg.envFiles, "env-file", nil,
		"dotenv file of option values (repeatable)",
	)
	fs.StringArrayVar(
		&cfg.statusFiles, "stamp-info-file", nil,
		"Bazel workspace status file (repeatable)",
	)
	fs.StringArrayVarP(
		&cfg.options, "option", "O", nil,
		"option in KEY=VALUE format (repeatable)",
	)
	fs.StringVarP(
		&cfg.format, "format", "f", formatCPPFlags,
		"output format: cppflags, progname, ldflags, json, yaml, table or header",
	)
	fs.StringVar(
		&cfg.formatString, "format-string", "",
		"format string with {VAR} placeholders, overrides --format",
	)
	fs.StringVar(
		&cfg.template, "template", "",
		"header template file, implies --format=header",
	)
	fs.StringVar(
		&cfg.startTag, "start-tag", "{{",
		"start tag for template placeholders",
	)
	fs.StringVar(
		&cfg.endTag, "end-tag", "}}",
		"end tag for template placeholders",
	)
	fs.StringVar(
		&cfg.ldflagsSymbol, "ldflags-symbol", "main.firmwareVersion",
		"Go string variable set by --format=ldflags",
	)
	fs.StringVarP(
		&cfg.output, "output", "o", "",
		"output file path (default: stdout)",
	)
	fs.BoolVar(
		&cfg.check, "check", false,
		"fail if --output differs from the rendered result instead of writing it",
	)
	fs.BoolVarP(
		&cfg.verbose, "verbose", "v", false,
		"enable debug logging",
	)

	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg.command = fs.Args()

	if cfg.template != "" {
		cfg.format = formatHeader
	}

	if cfg.check && cfg.output == "" {
		return cfg, fmt.Errorf(
			"%s: %w: --check requires --output", errCtx, errUsage,
		)
	}

	switch cfg.format {
	case formatCPPFlags, formatProgName, formatLDFlags,
		formatJSON, formatYAML, formatTable, formatHeader:
	default:
		return cfg, fmt.Errorf(
			"%s: %w: unknown format %q",
			errCtx, errUsage, cfg.format,
		)
	}

	return cfg, nil
}

func run(
	ctx context.Context,
	args []string,
	stdout io.Writer,
	stderr io.Writer,
) error {
	const errCtx = "fwstamp"

	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if cfg.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	opts, err := loadOptions(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	en := buildenv.New(opts)

	nameVersion, err := stamper.Stamp(en)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug("stamped", "progname", nameVersion)

	if len(cfg.command) > 0 {
		if cfg.output != "" {
			if err := writeOutput(cfg, en, io.Discard); err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}
		}

		if err := exec.Run(
			ctx, "", exec.StampEnv(en, os.Environ()),
			stdout, stderr,
			cfg.command[0], cfg.command[1:]...,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return nil
	}

	if err := writeOutput(cfg, en, stdout); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// loadOptions merges option sources from lowest to highest
// precedence: project file, options file, dotenv files, status
// files, --option assignments.
func loadOptions(cfg config) (map[string]string, error) {
	const errCtx = "loading options"

	var layers []map[string]string

	if cfg.projectFile != "" {
		la, err := buildenv.LoadProjectFile(cfg.projectFile, cfg.pioEnv)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		layers = append(layers, la)
	}

	if cfg.optionsFile != "" {
		la, err := buildenv.LoadOptionsFile(cfg.optionsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		layers = append(layers, la)
	}

	if len(cfg.envFiles) > 0 {
		la, err := buildenv.LoadDotenv(cfg.envFiles...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		layers = append(layers, la)
	}

	status, err := buildenv.LoadStatusFiles(cfg.statusFiles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	assigned, err := buildenv.ParseAssignments(cfg.options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return buildenv.Merge(append(layers, status, assigned)...), nil
}

// render produces the requested output for a stamped environment.
func render(cfg config, en *buildenv.Env) ([]byte, error) {
	const errCtx = "rendering output"

	if cfg.formatString != "" {
		return []byte(
			templating.FormatString(cfg.formatString, en.Vars()),
		), nil
	}

	var sb strings.Builder

	switch cfg.format {
	case formatProgName:
		sb.WriteString(en.OutputName())
		sb.WriteByte('\n')
	case formatLDFlags:
		flag, err := en.LDFlags(cfg.ldflagsSymbol)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		sb.WriteString(flag)
		sb.WriteByte('\n')
	case formatJSON:
		if err := en.WriteJSON(&sb); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	case formatYAML:
		if err := en.WriteYAML(&sb); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	case formatTable:
		en.WriteTable(&sb)
	case formatHeader:
		eng := templating.Engine{
			StartTag: cfg.startTag,
			EndTag:   cfg.endTag,
		}

		if err := eng.Expand(
			cfg.template, headerVars(en), &sb,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	default:
		sb.WriteString(strings.Join(en.CPPFlags(), " "))
		sb.WriteByte('\n')
	}

	return []byte(sb.String()), nil
}

func headerVars(en *buildenv.Env) map[string]any {
	vars := en.Vars()

	macros := make([]templating.Macro, 0, len(en.Defines()))
	for _, de := range en.Defines() {
		macros = append(macros, templating.Macro{
			Name: de.Key,
			Body: de.Macro(),
		})
	}

	vars[templating.DefinesVar] = templating.DefineLines(macros)

	return vars
}

func writeOutput(cfg config, en *buildenv.Env, stdout io.Writer) error {
	const errCtx = "writing output"

	content, err := render(cfg, en)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if cfg.output == "" {
		if _, err := stdout.Write(content); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return nil
	}

	if cfg.check {
		same, err := digester.VerifyDigest(cfg.output, content)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		if !same {
			return fmt.Errorf(
				"%s: %w: %s", errCtx, errOutdated, cfg.output,
			)
		}

		return nil
	}

	written, err := digester.WriteIfChanged(cfg.output, content, 0o666)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("output", "path", cfg.output, "written", written)

	return nil
}
