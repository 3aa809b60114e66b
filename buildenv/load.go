package buildenv

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

const (
	commonSection   = "env"
	envSectionPfx   = "env:"
	platformSection = "platformio"
	defaultEnvsKey  = "default_envs"
)

// LoadProjectFile reads options from a PlatformIO project file.
// Keys of the shared [env] section are overridden by the
// [env:<envName>] section. An empty envName selects the first
// entry of [platformio] default_envs, or only the shared section
// when no default is configured.
func LoadProjectFile(
	path string,
	envName string,
) (map[string]string, error) {
	const errCtx = "loading project file"

	cfg, err := ini.LoadSources(
		ini.LoadOptions{
			AllowPythonMultilineValues: true,
			SpaceBeforeInlineComment:   true,
		},
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if envName == "" {
		envName = defaultEnv(cfg)
	}

	opts := make(map[string]string)

	if sec, err := cfg.GetSection(commonSection); err == nil {
		maps.Copy(opts, sec.KeysHash())
	}

	if envName == "" {
		return opts, nil
	}

	sec, err := cfg.GetSection(envSectionPfx + envName)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: environment %q: %w", errCtx, envName, err,
		)
	}

	maps.Copy(opts, sec.KeysHash())

	return opts, nil
}

func defaultEnv(cfg *ini.File) string {
	sec, err := cfg.GetSection(platformSection)
	if err != nil {
		return ""
	}

	envs := strings.FieldsFunc(
		sec.Key(defaultEnvsKey).String(),
		func(r rune) bool { return r == ',' || r == ' ' || r == '\n' },
	)
	if len(envs) == 0 {
		return ""
	}

	return envs[0]
}

// LoadOptionsFile reads a flat mapping of option names to scalar
// values. Files ending in .json are decoded as JSON, anything else
// as YAML. Values keep their source text, so a YAML version of
// 1.10 stays "1.10".
func LoadOptionsFile(path string) (map[string]string, error) {
	const errCtx = "loading options file"

	content, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var opts map[string]string

	if strings.EqualFold(filepath.Ext(path), ".json") {
		opts, err = decodeJSONOptions(content)
	} else {
		opts, err = decodeYAMLOptions(content)
	}

	if err != nil {
		return nil, fmt.Errorf(
			"%s: decoding %s: %w", errCtx, path, err,
		)
	}

	return opts, nil
}

func decodeJSONOptions(content []byte) (map[string]string, error) {
	var raw map[string]any

	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	opts := make(map[string]string, len(raw))

	for key, val := range raw {
		switch val.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("option %q must be a scalar", key)
		case nil:
			opts[key] = ""
		default:
			opts[key] = fmt.Sprint(val)
		}
	}

	return opts, nil
}

// decodeYAMLOptions walks the YAML syntax tree instead of
// unmarshaling so numeric-looking scalars keep their text.
func decodeYAMLOptions(content []byte) (map[string]string, error) {
	file, err := parser.ParseBytes(content, 0)
	if err != nil {
		return nil, err
	}

	opts := make(map[string]string)

	if len(file.Docs) == 0 || file.Docs[0].Body == nil {
		return opts, nil
	}

	var pairs []*ast.MappingValueNode

	switch body := file.Docs[0].Body.(type) {
	case *ast.MappingNode:
		pairs = body.Values
	case *ast.MappingValueNode:
		pairs = []*ast.MappingValueNode{body}
	default:
		return nil, fmt.Errorf(
			"top level must be a mapping, got %s", body.Type(),
		)
	}

	for _, pa := range pairs {
		key := pa.Key.GetToken().Value

		val, err := scalarText(pa.Value)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", key, err)
		}

		opts[key] = val
	}

	return opts, nil
}

func scalarText(node ast.Node) (string, error) {
	switch no := node.(type) {
	case nil, *ast.NullNode:
		return "", nil
	case *ast.StringNode:
		return no.Value, nil
	case *ast.LiteralNode:
		return no.Value.Value, nil
	case *ast.TagNode:
		return scalarText(no.Value)
	case *ast.AnchorNode:
		return scalarText(no.Value)
	case *ast.MappingNode, *ast.MappingValueNode, *ast.SequenceNode:
		return "", errors.New("must be a scalar")
	default:
		return no.GetToken().Value, nil
	}
}

// LoadDotenv reads options from dotenv files. Later files
// override earlier ones.
func LoadDotenv(paths ...string) (map[string]string, error) {
	const errCtx = "loading dotenv files"

	opts := make(map[string]string)

	for _, pa := range paths {
		vals, err := godotenv.Read(pa)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		maps.Copy(opts, vals)
	}

	return opts, nil
}

// LoadStatusFiles reads Bazel workspace status files and merges
// them into a single map. Each line is "KEY VALUE" with the first
// space as delimiter. Lines without a space are silently skipped.
func LoadStatusFiles(paths []string) (map[string]string, error) {
	const errCtx = "loading status files"

	opts := make(map[string]string)

	for _, sf := range paths {
		content, err := os.ReadFile(sf) //nolint:gosec // paths from CLI flags
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		for _, line := range strings.Split(
			string(content), "\n",
		) {
			key, val, ok := strings.Cut(line, " ")
			if ok {
				opts[key] = strings.TrimSuffix(val, "\r")
			}
		}
	}

	return opts, nil
}

// ParseAssignments parses KEY=VALUE pairs. Only the first "="
// delimits, so values may contain further "=" characters.
func ParseAssignments(assignments []string) (map[string]string, error) {
	const errCtx = "parsing assignments"

	opts := make(map[string]string, len(assignments))

	for _, as := range assignments {
		key, val, ok := strings.Cut(as, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf(
				"%s: option must be KEY=VALUE, got %s",
				errCtx, as,
			)
		}

		opts[key] = val
	}

	return opts, nil
}

// Merge combines option layers. Keys in later layers win.
func Merge(layers ...map[string]string) map[string]string {
	opts := make(map[string]string)

	for _, la := range layers {
		maps.Copy(opts, la)
	}

	return opts
}
