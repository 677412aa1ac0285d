// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// configgen renders the configuration surface from the registry, so the
// example config and the option reference never drift from the code.
//
// Usage:
//
//	configgen > config.example.yaml
//	configgen -format markdown > docs/CONFIGURATION.md
//	configgen -out config.example.yaml
//
// Exit codes:
//   - 0: generation succeeded
//   - 1: registry invalid or output not writable
//   - 2: usage error (unknown format)
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/buildcfg/internal/config"
	"github.com/ManuGH/buildcfg/internal/version"
)

func main() {
	var (
		format      string
		outPath     string
		showVersion bool
	)

	flag.StringVar(&format, "format", "yaml", "output format: yaml or markdown")
	flag.StringVar(&outPath, "out", "", "write to a file instead of stdout")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}

	if format != "yaml" && format != "markdown" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (want yaml or markdown)\n", format)
		os.Exit(2)
	}

	out, err := generate(format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if outPath == "" {
		_, _ = os.Stdout.Write(out)
		return
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func generate(format string) ([]byte, error) {
	registry, err := config.GetRegistry()
	if err != nil {
		return nil, fmt.Errorf("config registry: %w", err)
	}
	if format == "markdown" {
		return generateMarkdown(registry.Entries()), nil
	}
	return generateYAML(registry.Entries()), nil
}

// generateYAML emits a commented example config. Options without a static
// default are left commented out, so the generated file loads as pure
// defaults.
func generateYAML(entries []config.Entry) []byte {
	var b bytes.Buffer
	b.WriteString("# buildcfg daemon configuration, generated by configgen.\n")
	b.WriteString("# Environment variables (BCFG_*) override file values.\n")

	lastSection := ""
	for _, e := range entries {
		if e.Path == "" {
			continue
		}

		section, key, nested := splitPath(e.Path)
		indent := ""
		if nested {
			if section != lastSection {
				fmt.Fprintf(&b, "\n%s:\n", section)
				lastSection = section
			}
			indent = "  "
		} else {
			lastSection = ""
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "%s# %s", indent, e.Doc)
		if e.Env != "" {
			fmt.Fprintf(&b, " (env: %s)", e.Env)
		}
		b.WriteString("\n")

		if e.Default == nil {
			fmt.Fprintf(&b, "%s# %s:\n", indent, key)
			continue
		}
		fmt.Fprintf(&b, "%s%s: %s\n", indent, key, renderYAMLValue(e.Default))
	}
	return b.Bytes()
}

func generateMarkdown(entries []config.Entry) []byte {
	var b bytes.Buffer
	b.WriteString("# Configuration reference\n\n")
	b.WriteString("Precedence, lowest to highest: defaults, YAML file, `BCFG_*` environment.\n\n")
	b.WriteString("| Option | Environment | Default | Profile | Description |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, e := range entries {
		if e.Status == config.StatusInternal {
			continue
		}
		def := config.FormatDefault(e.Default)
		if def == "" {
			def = "—"
		} else {
			def = "`" + def + "`"
		}
		env := e.Env
		if env != "" {
			env = "`" + env + "`"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %s |\n", e.Path, env, def, e.Profile, e.Doc)
	}
	return b.Bytes()
}

func splitPath(path string) (section, key string, nested bool) {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:], true
	}
	return "", path, false
}

func renderYAMLValue(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Duration:
		return strconv.Quote(x.String())
	case string:
		return strconv.Quote(x)
	default:
		return strconv.Quote(fmt.Sprintf("%v", v))
	}
}
