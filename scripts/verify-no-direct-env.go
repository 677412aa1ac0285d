// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

func main() {
	pattern := "./..."
	if len(os.Args) > 1 {
		pattern = os.Args[1]
	}

	violations, err := Analyze(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "❌ direct BCFG_* environment reads found (route them through config.Loader):")
		for _, v := range violations {
			fmt.Fprintln(os.Stderr, v)
		}
		os.Exit(1)
	}
}

// Analyze flags direct os.Getenv/os.LookupEnv calls on BCFG_* keys.
// The config package's env readers are the single entry point: anything
// else reading those keys escapes validation, source logging and
// consumed-key tracking.
func Analyze(pattern string) ([]string, error) {
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedFiles | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedName,
		// We use . as Dir to resolve relative paths like ./internal/... correctly
		Dir: ".",
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		for i, file := range pkg.Syntax {
			filename := ""
			if i < len(pkg.CompiledGoFiles) {
				filename = pkg.CompiledGoFiles[i]
			} else if i < len(pkg.GoFiles) {
				filename = pkg.GoFiles[i]
			}
			if filename == "" {
				continue
			}
			// Skip tests and the env SSOT
			if strings.HasSuffix(filename, "_test.go") {
				continue
			}
			if strings.HasSuffix(filename, filepath.Join("internal", "config", "env.go")) {
				continue
			}

			ast.Inspect(file, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				if !isOSEnvRead(call.Fun, pkg.TypesInfo) {
					return true
				}
				if len(call.Args) == 0 {
					return true
				}
				// Dynamic keys stay unflagged; envdep records whatever
				// names an evaluation consumed.
				key, known := constString(call.Args[0], pkg.TypesInfo)
				if !known {
					return true
				}
				if strings.HasPrefix(key, "BCFG_") {
					violations = append(violations, formatViolation(filename, call.Pos(), fmt.Sprintf("direct read of %q (route it through config.Loader)", key)))
				}
				return true
			})
		}
	}
	return violations, nil
}

func formatViolation(filename string, pos token.Pos, msg string) string {
	// Attempt to get relative path for cleaner output, fall back to abs
	rel, err := filepath.Rel(".", filename)
	if err == nil {
		filename = rel
	}
	return fmt.Sprintf("%s:%d: %s", filename, pos, msg)
}

func isOSEnvRead(fun ast.Expr, info *types.Info) bool {
	sel, ok := fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	obj := info.ObjectOf(sel.Sel)
	if obj == nil {
		return false
	}
	fn, ok := obj.(*types.Func)
	if !ok {
		return false
	}
	if fn.Pkg() == nil || fn.Pkg().Path() != "os" {
		return false
	}
	return fn.Name() == "Getenv" || fn.Name() == "LookupEnv"
}

// constString resolves an argument to its compile-time string value, so
// both literals and named constants are caught.
func constString(expr ast.Expr, info *types.Info) (string, bool) {
	tv, ok := info.Types[expr]
	if !ok || tv.Value == nil {
		return "", false
	}
	if tv.Value.Kind() != constant.String {
		return "", false
	}
	return constant.StringVal(tv.Value), true
}
