package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "ballotbox"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// layerRule lists what a package under a service layer may import. Paths in
// local are relative to the service root; shared holds module-wide prefixes.
type layerRule struct {
	name       string
	local      []string
	shared     []string
	thirdParty bool
}

var layerRules = []layerRule{
	{name: "domain/entities", local: []string{"domain/entities", "domain/errors"}},
	{name: "domain/errors"},
	{name: "domain/services", local: []string{"domain"}},
	{name: "domain", local: []string{"domain"}},
	{name: "ports", local: []string{"domain"}, shared: []string{"contracts"}},
	{name: "application", local: []string{"application", "domain", "ports"}, shared: []string{"contracts"}},
	{name: "transport/http"},
	{name: "adapters", local: []string{"application", "domain", "ports", "transport"}, shared: []string{"contracts"}, thirdParty: true},
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}

		servicePrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
		layerPath := strings.Join(parts[3:len(parts)-1], "/")

		violations = append(violations, validateFile(path, normalized, layerPath, servicePrefix)...)
		return nil
	})

	return violations
}

func validateFile(path string, normalizedPath string, layerPath string, servicePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalizedPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		violations = append(violations, validateImport(normalizedPath, line, layerPath, importPath, servicePrefix)...)
	}
	return violations
}

// validateImport checks a single import of a file living in layerPath of the
// service rooted at servicePrefix.
func validateImport(file string, line int, layerPath string, importPath string, servicePrefix string) []violation {
	var violations []violation
	report := func(rule string) {
		violations = append(violations, violation{File: file, Line: line, Import: importPath, Rule: rule})
	}

	if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, servicePrefix) {
		report("cross-module imports are forbidden")
	}
	if hasPrefix(importPath, modulePath+"/internal") || hasPrefix(importPath, modulePath+"/cmd") {
		report("contexts must not import runtime infrastructure")
	}

	rule, ok := ruleFor(layerPath)
	if !ok || isStdlib(importPath) {
		return violations
	}

	if hasPrefix(layerPath, "adapters") {
		if own := adapterOf(layerPath); own != "" && hasPrefix(importPath, servicePrefix+"/adapters") && !hasPrefix(importPath, servicePrefix+"/adapters/"+own) {
			report("adapters must not import sibling adapters")
		}
	}

	allowed := make([]string, 0, len(rule.local)+len(rule.shared))
	for _, local := range rule.local {
		allowed = append(allowed, servicePrefix+"/"+local)
	}
	for _, shared := range rule.shared {
		allowed = append(allowed, modulePath+"/"+shared)
	}
	if hasPrefix(layerPath, "adapters") {
		allowed = append(allowed, servicePrefix+"/adapters")
	}

	if strings.HasPrefix(importPath, modulePath+"/") {
		if !isAllowed(importPath, allowed) {
			report(rule.name + " import is outside explicit allowlist")
		}
		return violations
	}
	if !rule.thirdParty {
		report(rule.name + " must only import the standard library and its allowlist")
	}
	return violations
}

// ruleFor returns the most specific rule covering layerPath.
func ruleFor(layerPath string) (layerRule, bool) {
	for _, rule := range layerRules {
		if hasPrefix(layerPath, rule.name) {
			return rule, true
		}
	}
	return layerRule{}, false
}

func adapterOf(layerPath string) string {
	parts := strings.Split(layerPath, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, modulePath+"/") {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
