// Package modules holds the built-in lint modules run over the component
// artifact tree. Importing it registers every module with the lint
// registry.
package modules

import "github.com/sofmeright/imagefreight/src/lint"

// at builds a finding for file at line.
func at(file lint.FileInfo, line int, module string, sev lint.Severity, msg string) lint.Finding {
	return lint.Finding{File: file.Path, Line: line, Module: module, Severity: sev, Message: msg}
}
