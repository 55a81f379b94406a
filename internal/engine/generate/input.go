// Package generate hands an assembled module (or raw data) to an output
// backend: a structured data encoder, a text template or a JavaScript
// generator script.
package generate

import (
	"ssd/internal/engine/ast"
)

// Input is what every backend receives. Exactly one of Module and Raw is set.
type Input struct {
	Module  *ast.Module
	Raw     any
	Defines map[string]string
}

func ModuleInput(m ast.Module, defines map[string]string) Input {
	return Input{Module: &m, Defines: nonNil(defines)}
}

func RawInput(raw any, defines map[string]string) Input {
	return Input{Raw: raw, Defines: nonNil(defines)}
}

// Data is the value exposed to backends as `module`.
func (in Input) Data() any {
	if in.Module != nil {
		return in.Module
	}
	return in.Raw
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
