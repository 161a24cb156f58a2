package context

import (
	"bytes"
	"strings"

	"itercheck/internal/directives/ignore"
	"itercheck/internal/pyast"
)

// AnalysisContext provides per-file analysis context to detectors
type AnalysisContext struct {
	Filename string
	Source   []byte
	Module   *pyast.Module
	Ignores  ignore.Map

	// RespectIgnores is false when suppression comments are switched off.
	RespectIgnores bool

	lines       [][]byte
	loopContext map[pyast.Node]*LoopInfo
}

type LoopInfo struct {
	LoopNode    pyast.Node
	Kind        LoopKind
	Line        int
	Depth       int // 1 for an outermost loop
	IsInnerLoop bool
}

type LoopKind int

const (
	LoopUnknown LoopKind = iota
	LoopFor
	LoopWhile
	LoopComprehension
)

func (k LoopKind) String() string {
	switch k {
	case LoopFor:
		return "for loop"
	case LoopWhile:
		return "while loop"
	case LoopComprehension:
		return "comprehension"
	default:
		return "loop"
	}
}

func NewAnalysisContext(filename string, src []byte, mod *pyast.Module) *AnalysisContext {
	return &AnalysisContext{
		Filename:       filename,
		Source:         src,
		Module:         mod,
		Ignores:        ignore.Build(mod),
		RespectIgnores: true,
		lines:          bytes.Split(src, []byte("\n")),
		loopContext:    make(map[pyast.Node]*LoopInfo),
	}
}

// IsIgnored reports whether a suppression comment covers rule on line.
func (c *AnalysisContext) IsIgnored(line int, rule ignore.RuleName) bool {
	return c.RespectIgnores && c.Ignores.ShouldIgnore(line, rule)
}

// SourceLine returns the 1-based line without surrounding whitespace.
func (c *AnalysisContext) SourceLine(line int) string {
	if line < 1 || line > len(c.lines) {
		return ""
	}
	return strings.TrimSpace(string(c.lines[line-1]))
}

// EnclosingFunction names the innermost def or class around n as a
// dotted path such as "Reader.rows", or "" at module level.
func EnclosingFunction(n pyast.Node) string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		switch d := cur.(type) {
		case *pyast.FunctionDef:
			parts = append(parts, d.Name)
		case *pyast.ClassDef:
			parts = append(parts, d.Name)
		case *pyast.Lambda:
			if len(parts) == 0 {
				parts = append(parts, "<lambda>")
			}
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// Loop describes loop, which must be a For, While or Comprehension.
func (c *AnalysisContext) Loop(loop pyast.Node) *LoopInfo {
	if info, ok := c.loopContext[loop]; ok {
		return info
	}
	info := &LoopInfo{LoopNode: loop, Kind: loopKind(loop), Line: loop.Pos().Line}
	for cur := loop; cur != nil && !isScopeNode(cur); cur = cur.Parent() {
		if loopKind(cur) != LoopUnknown {
			info.Depth++
		}
	}
	info.IsInnerLoop = info.Depth > 1
	c.loopContext[loop] = info
	return info
}

func loopKind(n pyast.Node) LoopKind {
	switch n.(type) {
	case *pyast.For:
		return LoopFor
	case *pyast.While:
		return LoopWhile
	case *pyast.Comprehension:
		return LoopComprehension
	default:
		return LoopUnknown
	}
}

func isScopeNode(n pyast.Node) bool {
	switch n.(type) {
	case *pyast.FunctionDef, *pyast.Lambda, *pyast.ClassDef, *pyast.Module:
		return true
	}
	return false
}
