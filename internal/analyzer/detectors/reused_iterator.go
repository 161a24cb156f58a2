package detectors

import (
	"fmt"

	"itercheck/internal/context"
	"itercheck/internal/directives/ignore"
	"itercheck/internal/exhaust"
	"itercheck/internal/models"
)

type ReusedIteratorDetector struct {
	checker  *exhaust.Checker
	severity models.Severity
}

func NewReusedIteratorDetector(cfg exhaust.Config, severity models.Severity) *ReusedIteratorDetector {
	return &ReusedIteratorDetector{
		checker:  exhaust.NewChecker(cfg),
		severity: severity,
	}
}

func (d *ReusedIteratorDetector) Name() string {
	return "Reused Iterator Detector"
}

func (d *ReusedIteratorDetector) Detect(ctx *context.AnalysisContext) []models.Issue {
	issues := make([]models.Issue, 0)
	for _, diag := range d.checker.Check(ctx.Module) {
		if ctx.IsIgnored(diag.Pos.Line, ignore.ReusedIterator) {
			continue
		}
		issues = append(issues, d.newIssue(ctx, diag))
	}
	return issues
}

func (d *ReusedIteratorDetector) newIssue(ctx *context.AnalysisContext, diag exhaust.Diagnostic) models.Issue {
	var loop *context.LoopInfo
	if diag.Loop != nil {
		loop = ctx.Loop(diag.Loop)
	}
	function := "<module>"
	if diag.Ref != nil {
		if name := context.EnclosingFunction(diag.Ref); name != "" {
			function = name
		}
	}

	return models.Issue{
		Type:        models.IssueReusedIterator,
		Severity:    d.calculateSeverity(diag, loop),
		File:        ctx.Filename,
		Line:        diag.Pos.Line,
		Column:      diag.Pos.Column,
		EndLine:     diag.End.Line,
		EndColumn:   diag.End.Column,
		Function:    function,
		MessageID:   diag.MessageID,
		Symbol:      diag.Symbol,
		Variable:    diag.Name,
		Confidence:  string(diag.Confidence),
		Message:     diag.Message(),
		Suggestion:  generateSuggestion(diag, loop),
		DefinedAt:   diag.DefPos.String(),
		CodeSnippet: ctx.SourceLine(diag.Pos.Line),
	}
}

// calculateSeverity raises the configured severity one step when a
// directly created iterator is reused by a loop nested in another loop.
func (d *ReusedIteratorDetector) calculateSeverity(diag exhaust.Diagnostic, loop *context.LoopInfo) models.Severity {
	if diag.Confidence == exhaust.ConfidenceHigh && loop != nil && loop.IsInnerLoop && d.severity < models.SeverityCritical {
		return d.severity + 1
	}
	return d.severity
}

func generateSuggestion(diag exhaust.Diagnostic, loop *context.LoopInfo) string {
	origin := "an iterator"
	switch diag.Origin {
	case exhaust.GeneratorForm:
		origin = "a generator expression"
	case exhaust.DirectProducer:
		origin = "an iterator call"
	}
	where := "the loop"
	if loop != nil {
		where = fmt.Sprintf("the %s at line %d", loop.Kind, loop.Line)
	}
	return fmt.Sprintf(
		"'%s' holds %s created at line %d and is empty after its first pass.\n"+
			"Create it inside %s so every pass gets a fresh one,\n"+
			"or materialize it once before the loop: %s = list(%s)",
		diag.Name, origin, diag.DefPos.Line, where, diag.Name, diag.Name)
}
