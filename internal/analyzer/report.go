package analyzer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"

	"itercheck/internal/config"
	"itercheck/internal/models"
)

// ReportGenerator handles formatting and displaying analysis results
type ReportGenerator struct {
	format string
	config *config.Config
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(format string) *ReportGenerator {
	return &ReportGenerator{
		format: format,
		config: config.DefaultConfig(),
	}
}

func NewReportGeneratorWithConfig(cfg *config.Config) *ReportGenerator {
	return &ReportGenerator{
		format: cfg.Output.Format,
		config: cfg,
	}
}

// Generate creates a formatted report from analysis results
func (r *ReportGenerator) Generate(result *models.AnalysisResult) string {
	switch r.format {
	case "json":
		return r.generateJSON(result)
	default:
		return r.generateConsole(result)
	}
}

func (r *ReportGenerator) generateJSON(result *models.AnalysisResult) string {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error generating JSON report: %v", err)
	}
	return string(data) + "\n"
}

// paint applies fn when colors are on and plain formatting otherwise.
func (r *ReportGenerator) paint(fn func(string, ...interface{}) string, format string, a ...interface{}) string {
	if r.config.Output.Colors {
		return fn(format, a...)
	}
	return fmt.Sprintf(format, a...)
}

// label prefixes text with emoji when colors are on.
func (r *ReportGenerator) label(emoji, text string) string {
	if r.config.Output.Colors {
		return emoji + " " + text
	}
	return text
}

func (r *ReportGenerator) generateConsole(result *models.AnalysisResult) string {
	var report strings.Builder

	// Header
	report.WriteString(r.paint(color.CyanString, "%s\n", r.label("🔍", "itercheck Analysis Report")))
	if r.config.Output.Colors {
		report.WriteString(color.WhiteString("═══════════════════════════════════════\n\n"))
	} else {
		report.WriteString("=======================================\n\n")
	}

	if r.config.Output.Verbose {
		r.writeConfigInfo(&report)
	}

	r.writeSummary(&report, result)
	r.writeQualityScore(&report, result)

	if len(result.Issues) > 0 {
		r.writeIssuesSummary(&report, result)
		report.WriteString("\n")
		r.writeDetailedIssues(&report, result)
	} else {
		report.WriteString(r.paint(color.GreenString, "%s\n\n",
			r.label("🎉", "No reused iterators detected! Great job!")))
	}

	if len(result.Skipped) > 0 {
		r.writeSkipped(&report, result)
	}

	report.WriteString(r.paint(color.WhiteString, "Analysis completed in %s\n", result.AnalysisDuration))
	return report.String()
}

func (r *ReportGenerator) writeQualityScore(report *strings.Builder, result *models.AnalysisResult) {
	score := result.QualityScore
	thresholds := r.config.Analysis.ScoreThresholds

	var scoreColor func(a ...interface{}) string
	var emoji string
	switch {
	case score >= thresholds.Excellent:
		scoreColor = color.New(color.FgGreen).SprintFunc()
		emoji = "🌟"
	case score >= thresholds.Good:
		scoreColor = color.New(color.FgYellow).SprintFunc()
		emoji = "⚡"
	case score >= thresholds.Fair:
		scoreColor = color.New(color.FgHiYellow).SprintFunc()
		emoji = "⚠️"
	default:
		scoreColor = color.New(color.FgRed).SprintFunc()
		emoji = "🚨"
	}

	if r.config.Output.Colors {
		report.WriteString(fmt.Sprintf("%s Quality Score: %s/100\n\n", emoji, scoreColor(fmt.Sprintf("%d", score))))
	} else {
		report.WriteString(fmt.Sprintf("Quality Score: %d/100\n\n", score))
	}
}

// getSeverityDisplay returns emoji and color function for a severity level
func (r *ReportGenerator) getSeverityDisplay(severity string) (string, func(a ...interface{}) string) {
	switch severity {
	case "CRITICAL":
		return "🚨", color.New(color.FgRed, color.Bold).SprintFunc()
	case "HIGH":
		return "❌", color.New(color.FgRed).SprintFunc()
	case "MEDIUM":
		return "⚠️", color.New(color.FgYellow).SprintFunc()
	case "LOW":
		return "ℹ️", color.New(color.FgBlue).SprintFunc()
	default:
		return "❓", color.New(color.FgWhite).SprintFunc()
	}
}

func (r *ReportGenerator) writeConfigInfo(report *strings.Builder) {
	rules := r.config.Rules
	report.WriteString(r.paint(color.WhiteString, "%s\n", r.label("📋", "Configuration:")))
	report.WriteString(fmt.Sprintf("   Rules: %s\n", r.paint(color.CyanString, "%s", strings.Join(r.enabledRules(), ", "))))
	report.WriteString(fmt.Sprintf("   Producers: %s\n", r.paint(color.CyanString, "%s", strings.Join(rules.ReusedIterator.Producers, ", "))))
	report.WriteString(fmt.Sprintf("   Consumers: %s\n", r.paint(color.CyanString, "%s", strings.Join(rules.ReusedIterator.Consumers, ", "))))
	report.WriteString(fmt.Sprintf("   Score thresholds: %s\n", r.paint(color.CyanString, "%d/%d/%d",
		r.config.Analysis.ScoreThresholds.Excellent,
		r.config.Analysis.ScoreThresholds.Good,
		r.config.Analysis.ScoreThresholds.Fair)))
	report.WriteString("\n")
}

func (r *ReportGenerator) enabledRules() []string {
	rules := lo.Filter([]string{"reused-iterator", "useless-suppression"}, func(rule string, _ int) bool {
		return r.config.IsRuleEnabled(rule)
	})
	if len(rules) == 0 {
		return []string{"none"}
	}
	return rules
}

func (r *ReportGenerator) writeSummary(report *strings.Builder, result *models.AnalysisResult) {
	report.WriteString(r.paint(color.WhiteString, "%s\n", r.label("📊", "Summary:")))
	report.WriteString(fmt.Sprintf("   Files analyzed: %d\n", len(result.Files)))
	if len(result.Skipped) > 0 {
		report.WriteString(fmt.Sprintf("   Files skipped: %d\n", len(result.Skipped)))
	}
	report.WriteString(fmt.Sprintf("   Issues found: %d\n", result.TotalIssues))
	report.WriteString("\n")
}

func (r *ReportGenerator) writeIssuesSummary(report *strings.Builder, result *models.AnalysisResult) {
	report.WriteString(r.paint(color.WhiteString, "%s\n", r.label("📋", "Issues by Severity:")))

	severities := []string{"CRITICAL", "HIGH", "MEDIUM", "LOW"}
	for _, severity := range severities {
		count := result.IssuesBySeverity[severity]
		if count == 0 {
			continue
		}
		if r.config.Output.Colors {
			emoji, colorFunc := r.getSeverityDisplay(severity)
			report.WriteString(fmt.Sprintf("   %s %s: %s\n", emoji, severity, colorFunc(fmt.Sprintf("%d", count))))
		} else {
			report.WriteString(fmt.Sprintf("   %s: %d\n", severity, count))
		}
	}
}

// writeDetailedIssues lists issues per file, in file order, numbering
// them across the whole report.
func (r *ReportGenerator) writeDetailedIssues(report *strings.Builder, result *models.AnalysisResult) {
	report.WriteString(r.paint(color.WhiteString, "\n%s\n", r.label("🔍", "Detailed Issues:")))
	report.WriteString(strings.Repeat("─", 50) + "\n\n")

	byFile := lo.GroupBy(result.Issues, func(issue models.Issue) string {
		return issue.File
	})
	files := lo.Keys(byFile)
	sort.Strings(files)

	index := 0
	for _, file := range files {
		report.WriteString(r.paint(color.HiWhiteString, "%s\n", r.label("📄", file)))
		for _, issue := range byFile[file] {
			index++
			r.writeIssueDetail(report, issue, index)
			report.WriteString("\n")
		}
	}
}

func (r *ReportGenerator) writeIssueDetail(report *strings.Builder, issue models.Issue, index int) {
	severity := issue.Severity.String()
	if r.config.Output.Colors {
		emoji, severityColor := r.getSeverityDisplay(severity)
		report.WriteString(fmt.Sprintf("%s Issue #%d - %s %s\n",
			emoji, index, severityColor(severity), color.WhiteString(r.issueTitle(issue))))
	} else {
		report.WriteString(fmt.Sprintf("Issue #%d - %s %s\n", index, severity, r.issueTitle(issue)))
	}

	location := fmt.Sprintf("%s:%d:%d", issue.File, issue.Line, issue.Column)
	if issue.Function != "" {
		location += fmt.Sprintf(" in function '%s'", issue.Function)
	}
	report.WriteString(r.paint(color.CyanString, "   %s\n", r.label("📍", "Location: "+location)))

	report.WriteString(r.paint(color.WhiteString, "   %s\n", r.label("💭", "Issue: "+issue.Message)))

	if issue.CodeSnippet != "" {
		report.WriteString(r.paint(color.HiBlackString, "   %s\n", r.label("🧾", "Code: "+issue.CodeSnippet)))
	}
	if issue.DefinedAt != "" {
		report.WriteString(r.paint(color.YellowString, "   %s\n",
			r.label("🔗", fmt.Sprintf("Created at: %s (confidence %s)", issue.DefinedAt, issue.Confidence))))
	}

	if !r.config.Output.ShowSuggestions || issue.Suggestion == "" {
		return
	}
	report.WriteString(r.paint(color.GreenString, "   %s\n", r.label("💡", "Suggestion:")))
	for _, line := range strings.Split(issue.Suggestion, "\n") {
		if strings.TrimSpace(line) != "" {
			report.WriteString(r.paint(color.GreenString, "      %s\n", strings.TrimSpace(line)))
		}
	}
}

// issueTitle is "W4802 reused-iterator" when the issue has a message id,
// else the upper-cased issue type.
func (r *ReportGenerator) issueTitle(issue models.Issue) string {
	switch {
	case issue.MessageID != "" && issue.Symbol != "":
		return fmt.Sprintf("%s %s", issue.MessageID, issue.Symbol)
	case issue.Symbol != "":
		return issue.Symbol
	default:
		return strings.ToUpper(string(issue.Type))
	}
}

func (r *ReportGenerator) writeSkipped(report *strings.Builder, result *models.AnalysisResult) {
	report.WriteString(r.paint(color.YellowString, "%s\n", r.label("⏭️", "Skipped Files:")))
	for _, skipped := range result.Skipped {
		report.WriteString(fmt.Sprintf("   %s: %s\n", skipped.File, skipped.Reason))
	}
	report.WriteString("\n")
}
