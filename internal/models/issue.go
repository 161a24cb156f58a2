package models

import "sort"

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity accepts the lower or upper case names used in config files.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "low", "LOW":
		return SeverityLow, true
	case "medium", "MEDIUM":
		return SeverityMedium, true
	case "high", "HIGH":
		return SeverityHigh, true
	case "critical", "CRITICAL":
		return SeverityCritical, true
	default:
		return SeverityLow, false
	}
}

type IssueType string

const (
	IssueReusedIterator     IssueType = "reused_iterator"
	IssueUselessSuppression IssueType = "useless_suppression"
)

type Issue struct {
	Type       IssueType `json:"type"`
	Severity   Severity  `json:"severity"`
	File       string    `json:"file"`
	Line       int       `json:"line"`
	Column     int       `json:"column"`
	EndLine    int       `json:"end_line,omitempty"`
	EndColumn  int       `json:"end_column,omitempty"`
	Function   string    `json:"function,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
	Variable   string    `json:"variable,omitempty"`
	Confidence string    `json:"confidence,omitempty"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`
	// DefinedAt is "line:col" of the statement that created the iterator.
	DefinedAt   string `json:"defined_at,omitempty"`
	CodeSnippet string `json:"code_snippet,omitempty"`
}

// Less orders issues by file, line and column.
func (i *Issue) Less(o *Issue) bool {
	if i.File != o.File {
		return i.File < o.File
	}
	if i.Line != o.Line {
		return i.Line < o.Line
	}
	return i.Column < o.Column
}

// SkippedFile is a file the run could not analyse.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

type AnalysisResult struct {
	Files            []string       `json:"files_analyzed"`
	TotalIssues      int            `json:"total_issues"`
	IssuesBySeverity map[string]int `json:"issues_by_severity"`
	Issues           []Issue        `json:"issues"`
	Skipped          []SkippedFile  `json:"skipped,omitempty"`
	QualityScore     int            `json:"quality_score"` // 0-100 scale
	AnalysisDuration string         `json:"analysis_duration"`
}

func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		Files:            make([]string, 0),
		Issues:           make([]Issue, 0),
		IssuesBySeverity: make(map[string]int),
	}
}

func (ar *AnalysisResult) AddIssue(issue Issue) {
	ar.Issues = append(ar.Issues, issue)
	ar.TotalIssues++
	ar.IssuesBySeverity[issue.Severity.String()]++
}

func (ar *AnalysisResult) AddSkipped(file string, err error) {
	ar.Skipped = append(ar.Skipped, SkippedFile{File: file, Reason: err.Error()})
}

// Merge folds the per-file result other into ar.
func (ar *AnalysisResult) Merge(other *AnalysisResult) {
	ar.Files = append(ar.Files, other.Files...)
	for _, issue := range other.Issues {
		ar.AddIssue(issue)
	}
	ar.Skipped = append(ar.Skipped, other.Skipped...)
}

// SortIssues puts issues and skipped files in a stable, reproducible order.
func (ar *AnalysisResult) SortIssues() {
	sort.SliceStable(ar.Issues, func(i, j int) bool {
		return ar.Issues[i].Less(&ar.Issues[j])
	})
	sort.Strings(ar.Files)
	sort.SliceStable(ar.Skipped, func(i, j int) bool {
		return ar.Skipped[i].File < ar.Skipped[j].File
	})
}

func (ar *AnalysisResult) CalculateScore() {
	if ar.TotalIssues == 0 {
		ar.QualityScore = 100
		return
	}

	penalty := 0
	for _, issue := range ar.Issues {
		basePenalty := 0
		switch issue.Severity {
		case SeverityLow:
			basePenalty = 5
		case SeverityMedium:
			basePenalty = 15
		case SeverityHigh:
			basePenalty = 30
		case SeverityCritical:
			basePenalty = 50
		}

		switch issue.Type {
		case IssueReusedIterator:
			if issue.Confidence == "INFERENCE" {
				basePenalty = int(float64(basePenalty) * 0.8) // alias tracking may be wrong
			}
		case IssueUselessSuppression:
			basePenalty /= 5
		}

		penalty += basePenalty
	}

	ar.QualityScore = max(100-penalty, 0)
}
