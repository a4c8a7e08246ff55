// Package github posts karma check runs back to GitHub.
package github

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/commit-karma/internal/model"
)

// CheckRunName is both the check run name and its output title.
const CheckRunName = "commit-karma"

type Conclusion string

const (
	ConclusionSuccess Conclusion = "success"
	ConclusionFailure Conclusion = "failure"
	ConclusionNeutral Conclusion = "neutral"
)

// ConclusionFor maps a karma score onto a check run conclusion.
func ConclusionFor(score float64) Conclusion {
	switch {
	case score > 0:
		return ConclusionSuccess
	case score < -100:
		return ConclusionFailure
	default:
		return ConclusionNeutral
	}
}

// Phrase describes a karma score for the check run summary.
func Phrase(score float64) string {
	switch {
	case score > 100:
		return "great karma!"
	case score > 0:
		return "good karma!"
	case score < -100:
		return "bad karma..."
	default:
		return "neutral karma."
	}
}

// KindPhrase is the row label for a kind in the report table.
func KindPhrase(kind model.Kind) string {
	switch kind {
	case model.KindPullRequest:
		return "Pull Requests"
	case model.KindIssue:
		return "Issues"
	case model.KindComment:
		return "Comments"
	case model.KindReview:
		return "Reviews"
	case model.KindMerged:
		return "Merged Pull Requests"
	default:
		return "Unknown"
	}
}

// Output is the check run's output object.
type Output struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Text    string `json:"text"`
}

// Report renders the check run output for a user's karma: a one-line summary
// and a markdown table with one row per kind the user has, in model.Kinds
// order, followed by the total.
//
//	| kinds | count | total |
//	| ----- | ----- | ----- |
//	| Comments | 2 | 2 |
//	| Reviews | 1 | 2.5 |
//	|       |       | 4.5 |
func Report(login string, karma *model.Karma) Output {
	var b strings.Builder
	b.WriteString("| kinds | count | total |\n")
	b.WriteString("| ----- | ----- | ----- |\n")
	for _, kind := range model.Kinds {
		count := karma.Kinds[kind]
		if count == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %s |\n", KindPhrase(kind), count, formatScore(karma.Totals[kind]))
	}
	fmt.Fprintf(&b, "|       |       | %s |", formatScore(karma.Score))

	return Output{
		Title:   CheckRunName,
		Summary: fmt.Sprintf("@%s has %s", login, Phrase(karma.Score)),
		Text:    b.String(),
	}
}

// formatScore prints the shortest exact decimal: 2.5, -10, 0.
func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
