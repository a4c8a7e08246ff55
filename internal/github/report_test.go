package github

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/commit-karma/internal/model"
)

func TestConclusionAndPhrase(t *testing.T) {
	tests := []struct {
		score          float64
		wantConclusion Conclusion
		wantPhrase     string
	}{
		{150, ConclusionSuccess, "great karma!"},
		{100, ConclusionSuccess, "good karma!"},
		{0.5, ConclusionSuccess, "good karma!"},
		{0, ConclusionNeutral, "neutral karma."},
		{-5, ConclusionNeutral, "neutral karma."},
		{-100, ConclusionNeutral, "neutral karma."},
		{-100.5, ConclusionFailure, "bad karma..."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.wantConclusion, ConclusionFor(tt.score), "ConclusionFor(%v)", tt.score)
		assert.Equal(t, tt.wantPhrase, Phrase(tt.score), "Phrase(%v)", tt.score)
	}
}

func TestKindPhrase(t *testing.T) {
	assert.Equal(t, "Pull Requests", KindPhrase(model.KindPullRequest))
	assert.Equal(t, "Issues", KindPhrase(model.KindIssue))
	assert.Equal(t, "Comments", KindPhrase(model.KindComment))
	assert.Equal(t, "Reviews", KindPhrase(model.KindReview))
	assert.Equal(t, "Merged Pull Requests", KindPhrase(model.KindMerged))
	assert.Equal(t, "Unknown", KindPhrase(model.Kind("star")))
}

func TestReport(t *testing.T) {
	karma := model.NewKarma(20)
	karma.Add(model.KindReview, 1, 2.5)
	karma.Add(model.KindPullRequest, 2, -10)
	karma.Add(model.KindComment, 2, 2)

	out := Report("bob", karma)

	assert.Equal(t, "commit-karma", out.Title)
	assert.Equal(t, "@bob has neutral karma.", out.Summary)
	assert.Equal(t, "| kinds | count | total |\n"+
		"| ----- | ----- | ----- |\n"+
		"| Pull Requests | 2 | -10 |\n"+
		"| Comments | 2 | 2 |\n"+
		"| Reviews | 1 | 2.5 |\n"+
		"|       |       | -5.5 |", out.Text)
}

func TestReport_Empty(t *testing.T) {
	out := Report("newcomer", model.NewKarma(1))

	assert.Equal(t, "@newcomer has neutral karma.", out.Summary)
	assert.Equal(t, "| kinds | count | total |\n| ----- | ----- | ----- |\n|       |       | 0 |", out.Text)
}
