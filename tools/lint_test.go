package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func issueCodes(issues []*LintIssue) []string {
	codes := make([]string, len(issues))
	for i, iss := range issues {
		codes[i] = iss.Code
	}
	return codes
}

func TestLintDetectsUndefinedLabel(t *testing.T) {
	l := NewLinter(nil)
	issues := l.Lint("JMP nowhere\n")
	require.Contains(t, issueCodes(issues), "UNDEF_LABEL")
}

func TestLintSuggestsSimilarLabel(t *testing.T) {
	l := NewLinter(nil)
	issues := l.Lint("JMP donee\ndone: HALT\n")
	require.NotEmpty(t, issues)
	found := false
	for _, iss := range issues {
		if iss.Code == "UNDEF_LABEL" && strings.Contains(iss.Message, "done") {
			found = true
		}
	}
	require.True(t, found)
}

func TestLintDetectsDuplicateLabel(t *testing.T) {
	l := NewLinter(nil)
	issues := l.Lint("a: HALT\na: HALT\n")
	require.Contains(t, issueCodes(issues), "DUPLICATE_LABEL")
}

func TestLintDetectsUnusedLabel(t *testing.T) {
	l := NewLinter(nil)
	issues := l.Lint("unused: HALT\n")
	require.Contains(t, issueCodes(issues), "UNUSED_LABEL")
}

func TestLintDetectsUnreachableCode(t *testing.T) {
	l := NewLinter(nil)
	issues := l.Lint("HALT\nMOV RA,1\n")
	require.Contains(t, issueCodes(issues), "UNREACHABLE_CODE")
}

func TestLintAllowsLabeledCodeAfterHalt(t *testing.T) {
	l := NewLinter(nil)
	issues := l.Lint("HALT\nhere: MOV RA,1\n")
	require.NotContains(t, issueCodes(issues), "UNREACHABLE_CODE")
}

func TestLintDetectsInvalidDirectiveArity(t *testing.T) {
	l := NewLinter(nil)
	issues := l.Lint(".DS \"a\",\"b\"\n")
	require.Contains(t, issueCodes(issues), "INVALID_DIRECTIVE")
}

func TestLintNoFalsePositiveOnValidProgram(t *testing.T) {
	l := NewLinter(nil)
	issues := l.Lint("loop: JMP loop\n")
	require.Empty(t, issueCodes(issues))
}
