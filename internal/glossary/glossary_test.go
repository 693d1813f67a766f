package glossary

import (
	"strings"
	"testing"

	"github.com/amityvox/amityvox/internal/models"
)

func TestProtectRestoreRoundTripPreservesCase(t *testing.T) {
	entries := Merge(Default(), []models.GlossaryEntry{
		{Scope: "c1", Term: "FlowTalk", Category: models.GlossaryBrand, PreserveCase: true},
	})
	p := New(entries)

	masked, pt := p.Protect("FlowTalk is great")
	if strings.Contains(masked, "FlowTalk") {
		t.Fatalf("expected FlowTalk to be masked, got %q", masked)
	}
	restored := Restore(masked, pt)
	if restored != "FlowTalk is great" {
		t.Fatalf("Restore() = %q, want original text with case preserved", restored)
	}
}

func TestProtectPreservesOriginalCaseNotCanonical(t *testing.T) {
	entries := []models.GlossaryEntry{
		{Scope: models.GlossaryScopeDefault, Term: "GitHub", Category: models.GlossaryBrand},
	}
	p := New(entries)
	masked, pt := p.Protect("i love github a lot")
	restored := Restore(masked, pt)
	if restored != "i love github a lot" {
		t.Fatalf("Restore() = %q, want lowercase surface form preserved", restored)
	}
}

func TestLongestTermWinsOverShorter(t *testing.T) {
	entries := []models.GlossaryEntry{
		{Scope: models.GlossaryScopeDefault, Term: "API"},
		{Scope: models.GlossaryScopeDefault, Term: "GitHub API"},
	}
	p := New(entries)
	masked, pt := p.Protect("check the GitHub API docs")
	if len(pt.Matches) != 1 || pt.Matches[0].Term != "GitHub API" {
		t.Fatalf("expected a single GitHub API match, got %+v", pt.Matches)
	}
	if Restore(masked, pt) != "check the GitHub API docs" {
		t.Fatalf("round trip failed: %q", Restore(masked, pt))
	}
}

func TestMergeCommunityWinsAndNoDuplicates(t *testing.T) {
	defaults := []models.GlossaryEntry{
		{Scope: models.GlossaryScopeDefault, Term: "Widget", Category: models.GlossaryCustom},
	}
	community := []models.GlossaryEntry{
		{Scope: "community-1", Term: "widget", Category: models.GlossaryBrand},
		{Scope: "community-1", Term: "Gizmo", Category: models.GlossaryBrand},
	}
	merged := Merge(defaults, community)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged entries (dedup by case-insensitive term), got %d: %+v", len(merged), merged)
	}
	var widget models.GlossaryEntry
	for _, e := range merged {
		if strings.EqualFold(e.Term, "widget") {
			widget = e
		}
	}
	if widget.Scope != "community-1" {
		t.Fatalf("expected community entry to win over default, got scope %q", widget.Scope)
	}
}

func TestProtectNoMatches(t *testing.T) {
	p := New(Default())
	text := "nothing to protect here"
	masked, pt := p.Protect(text)
	if masked != text || len(pt.Matches) != 0 {
		t.Fatalf("expected no-op protect, got masked=%q matches=%+v", masked, pt.Matches)
	}
}
