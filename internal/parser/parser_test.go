package parser

import (
	"strings"
	"testing"
)

func TestSegmentCodeFenceAndInlineCode(t *testing.T) {
	p := New()
	content := "Use `console.log()` like this:\n```js\nconsole.log(\"hello\")\n```"
	segs, err := p.Segment(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var kinds []SpanKind
	for _, s := range segs {
		kinds = append(kinds, s.Kind)
	}
	foundInline, foundFence := false, false
	for _, s := range segs {
		if s.Kind == KindInlineCode && s.Raw == "`console.log()`" {
			foundInline = true
		}
		if s.Kind == KindCodeFence && strings.Contains(s.Raw, "js") {
			foundFence = true
		}
	}
	if !foundInline {
		t.Errorf("expected inline code segment, got kinds %v", kinds)
	}
	if !foundFence {
		t.Errorf("expected code fence segment, got kinds %v", kinds)
	}
}

func TestRoundTripNoProtectedSpans(t *testing.T) {
	p := New()
	content := "hello world, this is plain text with no special spans"
	masked, protected, err := p.Mask(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(protected) != 0 {
		t.Fatalf("expected no protected segments, got %d", len(protected))
	}
	if masked != content {
		t.Fatalf("expected masked == content, got %q", masked)
	}
	if got := Unmask(masked, protected); got != content {
		t.Fatalf("Unmask() = %q, want %q", got, content)
	}
}

func TestMaskUnmaskRoundTripWithProtectedSpans(t *testing.T) {
	p := New()
	content := "Use `console.log()` like this:\n```js\nconsole.log(\"hello\")\n```"
	masked, protected, err := p.Mask(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restored := Unmask(masked, protected)
	if restored != content {
		t.Fatalf("round trip mismatch:\nwant %q\ngot  %q", content, restored)
	}
	// The masked form must carry the tokens, not the raw code.
	if strings.Contains(masked, "console.log") {
		t.Fatalf("masked form leaked code: %q", masked)
	}
}

func TestMentionsHashtagsURLs(t *testing.T) {
	p := New()
	content := "hey @alice check https://example.com/path #golang"
	segs, err := p.Segment(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var gotMention, gotURL, gotHashtag bool
	for _, s := range segs {
		switch s.Kind {
		case KindMention:
			if s.Raw == "@alice" {
				gotMention = true
			}
		case KindURL:
			if s.Raw == "https://example.com/path" {
				gotURL = true
			}
		case KindHashtag:
			if s.Raw == "#golang" {
				gotHashtag = true
			}
		}
	}
	if !gotMention || !gotURL || !gotHashtag {
		t.Fatalf("missing expected segments: mention=%v url=%v hashtag=%v (%+v)", gotMention, gotURL, gotHashtag, segs)
	}
}

func TestValidateRejectsForbiddenPatterns(t *testing.T) {
	p := New()
	cases := []string{
		"<script>alert(1)</script>",
		"click javascript:alert(1)",
		"see data:text/html;base64,abc",
	}
	for _, c := range cases {
		if _, err := p.Segment(c); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}

func TestValidateRejectsOverLength(t *testing.T) {
	p := &Parser{MaxContentLength: 10}
	if _, err := p.Segment(strings.Repeat("a", 11)); err == nil {
		t.Fatal("expected InvalidContentError for over-length content")
	}
}

func TestMaskedIsEmptyAllCode(t *testing.T) {
	p := New()
	masked, _, err := p.Mask("```go\nfmt.Println(1)\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !MaskedIsEmpty(masked) {
		t.Fatalf("expected masked form to be empty of translatable text, got %q", masked)
	}
}

func TestMaskedIsEmptyFalseWhenTextPresent(t *testing.T) {
	p := New()
	masked, _, err := p.Mask("hello `world`")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if MaskedIsEmpty(masked) {
		t.Fatalf("expected masked form to carry translatable text, got %q", masked)
	}
}
