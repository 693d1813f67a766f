// Package parser implements the Content Parser: it segments a posted message
// into translatable text and protected spans (fenced/inline code, URLs,
// mentions, hashtags), and masks the protected spans behind opaque tokens so
// they survive translation unchanged.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SpanKind classifies a Segment.
type SpanKind string

const (
	KindText       SpanKind = "text"
	KindCodeFence  SpanKind = "code_fence"
	KindInlineCode SpanKind = "inline_code"
	KindURL        SpanKind = "url"
	KindMention    SpanKind = "mention"
	KindHashtag    SpanKind = "hashtag"
)

// Segment is one piece of a parsed message: either translatable Text or a
// Protected span that must pass through the pipeline verbatim.
type Segment struct {
	Kind SpanKind
	Raw  string
}

// Protected reports whether the segment must be preserved verbatim.
func (s Segment) Protected() bool { return s.Kind != KindText }

// DefaultMaxContentLength is the default cap on content length, in Unicode
// code points, per spec §4.A.
const DefaultMaxContentLength = 4000

// InvalidContentError is returned when content fails length or structural
// validation. Reasons holds every violation found, not just the first.
type InvalidContentError struct {
	Reasons []string
}

func (e *InvalidContentError) Error() string {
	return "invalid content: " + strings.Join(e.Reasons, "; ")
}

var (
	codeFenceRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`\n]+`")
	urlRe        = regexp.MustCompile(`https?://[^\s]+`)
	mentionRe    = regexp.MustCompile(`@\w+`)
	hashtagRe    = regexp.MustCompile(`#\w+`)

	// forbiddenPatterns cause parsing to fail outright; they are never
	// allowed through as translatable text or inside a protected span.
	forbiddenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)data:text/html`),
	}

	// tokenRe matches a mask token produced by Mask.
	tokenRe = regexp.MustCompile(`⟪P(\d+)⟫`)
)

type scanPattern struct {
	re   *regexp.Regexp
	kind SpanKind
}

// order matters only for tie-breaking when two patterns start at the same
// offset (code fence wins over inline code, etc.); scanning always picks the
// earliest match regardless of pattern identity.
var scanPatterns = []scanPattern{
	{codeFenceRe, KindCodeFence},
	{inlineCodeRe, KindInlineCode},
	{urlRe, KindURL},
	{mentionRe, KindMention},
	{hashtagRe, KindHashtag},
}

// Parser segments and masks message content.
type Parser struct {
	MaxContentLength int
}

// New returns a Parser configured with the default max content length.
func New() *Parser {
	return &Parser{MaxContentLength: DefaultMaxContentLength}
}

func (p *Parser) maxLen() int {
	if p.MaxContentLength <= 0 {
		return DefaultMaxContentLength
	}
	return p.MaxContentLength
}

// Validate checks content against length and forbidden-pattern rules. It
// returns every violation found (nil if content is clean) rather than
// stopping at the first.
func (p *Parser) Validate(content string) []string {
	var reasons []string
	if n := utf8.RuneCountInString(content); n > p.maxLen() {
		reasons = append(reasons, fmt.Sprintf("content length %d exceeds max of %d code points", n, p.maxLen()))
	}
	for _, re := range forbiddenPatterns {
		if re.MatchString(content) {
			reasons = append(reasons, fmt.Sprintf("content matches forbidden pattern %q", re.String()))
		}
	}
	return reasons
}

// Segment validates and splits content into an ordered sequence of Text and
// Protected segments. It returns *InvalidContentError if validation fails.
func (p *Parser) Segment(content string) ([]Segment, error) {
	if reasons := p.Validate(content); len(reasons) > 0 {
		return nil, &InvalidContentError{Reasons: reasons}
	}
	return segment(content), nil
}

func segment(content string) []Segment {
	var segments []Segment
	pos := 0
	for pos < len(content) {
		bestStart, bestEnd := -1, -1
		var bestKind SpanKind
		for _, sp := range scanPatterns {
			loc := sp.re.FindStringIndex(content[pos:])
			if loc == nil {
				continue
			}
			start, end := pos+loc[0], pos+loc[1]
			if bestStart == -1 || start < bestStart {
				bestStart, bestEnd, bestKind = start, end, sp.kind
			}
		}
		if bestStart == -1 {
			segments = append(segments, Segment{KindText, content[pos:]})
			break
		}
		if bestStart > pos {
			segments = append(segments, Segment{KindText, content[pos:bestStart]})
		}
		segments = append(segments, Segment{bestKind, content[bestStart:bestEnd]})
		pos = bestEnd
	}
	return segments
}

// Token returns the opaque placeholder for the i'th protected segment.
func Token(i int) string {
	return fmt.Sprintf("⟪P%d⟫", i)
}

// Mask validates and segments content, then returns the masked form (each
// Protected segment replaced by its Token) along with the ordered Protected
// segments so Unmask can reverse the substitution exactly.
func (p *Parser) Mask(content string) (masked string, protected []Segment, err error) {
	segs, err := p.Segment(content)
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	for _, s := range segs {
		if s.Kind == KindText {
			sb.WriteString(s.Raw)
			continue
		}
		idx := len(protected)
		protected = append(protected, s)
		sb.WriteString(Token(idx))
	}
	return sb.String(), protected, nil
}

// Unmask restores the original surface form of every mask token in masked
// using the ordered protected segments returned by Mask. Unknown or
// out-of-range tokens are left untouched rather than causing an error, since
// a translator is free to drop or duplicate a token it doesn't understand.
func Unmask(masked string, protected []Segment) string {
	return tokenRe.ReplaceAllStringFunc(masked, func(tok string) string {
		m := tokenRe.FindStringSubmatch(tok)
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 0 || idx >= len(protected) {
			return tok
		}
		return protected[idx].Raw
	})
}

// MaskedIsEmpty reports whether the masked form carries no translatable
// text at all — i.e. the message, after masking, is entirely protected
// spans (all code, all URLs, ...). Used by the orchestrator to short-circuit
// translation per spec §4.F edge policy.
func MaskedIsEmpty(masked string) bool {
	stripped := tokenRe.ReplaceAllString(masked, "")
	return strings.TrimSpace(stripped) == ""
}
