// Package glossary implements the Glossary Protector: it replaces protected
// terms with opaque placeholders before translation and restores their
// original surface form afterward, so brand names, acronyms, and other
// vocabulary survive a round trip through the Translator Adapter verbatim.
package glossary

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/amityvox/amityvox/internal/models"
)

// Match is one protected-term occurrence found by Protect.
type Match struct {
	Term string // canonical dictionary term
	Raw  string // the original surface form actually matched (case preserved)
}

// ProtectedText is what Protect returns: the matches found, keyed to a
// per-call session so Restore never confuses tokens from an unrelated call
// with the literal text "⟪G0⟫" a user might have typed themselves.
type ProtectedText struct {
	Session string
	Matches []Match
}

// Protector masks glossary terms in text. Build one with New, passing the
// merged default+community entry set for the message's scope.
type Protector struct {
	patterns []termPattern
}

type termPattern struct {
	re   *regexp.Regexp
	term string
}

// New builds a Protector over entries, sorted longest-term-first so e.g.
// "GitHub API" is matched before the shorter "API".
func New(entries []models.GlossaryEntry) *Protector {
	sorted := make([]models.GlossaryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Term) > len(sorted[j].Term)
	})

	patterns := make([]termPattern, 0, len(sorted))
	for _, e := range sorted {
		patterns = append(patterns, termPattern{
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(e.Term) + `\b`),
			term: e.Term,
		})
	}
	return &Protector{patterns: patterns}
}

func tokenRe() *regexp.Regexp {
	return regexp.MustCompile(`⟪G([0-9a-fA-F]+)-(\d+)⟫`)
}

func token(session string, i int) string {
	return fmt.Sprintf("⟪G%s-%d⟫", session, i)
}

// Protect scans text for glossary terms in order of appearance and replaces
// each whole-word, case-insensitive match with an opaque placeholder. The
// returned ProtectedText lets Restore reconstruct the exact original surface
// form of every match.
func (p *Protector) Protect(text string) (string, ProtectedText) {
	session := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	var sb strings.Builder
	var matches []Match
	pos := 0
	for pos < len(text) {
		bestStart, bestEnd := -1, -1
		var bestTerm string
		for _, tp := range p.patterns {
			loc := tp.re.FindStringIndex(text[pos:])
			if loc == nil {
				continue
			}
			start, end := pos+loc[0], pos+loc[1]
			if bestStart == -1 || start < bestStart ||
				(start == bestStart && end-start > bestEnd-bestStart) {
				bestStart, bestEnd, bestTerm = start, end, tp.term
			}
		}
		if bestStart == -1 {
			sb.WriteString(text[pos:])
			break
		}
		if bestStart > pos {
			sb.WriteString(text[pos:bestStart])
		}
		idx := len(matches)
		matches = append(matches, Match{Term: bestTerm, Raw: text[bestStart:bestEnd]})
		sb.WriteString(token(session, idx))
		pos = bestEnd
	}
	return sb.String(), ProtectedText{Session: session, Matches: matches}
}

// Restore substitutes every placeholder produced by Protect back to the
// original matched surface form. Tokens from a different session (or
// lookalike text a user typed directly) are left untouched.
func Restore(masked string, pt ProtectedText) string {
	re := tokenRe()
	return re.ReplaceAllStringFunc(masked, func(tok string) string {
		m := re.FindStringSubmatch(tok)
		if m[1] != pt.Session {
			return tok
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil || idx < 0 || idx >= len(pt.Matches) {
			return tok
		}
		return pt.Matches[idx].Raw
	})
}

// Merge unions default and community-scoped entries. Community entries win
// on case-insensitive equality; a term is never added twice.
func Merge(defaults, community []models.GlossaryEntry) []models.GlossaryEntry {
	seen := make(map[string]bool, len(defaults)+len(community))
	out := make([]models.GlossaryEntry, 0, len(defaults)+len(community))
	for _, e := range community {
		key := strings.ToLower(e.Term)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	for _, e := range defaults {
		key := strings.ToLower(e.Term)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// Default returns a copy of the bundled default glossary: technology
// acronyms, brand/product names, popular frameworks and tools, and
// programming language names.
func Default() []models.GlossaryEntry {
	out := make([]models.GlossaryEntry, len(defaultEntries))
	copy(out, defaultEntries)
	return out
}

var defaultEntries = []models.GlossaryEntry{
	{Scope: models.GlossaryScopeDefault, Term: "GitHub API", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "API", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "URL", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "JSON", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "HTTP", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "SQL", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "CPU", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "GPU", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "GitHub", Category: models.GlossaryBrand, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "GitLab", Category: models.GlossaryBrand, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "Slack", Category: models.GlossaryBrand, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "Discord", Category: models.GlossaryBrand, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "AmityVox", Category: models.GlossaryBrand, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "React", Category: models.GlossaryBrand, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "Kubernetes", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "Docker", Category: models.GlossaryBrand, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "PostgreSQL", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "Redis", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "NATS", Category: models.GlossaryTechnical, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "Golang", Category: models.GlossaryProperNoun, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "Python", Category: models.GlossaryProperNoun, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "JavaScript", Category: models.GlossaryProperNoun, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "TypeScript", Category: models.GlossaryProperNoun, PreserveCase: true},
	{Scope: models.GlossaryScopeDefault, Term: "Rust", Category: models.GlossaryProperNoun, PreserveCase: true},
}
