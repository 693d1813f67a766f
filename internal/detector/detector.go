// Package detector implements the Language Detector: it classifies a plain
// string as {language, isRomanized, confidence, fallbacks} using lexical
// word-list scoring, regex pattern hits, and Unicode script bonuses,
// including the romanized-Hindi ("Hinglish") special case required by
// spec §4.B.
package detector

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// LangCode is an ISO 639-1 code, or the input-only detection outcome
// "hi-rom" for romanized Hindi.
type LangCode string

const (
	LangEN LangCode = "en"
	LangES LangCode = "es"
	LangFR LangCode = "fr"
	LangDE LangCode = "de"
	LangIT LangCode = "it"
	LangPT LangCode = "pt"
	LangRU LangCode = "ru"
	LangJA LangCode = "ja"
	LangKO LangCode = "ko"
	LangZH LangCode = "zh"
	LangAR LangCode = "ar"
	LangHI LangCode = "hi"

	// LangHiRom is never returned as Result.Language (the native language
	// "hi" is, with IsRomanized set) — it exists so callers can recognize
	// the detection path name used in spec §4.B step 5 and §6.
	LangHiRom LangCode = "hi-rom"
)

// DefaultSupported is the reference implementation's supported language set
// from spec §6.
var DefaultSupported = []LangCode{LangEN, LangES, LangFR, LangDE, LangIT, LangPT, LangRU, LangJA, LangKO, LangZH, LangAR, LangHI}

// Result is the output of Detect.
type Result struct {
	Language    LangCode
	IsRomanized bool
	Confidence  float64
	Fallbacks   []LangCode
}

// MinContentLength is the code-point floor below which Detect returns the
// default {en, false, 0.3, []} per spec §4.B step 2.
const MinContentLength = 10

// Detector scores text against per-language word lists and script patterns.
type Detector struct {
	supported map[LangCode]bool
	wordlists map[LangCode][]string
	romanHi   []string
}

// New builds a Detector over DefaultSupported with the bundled word lists.
func New() *Detector {
	return NewWithSupported(DefaultSupported)
}

// NewWithSupported builds a Detector restricted to the given supported set;
// languages detected outside of it degrade to "en" per spec §4.B step 7.
func NewWithSupported(supported []LangCode) *Detector {
	sup := make(map[LangCode]bool, len(supported))
	for _, l := range supported {
		sup[l] = true
	}
	return &Detector{
		supported: sup,
		wordlists: defaultWordlists,
		romanHi:   romanizedHindiWords,
	}
}

var punctRe = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
var spaceRe = regexp.MustCompile(`\s+`)
var maskTokenRe = regexp.MustCompile(`⟪[PG][0-9a-fA-F]*-?\d*⟫`)

func clean(text string) string {
	s := maskTokenRe.ReplaceAllString(text, " ")
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Detect classifies text per spec §4.B.
func (d *Detector) Detect(text string) Result {
	cleaned := clean(text)
	if utf8.RuneCountInString(cleaned) < MinContentLength {
		return Result{Language: LangEN, IsRomanized: false, Confidence: 0.3}
	}

	tokens := strings.Fields(cleaned)
	scores := make(map[LangCode]float64, len(d.wordlists))
	for lang, words := range d.wordlists {
		scores[lang] = wordFraction(tokens, words) + patternBonus(lang, cleaned)
	}
	addScriptBonuses(cleaned, scores)

	hiRomScore := wordFraction(tokens, d.romanHi)
	enScore := scores[LangEN]

	chosen := topLanguage(scores)
	isRomanized := false
	if hiRomScore > 0.15 && hiRomScore > 0.5*enScore {
		chosen = LangHI
		isRomanized = true
		scores[LangHI] = hiRomScore
	}

	confidence := confidenceFromScores(scores, chosen)
	if !d.supported[chosen] {
		chosen = LangEN
	}

	return Result{
		Language:    chosen,
		IsRomanized: isRomanized,
		Confidence:  confidence,
		Fallbacks:   fallbacksFor(scores, chosen),
	}
}

// IsUncertain reports whether Detect's confidence for content falls below
// the 0.6 threshold spec §4.B names for the IsUncertain auxiliary op.
func (d *Detector) IsUncertain(content string) bool {
	return d.Detect(content).Confidence < 0.6
}

// MixedSegment is one sentence-level slice of a DetectMixed result.
type MixedSegment struct {
	Text     string
	Language LangCode
}

// MixedResult is the output of DetectMixed.
type MixedResult struct {
	Primary  LangCode
	Segments []MixedSegment
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// DetectMixed sentence-segments content on [.!?]+, detects each segment
// independently, and picks Primary as the language with the greatest total
// character weight across segments.
func (d *Detector) DetectMixed(content string) MixedResult {
	parts := sentenceSplitRe.Split(content, -1)
	weights := map[LangCode]int{}
	var segments []MixedSegment
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		lang := d.Detect(trimmed).Language
		segments = append(segments, MixedSegment{Text: trimmed, Language: lang})
		weights[lang] += utf8.RuneCountInString(trimmed)
	}
	primary := LangEN
	best := -1
	for lang, w := range weights {
		if w > best {
			best, primary = w, lang
		}
	}
	return MixedResult{Primary: primary, Segments: segments}
}

func wordFraction(tokens []string, wordlist []string) float64 {
	if len(tokens) == 0 || len(wordlist) == 0 {
		return 0
	}
	set := make(map[string]bool, len(wordlist))
	for _, w := range wordlist {
		set[w] = true
	}
	hits := 0
	for _, t := range tokens {
		if set[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// patternBonus scores regex-pattern hits (characteristic suffixes/digraphs)
// normalized by text length, per spec §4.B step 3(b).
func patternBonus(lang LangCode, text string) float64 {
	re, ok := patternHints[lang]
	if !ok || len(text) == 0 {
		return 0
	}
	hits := len(re.FindAllString(text, -1))
	return float64(hits) / float64(len(text)) * 10
}

var patternHints = map[LangCode]*regexp.Regexp{
	LangES: regexp.MustCompile(`ción\b|\bque\b|\bpara\b`),
	LangFR: regexp.MustCompile(`tion\b|\best\b|\bavec\b`),
	LangIT: regexp.MustCompile(`zione\b|\bche\b|\bperché\b`),
	LangPT: regexp.MustCompile(`ção\b|\bque\b|\bpara\b`),
	LangDE: regexp.MustCompile(`ung\b|\bnicht\b|\bund\b`),
	LangEN: regexp.MustCompile(`ing\b|\bthe\b|\band\b`),
}

// scriptRanges gives each language a fixed bonus when its characteristic
// Unicode script appears anywhere in the text, per spec §4.B step 4.
var scriptRanges = []struct {
	lang LangCode
	re   *regexp.Regexp
	bump float64
}{
	{LangRU, regexp.MustCompile(`\p{Cyrillic}`), 0.6},
	{LangZH, regexp.MustCompile(`\p{Han}`), 0.6},
	{LangJA, regexp.MustCompile(`\p{Hiragana}|\p{Katakana}`), 0.65},
	{LangKO, regexp.MustCompile(`\p{Hangul}`), 0.65},
	{LangAR, regexp.MustCompile(`\p{Arabic}`), 0.65},
	{LangHI, regexp.MustCompile(`\p{Devanagari}`), 0.65},
}

var accentedLatinRe = regexp.MustCompile(`[àâäéèêëîïôöùûüçáíóúñãõ]`)
var germanUmlautRe = regexp.MustCompile(`[äöüß]`)

func addScriptBonuses(text string, scores map[LangCode]float64) {
	for _, sr := range scriptRanges {
		if sr.re.MatchString(text) {
			scores[sr.lang] += sr.bump
		}
	}
	if n := len(accentedLatinRe.FindAllString(text, -1)); n > 0 {
		bonus := 0.1 * float64(n)
		for _, l := range []LangCode{LangES, LangFR, LangIT, LangPT} {
			scores[l] += bonus
		}
	}
	if germanUmlautRe.MatchString(text) {
		scores[LangDE] += 0.3
	}
}

func topLanguage(scores map[LangCode]float64) LangCode {
	best := LangEN
	bestScore := -1.0
	for lang, s := range scores {
		if s > bestScore {
			bestScore, best = s, lang
		}
	}
	return best
}

// confidenceFromScores implements spec §4.B step 6: the ratio of the top
// score to the second-best score maps to a fixed confidence tier.
func confidenceFromScores(scores map[LangCode]float64, chosen LangCode) float64 {
	type kv struct {
		lang  LangCode
		score float64
	}
	var ordered []kv
	for l, s := range scores {
		ordered = append(ordered, kv{l, s})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].score > ordered[j].score })

	top := scores[chosen]
	var second float64
	for _, kv := range ordered {
		if kv.lang != chosen {
			second = kv.score
			break
		}
	}
	if second <= 0 {
		if top <= 0 {
			return 0.4
		}
		return 0.9
	}
	ratio := top / second
	switch {
	case ratio > 2.0:
		return 0.9
	case ratio > 1.5:
		return 0.75
	case ratio > 1.2:
		return 0.6
	default:
		return 0.4
	}
}

func fallbacksFor(scores map[LangCode]float64, chosen LangCode) []LangCode {
	type kv struct {
		lang  LangCode
		score float64
	}
	var ordered []kv
	for l, s := range scores {
		if l == chosen || s <= 0 {
			continue
		}
		ordered = append(ordered, kv{l, s})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].score > ordered[j].score })
	out := make([]LangCode, 0, len(ordered))
	for _, kv := range ordered {
		out = append(out, kv.lang)
	}
	return out
}
