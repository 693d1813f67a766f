package detector

import "testing"

func TestDetectEnglish(t *testing.T) {
	d := New()
	r := d.Detect("Hello world, how are you doing today my friend")
	if r.Language != LangEN {
		t.Fatalf("expected en, got %s (confidence %v)", r.Language, r.Confidence)
	}
	if r.IsRomanized {
		t.Fatal("expected IsRomanized=false for plain English")
	}
}

func TestDetectShortTextDefaultsToEnglish(t *testing.T) {
	d := New()
	r := d.Detect("hi")
	if r.Language != LangEN || r.Confidence != 0.3 || r.IsRomanized {
		t.Fatalf("expected default {en,false,0.3}, got %+v", r)
	}
}

func TestDetectRomanizedHindi(t *testing.T) {
	d := New()
	r := d.Detect("muje aapki help chahiye")
	if r.Language != LangHI {
		t.Fatalf("expected hi, got %s", r.Language)
	}
	if !r.IsRomanized {
		t.Fatal("expected IsRomanized=true for Hinglish input")
	}
	if r.Confidence < 0.6 {
		t.Fatalf("expected confidence >= 0.6, got %v", r.Confidence)
	}
}

func TestDetectRussianScript(t *testing.T) {
	d := New()
	r := d.Detect("Привет мир, как твои дела сегодня")
	if r.Language != LangRU {
		t.Fatalf("expected ru, got %s", r.Language)
	}
}

func TestDetectJapaneseScript(t *testing.T) {
	d := New()
	r := d.Detect("こんにちは世界、今日は元気ですか")
	if r.Language != LangJA {
		t.Fatalf("expected ja, got %s", r.Language)
	}
}

func TestIsUncertain(t *testing.T) {
	d := New()
	if !d.IsUncertain("hi") {
		t.Fatal("expected very short text to be uncertain")
	}
}

func TestDetectUnsupportedDegradesToEnglish(t *testing.T) {
	d := NewWithSupported([]LangCode{LangEN})
	r := d.Detect("Привет мир, как твои дела сегодня")
	if r.Language != LangEN {
		t.Fatalf("expected degrade to en when ru unsupported, got %s", r.Language)
	}
}

func TestDetectMixedWeightsByCharacterLength(t *testing.T) {
	d := New()
	content := "Hello there my friend. Привет мир, как твои дела сегодня и всё хорошо у тебя"
	mixed := d.DetectMixed(content)
	if len(mixed.Segments) != 2 {
		t.Fatalf("expected 2 sentence segments, got %d: %+v", len(mixed.Segments), mixed.Segments)
	}
	if mixed.Primary != LangRU {
		t.Fatalf("expected Russian segment (longer) to be primary, got %s", mixed.Primary)
	}
}
