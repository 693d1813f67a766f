package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTranslateIdentityShortCircuitSameLanguage(t *testing.T) {
	a := New("http://unused.invalid", "", nil)
	out, err := a.Translate(context.Background(), "hello", "en", "en")
	if err != nil || out != "hello" {
		t.Fatalf("expected identity passthrough, got %q, %v", out, err)
	}
}

func TestTranslateIdentityShortCircuitBlankText(t *testing.T) {
	a := New("http://unused.invalid", "", nil)
	out, err := a.Translate(context.Background(), "   ", "en", "es")
	if err != nil || out != "   " {
		t.Fatalf("expected whitespace passthrough, got %q, %v", out, err)
	}
}

func TestTranslateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req providerRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(providerResponse{TranslatedText: "hola mundo"})
	}))
	defer srv.Close()

	a := New(srv.URL, "", nil)
	out, err := a.Translate(context.Background(), "hello world", "en", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hola mundo" {
		t.Fatalf("got %q, want hola mundo", out)
	}
}

func TestTranslateRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(providerResponse{TranslatedText: "bonjour"})
	}))
	defer srv.Close()

	a := New(srv.URL, "", nil)
	a.BaseBackoff = time.Millisecond
	out, err := a.Translate(context.Background(), "hello", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "bonjour" {
		t.Fatalf("got %q, want bonjour", out)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestTranslatePersistentFailureReturnsErrTranslationFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(srv.URL, "", nil)
	a.BaseBackoff = time.Millisecond
	_, err := a.Translate(context.Background(), "hello", "en", "fr")
	if err == nil || !strings.Contains(err.Error(), ErrTranslationFailed.Error()) {
		t.Fatalf("expected wrapped ErrTranslationFailed, got %v", err)
	}
}

func TestTranslateDetectsGarbageOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(providerResponse{TranslatedText: "the the the the the"})
	}))
	defer srv.Close()

	a := New(srv.URL, "", nil)
	a.BaseBackoff = time.Millisecond
	_, err := a.Translate(context.Background(), "hello", "en", "fr")
	if err == nil {
		t.Fatal("expected garbage output to surface as an error, not be returned as a translation")
	}
}

func TestTranslateOfflinePhraseTableKnownPhrase(t *testing.T) {
	a := New("http://unused.invalid", "", nil)
	a.Offline = true
	out, err := a.Translate(context.Background(), "Hello", "en", "es")
	if err != nil || out != "hola" {
		t.Fatalf("got %q, %v; want hola, nil", out, err)
	}
}

func TestTranslateOfflinePhraseTableUnknownPhraseBracketsPassthrough(t *testing.T) {
	a := New("http://unused.invalid", "", nil)
	a.Offline = true
	out, err := a.Translate(context.Background(), "something obscure", "en", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[es] something obscure" {
		t.Fatalf("got %q", out)
	}
}

func TestIsRepeatedWordGarbageAllSameWord(t *testing.T) {
	if !isRepeatedWordGarbage("test test test test") {
		t.Fatal("expected all-identical words to be detected as garbage")
	}
}

func TestIsRepeatedWordGarbageNormalSentence(t *testing.T) {
	if isRepeatedWordGarbage("this is a perfectly normal sentence with varied words") {
		t.Fatal("did not expect normal sentence to be flagged as garbage")
	}
}
