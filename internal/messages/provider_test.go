package messages

import "testing"

func TestDefaultCatalog(t *testing.T) {
	p := Default()

	got := p.Get("quiz.reveal", P("answer", "HTTP/2"), P("explanation", "multiplexage"))
	if got != "*Réponse :* HTTP/2\n*Explication :* multiplexage" {
		t.Fatalf("unexpected reveal text: %q", got)
	}

	if got := p.Get("ask.usage", P("prefix", "!")); got != "Usage: !ask une question relative à la GNDC" {
		t.Fatalf("unexpected usage text: %q", got)
	}

	for _, key := range []string{"error.generic", "help.group", "help.author", "help.inbox", "news.header", "meme.footer"} {
		if !p.Has(key) {
			t.Fatalf("expected key %s", key)
		}
	}
}

func TestMissingKeyReturnsKey(t *testing.T) {
	p, err := NewFromYAML("a:\n  b: value\n")
	if err != nil {
		t.Fatalf("NewFromYAML() error = %v", err)
	}
	if got := p.Get("a.c"); got != "a.c" {
		t.Fatalf("expected key echo, got %q", got)
	}
	if got := p.Get("a.b"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	if got := p.Get("x"); got != "x" {
		t.Fatalf("expected key echo on nil provider, got %q", got)
	}
}
