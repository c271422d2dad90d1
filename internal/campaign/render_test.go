package campaign

import "testing"

func TestRenderHTMLEscapes(t *testing.T) {
	out, err := RenderHTML("Hi {name}!", map[string]string{"name": "<b>Alice</b>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hi &lt;b&gt;Alice&lt;/b&gt;!" {
		t.Errorf("out = %q", out)
	}
}

func TestRenderRawDoesNotEscape(t *testing.T) {
	out, err := RenderRaw("https://example.com/p/{id}?a=b&c=d", map[string]string{"id": "7"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "https://example.com/p/7?a=b&c=d" {
		t.Errorf("out = %q", out)
	}
}

func TestRenderMissingKeyFallsBack(t *testing.T) {
	tpl := "Hi {name}, see {profile}"
	out, err := RenderHTML(tpl, map[string]string{"name": "Alice"})
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if out != tpl {
		t.Errorf("fallback should be the unmodified template, got %q", out)
	}
}

func TestRenderNoPlaceholders(t *testing.T) {
	out, err := RenderHTML("plain text", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "plain text" {
		t.Errorf("out = %q", out)
	}
}
