package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	out := ToHTML("**Drop** your bag\nat reception")
	if !strings.Contains(out, "<strong>Drop</strong>") {
		t.Fatalf("expected bold markup, got %q", out)
	}
	if !strings.Contains(out, "<br") {
		t.Fatalf("expected hard wrap, got %q", out)
	}
}

func TestToHTMLEscapesRawHTML(t *testing.T) {
	out := ToHTML("<script>alert(1)</script>")
	if strings.Contains(out, "<script>") {
		t.Fatalf("raw html must not pass through, got %q", out)
	}
}

func TestToHTMLEmpty(t *testing.T) {
	if out := ToHTML(""); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
