package crawler

import (
	"reflect"
	"strings"
	"testing"
)

func TestParserExtractsTitleLinksAndCanonical(t *testing.T) {
	t.Parallel()

	const page = `<!DOCTYPE html>
<html>
<head>
  <title>  Product Catalog  </title>
  <link rel="canonical" href="/catalog">
  <link rel="stylesheet" href="/style.css">
</head>
<body>
  <a href="/catalog/widgets">Widgets</a>
  <a href="gadgets">Gadgets</a>
  <a href="https://partner.example.org/deals">Partner</a>
  <a href="#top">Back to top</a>
  <a href="mailto:sales@example.com">Email us</a>
  <a href="javascript:openChat()">Chat</a>
</body>
</html>`

	p, err := NewParser("https://example.com/catalog/")
	if err != nil {
		t.Fatal(err)
	}
	result, err := p.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	if result.Title != "Product Catalog" {
		t.Errorf("Title = %q, want %q", result.Title, "Product Catalog")
	}
	if result.CanonicalURL != "https://example.com/catalog" {
		t.Errorf("CanonicalURL = %q, want %q", result.CanonicalURL, "https://example.com/catalog")
	}

	wantLinks := []string{
		"https://example.com/catalog/widgets",
		"https://example.com/catalog/gadgets",
		"https://partner.example.org/deals",
	}
	if !reflect.DeepEqual(result.Links, wantLinks) {
		t.Errorf("Links = %v, want %v", result.Links, wantLinks)
	}
}

func TestParserHandlesMalformedHTML(t *testing.T) {
	t.Parallel()

	// Unclosed tags and stray text should not break extraction.
	const page = `<title>Broken<body><a href="/one">one<a href="/two">two`

	p, err := NewParser("https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	result, err := p.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	if result.Title != "Broken" {
		t.Errorf("Title = %q, want %q", result.Title, "Broken")
	}
	if len(result.Links) != 2 {
		t.Fatalf("len(Links) = %d, want 2: %v", len(result.Links), result.Links)
	}
}

func TestParserNoCanonical(t *testing.T) {
	t.Parallel()

	p, err := NewParser("https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	result, err := p.Parse(strings.NewReader(`<html><head><title>x</title></head></html>`))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if result.CanonicalURL != "" {
		t.Errorf("CanonicalURL = %q, want empty", result.CanonicalURL)
	}
}
