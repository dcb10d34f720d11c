package extract

import (
	"testing"
)

func TestFindPDFLinks_MetaFirst(t *testing.T) {
	page := `
	<html>
	<head>
		<meta name="citation_title" content="Gut microbiota and Parkinson's disease">
		<meta name="citation_pdf_url" content="/content/pnas/116/5/1234.full.pdf">
	</head>
	<body>
		<a href="https://cdn.example.org/files/supplement.pdf">Supplementary data</a>
		<a href="/about">About</a>
	</body>
	</html>
	`

	links, err := FindPDFLinks(page, "https://journal.example.org/article/123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d: %+v", len(links), links)
	}
	if links[0].Kind != LinkKindMeta {
		t.Errorf("Expected meta link first, got %s", links[0].Kind)
	}
	if links[0].URL != "https://journal.example.org/content/pnas/116/5/1234.full.pdf" {
		t.Errorf("Unexpected resolved URL: %s", links[0].URL)
	}
	if links[1].Kind != LinkKindAnchor || links[1].Text != "Supplementary data" {
		t.Errorf("Unexpected anchor link: %+v", links[1])
	}
}

func TestFindPDFLinks_Anchors(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"pdf extension", `<a href="paper.pdf">paper</a>`, 1},
		{"pdf extension with query", `<a href="paper.PDF?download=1">paper</a>`, 1},
		{"pdf path segment", `<a href="/doi/pdf/10.1000/xyz">Read</a>`, 1},
		{"pdf trailing segment", `<a href="/article/42/pdf">Read</a>`, 1},
		{"link text", `<a href="/download?id=42"><span>Download</span> PDF</a>`, 1},
		{"html page", `<a href="/article/42">Full text</a>`, 0},
		{"fragment", `<a href="#pdf.pdf">jump</a>`, 0},
		{"javascript", `<a href="javascript:open('x.pdf')">PDF</a>`, 0},
		{"mailto", `<a href="mailto:editor@example.org?subject=x.pdf">PDF</a>`, 0},
		{"duplicates", `<a href="a.pdf">one</a><a href="a.pdf">two</a>`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := FindPDFLinks("<html><body>"+tt.html+"</body></html>", "https://example.org/articles/")
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(links) != tt.want {
				t.Errorf("Expected %d links, got %d: %+v", tt.want, len(links), links)
			}
		})
	}
}

func TestFindPDFLinks_RelativeResolution(t *testing.T) {
	links, err := FindPDFLinks(`<a href="../files/paper.pdf">PDF</a>`, "https://example.org/articles/42/")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("Expected 1 link, got %d", len(links))
	}
	if links[0].URL != "https://example.org/articles/files/paper.pdf" {
		t.Errorf("Unexpected URL: %s", links[0].URL)
	}
}

func TestFindPDFLinks_InvalidBase(t *testing.T) {
	if _, err := FindPDFLinks("<a href='x.pdf'>x</a>", "://bad"); err == nil {
		t.Error("Expected error for invalid base URL")
	}
}
