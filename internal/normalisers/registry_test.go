package normalisers

import (
	"testing"

	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

type stubNormaliser struct {
	name     string
	types    []string
	priority int
}

func (s *stubNormaliser) Normalise(content string, mimeType string) string {
	return content + "-" + s.name
}

func (s *stubNormaliser) SupportedTypes() []string { return s.types }
func (s *stubNormaliser) Priority() int            { return s.priority }

func TestRegistry_GetByPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "low", types: []string{"text/plain"}, priority: 10})
	r.Register(&stubNormaliser{name: "high", types: []string{"text/plain"}, priority: 90})
	r.Register(&stubNormaliser{name: "html", types: []string{"text/html"}, priority: 50})

	n := r.Get("text/plain")
	if n == nil {
		t.Fatal("expected a normaliser for text/plain")
	}
	if got := n.Normalise("x", "text/plain"); got != "x-high" {
		t.Errorf("expected highest priority normaliser, got %q", got)
	}

	all := r.GetAll("text/plain")
	if len(all) != 2 || all[0].Priority() != 90 || all[1].Priority() != 10 {
		t.Errorf("unexpected GetAll order")
	}

	if r.Get("application/pdf") != nil {
		t.Error("expected nil for unregistered type")
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "a", types: []string{"text/plain", "text/csv"}})
	r.Register(&stubNormaliser{name: "b", types: []string{"text/html", "text/plain"}})

	types := r.List()
	expected := []string{"text/csv", "text/html", "text/plain"}
	if len(types) != len(expected) {
		t.Fatalf("expected %d types, got %v", len(expected), types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("index %d: expected %s, got %s", i, expected[i], types[i])
		}
	}
}

func TestRegistry_Normalise(t *testing.T) {
	r := NewRegistry()
	if got := r.Normalise("raw", "text/plain"); got != "raw" {
		t.Errorf("expected content unchanged without normalisers, got %q", got)
	}

	r.Register(&stubNormaliser{name: "md", types: []string{"text/markdown"}, priority: 50})
	if got := r.Normalise("raw", "text/markdown; charset=utf-8"); got != "raw-md" {
		t.Errorf("expected markdown normaliser, got %q", got)
	}
}

func TestMatchesMIMEType(t *testing.T) {
	tests := []struct {
		name      string
		supported []string
		mimeType  string
		expected  bool
	}{
		{"exact", []string{"text/plain"}, "text/plain", true},
		{"case insensitive", []string{"TEXT/Markdown"}, "text/markdown", true},
		{"charset parameter", []string{"text/html"}, "text/html; charset=windows-1251", true},
		{"subtype wildcard", []string{"text/*"}, "text/markdown", true},
		{"subtype wildcard miss", []string{"text/*"}, "application/json", false},
		{"universal", []string{"*/*"}, "application/octet-stream", true},
		{"miss", []string{"text/plain"}, "text/html", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesMIMEType(tt.supported, tt.mimeType); got != tt.expected {
				t.Errorf("matchesMIMEType(%v, %q) = %v, want %v", tt.supported, tt.mimeType, got, tt.expected)
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		mimeType string
		want     driven.Normaliser
	}{
		{"text/plain", &PlaintextNormaliser{}},
		{"text/markdown", &MarkdownNormaliser{}},
		{"text/html", &HTMLNormaliser{}},
		{"application/octet-stream", &PlaintextNormaliser{}},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			n := r.Get(tt.mimeType)
			if n == nil {
				t.Fatal("expected a normaliser")
			}
			if n.Priority() != tt.want.Priority() {
				t.Errorf("expected priority %d, got %d", tt.want.Priority(), n.Priority())
			}
		})
	}
}

func TestPlaintextNormaliser(t *testing.T) {
	n := &PlaintextNormaliser{}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Вывоз мусора", "Вывоз мусора"},
		{"windows line endings", "Статья 1\r\nТекст", "Статья 1\nТекст"},
		{"old mac line endings", "a\rb", "a\nb"},
		{"byte order mark", "\uFEFFЗакон", "Закон"},
		{"collapse spaces", "общее \t  имущество", "общее имущество"},
		{"non-breaking space", "ст.\u00A05", "ст. 5"},
		{"trailing spaces", "строка   \nследующая", "строка\nследующая"},
		{"blank lines", "абзац\n\n\n\n\nабзац", "абзац\n\nабзац"},
		{"trim", "  \n текст \n ", "текст"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalise(tt.input, "text/plain"); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestMarkdownNormaliser(t *testing.T) {
	n := &MarkdownNormaliser{}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"heading", "# Правила ОСИ\nТекст", "Правила ОСИ\nТекст"},
		{"emphasis", "**Собственник** обязан *платить*", "Собственник обязан платить"},
		{"link", "см. [закон](https://adilet.zan.kz/x)", "см. закон"},
		{"image", "![схема](img.png)Текст", "Текст"},
		{"bullets", "* первое\n+ второе", "- первое\n- второе"},
		{"numbered list kept", "1. Первый пункт\n2. Второй", "1. Первый пункт\n2. Второй"},
		{"blockquote", "> цитата", "цитата"},
		{"rule", "до\n\n---\n\nпосле", "до\n\nпосле"},
		{"fence", "```\nкод\n```", "код"},
		{"table separator", "| a | b |\n|---|---|\n| 1 | 2 |", "| a | b |\n\n| 1 | 2 |"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalise(tt.input, "text/markdown"); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestHTMLNormaliser(t *testing.T) {
	n := &HTMLNormaliser{}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"paragraph", "<p>Привет</p>", "Привет"},
		{"paragraphs split", "<p>Первый</p><p>Второй</p>", "Первый\n\nВторой"},
		{"script", "<script>alert('x')</script>Текст", "Текст"},
		{"style", "<style>.a{}</style>Текст", "Текст"},
		{"head", "<html><head><title>T</title></head><body>Тело</body></html>", "Тело"},
		{"comment", "До<!-- скрыто -->После", "ДоПосле"},
		{"line break", "строка<br/>следующая", "строка\nследующая"},
		{"entities", "&laquo;ОСИ&raquo; &amp; КСК", "«ОСИ» & КСК"},
		{"indentation", "<div>\n    <span>Текст</span>\n</div>", "Текст"},
		{"inline spaces", "<p>Hello     World</p>", "Hello World"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalise(tt.input, "text/html"); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.NormaliserRegistry = (*Registry)(nil)
	var _ driven.Normaliser = (*PlaintextNormaliser)(nil)
	var _ driven.Normaliser = (*MarkdownNormaliser)(nil)
	var _ driven.Normaliser = (*HTMLNormaliser)(nil)
}
