package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

func TestContextAssembler_Empty(t *testing.T) {
	a := NewContextAssembler(100)
	assert.Equal(t, domain.NoRelevantData, a.Build(nil))
	assert.Equal(t, domain.NoRelevantData, a.Build([]*domain.Chunk{}))
}

func TestContextAssembler_Blocks(t *testing.T) {
	a := NewContextAssembler(0)

	one := a.Build([]*domain.Chunk{{DocumentID: "pravila-osi", Content: "Текст"}})
	assert.NotEqual(t, domain.NoRelevantData, one)
	assert.Equal(t, "SOURCE: pravila-osi\nТекст", one)

	two := a.Build([]*domain.Chunk{
		{DocumentID: "a", Content: "первый"},
		{DocumentID: "b", Content: "второй"},
	})
	assert.Equal(t, "SOURCE: a\nпервый"+domain.ContextSeparator+"SOURCE: b\nвторой", two)
}

func TestContextAssembler_Truncation(t *testing.T) {
	a := NewContextAssembler(100)

	out := a.Build([]*domain.Chunk{{DocumentID: "doc", Content: strings.Repeat("ж", 500)}})

	assert.LessOrEqual(t, utf8.RuneCountInString(out), 100+utf8.RuneCountInString(domain.ContextTruncatedMarker))
	assert.True(t, strings.HasSuffix(out, domain.ContextTruncatedMarker))
	assert.True(t, strings.HasPrefix(out, "SOURCE: doc\n"))
}

func TestContextAssembler_ExactBudget(t *testing.T) {
	chunk := &domain.Chunk{DocumentID: "d", Content: "абв"}
	size := utf8.RuneCountInString("SOURCE: d\nабв")

	out := NewContextAssembler(size).Build([]*domain.Chunk{chunk})
	assert.Equal(t, "SOURCE: d\nабв", out)
}
