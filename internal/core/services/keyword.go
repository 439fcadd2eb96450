package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// quotedPhrase matches text inside straight, typographic and guillemet quotes
var quotedPhrase = regexp.MustCompile(`"([^"]+)"|«([^»]+)»|“([^”]+)”|„([^“”]+)[“”]`)

// stopWords are dropped from extracted terms (Russian and Kazakh)
var stopWords = toSet(
	// ru
	"что", "такое", "это", "как", "где", "когда", "кто", "какой", "какая", "какие", "какое",
	"каков", "почему", "зачем", "сколько", "чем", "чего", "кого", "кому", "или", "для",
	"при", "над", "под", "без", "про", "через", "после", "перед", "между", "если", "чтобы",
	"так", "также", "тоже", "уже", "еще", "ещё", "только", "может", "можно", "нужно", "надо",
	"должен", "должна", "должны", "есть", "был", "была", "были", "будет", "быть", "мне",
	"меня", "мой", "моя", "мои", "наш", "наша", "наши", "вас", "вам", "ваш", "ваша", "они",
	"она", "оно", "его", "ему", "её", "нее", "них", "этот", "эта", "эти", "тот", "той",
	"все", "всё", "весь", "вся", "очень", "пожалуйста", "скажите", "подскажите", "расскажите",
	"вопрос", "ли", "не", "ни", "по", "на", "из", "от", "до", "за", "об", "обо",
	// kz
	"және", "мен", "бен", "пен", "немесе", "бұл", "осы", "сол", "ол", "қалай", "қайда",
	"қашан", "кім", "қандай", "неге", "неше", "қанша", "үшін", "туралы", "дейін", "кейін",
	"бар", "жоқ", "керек", "болады", "болып", "деген", "дегеніміз", "ма", "ме", "ба", "бе",
	"па", "пе", "біз", "сіз", "сен", "менің", "сіздің", "біздің", "олар", "айтыңызшы",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// KeywordFilter does exact term matching over chunk text.
type KeywordFilter struct {
	minTermLength int
}

// NewKeywordFilter creates a filter dropping terms shorter than minTermLength runes.
func NewKeywordFilter(minTermLength int) *KeywordFilter {
	if minTermLength <= 0 {
		minTermLength = domain.DefaultRetrievalSettings().MinTermLength
	}
	return &KeywordFilter{minTermLength: minTermLength}
}

// ExtractTerms returns the distinct terms of question in first-seen order.
// Quoted phrases are kept whole; other tokens are lowercased, stripped of
// punctuation and filtered by stop-word list and minimum length.
func (f *KeywordFilter) ExtractTerms(question string) []string {
	var terms []string
	seen := make(map[string]struct{})
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	rest := quotedPhrase.ReplaceAllStringFunc(question, func(match string) string {
		groups := quotedPhrase.FindStringSubmatch(match)
		for _, g := range groups[1:] {
			if phrase := strings.Join(strings.Fields(strings.ToLower(g)), " "); phrase != "" {
				add(phrase)
				break
			}
		}
		return " "
	})

	tokens := strings.FieldsFunc(strings.ToLower(rest), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if len([]rune(tok)) < f.minTermLength {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		add(tok)
	}

	return terms
}

// Classify partitions chunks by term presence. Strong chunks contain every
// term, weak chunks at least one, so every strong chunk is also weak.
// Input order is preserved. No terms means no matches.
func (f *KeywordFilter) Classify(terms []string, chunks []*domain.Chunk) domain.KeywordMatches {
	var matches domain.KeywordMatches
	if len(terms) == 0 {
		return matches
	}

	for _, c := range chunks {
		text := strings.ToLower(c.Content)
		found := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				found++
			}
		}
		if found == 0 {
			continue
		}
		if found == len(terms) {
			matches.Strong = append(matches.Strong, c)
		}
		matches.Weak = append(matches.Weak, c)
	}

	return matches
}
