package domain

import "strings"

// Language is a supported question language
type Language string

const (
	LanguageRussian Language = "ru"
	LanguageKazakh  Language = "kz"
)

// DefaultLanguage is used whenever detection is inconclusive
const DefaultLanguage = LanguageRussian

// EmptyQuestionMessage is returned for a blank question without running the pipeline
const EmptyQuestionMessage = "Пожалуйста, введите ваш вопрос."

// DocumentRedirectMessage answers questions that ask to create a document.
// It is sent before language detection, so it carries both languages.
const DocumentRedirectMessage = "Чтобы создать документ, перейдите в раздел «Документы»: там NeoOSI подготовит его по шаблону.\n\n" +
	"Құжат жасау үшін «Құжаттар» бөліміне өтіңіз: NeoOSI оны үлгі бойынша дайындайды."

// ParseLanguage maps a classifier token to a Language.
// Returns false when the token is not one of the supported codes.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ru", "rus", "russian":
		return LanguageRussian, true
	case "kz", "kk", "kaz", "kazakh":
		return LanguageKazakh, true
	default:
		return "", false
	}
}

// Name returns the language name as used in generation instructions
func (l Language) Name() string {
	if l == LanguageKazakh {
		return "казахском"
	}
	return "русском"
}

// Disclaimer is the mandatory first sentence of an advisory (ungrounded) answer
func (l Language) Disclaimer() string {
	if l == LanguageKazakh {
		return "Нормативтік құжаттар базасында сұрағыңызға нақты жауап табылмады, сондықтан төменде жалпы ұсыныс берілген."
	}
	return "В базе нормативных документов не найдено точного ответа на ваш вопрос, поэтому ниже приведена общая рекомендация."
}

// Apology is shown when the pipeline fails
func (l Language) Apology() string {
	if l == LanguageKazakh {
		return "Кешіріңіз, қазір жауап бере алмаймын. Кейінірек қайталап көріңіз."
	}
	return "Извините, сейчас я не могу ответить. Попробуйте позже."
}

// Welcome greets a user opening a fresh conversation
func (l Language) Welcome() string {
	if l == LanguageKazakh {
		return "Сәлеметсіз бе! Мен NeoOSI, Қазақстандағы ПИБ және ТКШ мәселелері бойынша көмекшімін. Сұрағыңызды қойыңыз."
	}
	return "Здравствуйте! Я NeoOSI, помощник по вопросам ОСИ и ЖКХ в Казахстане. Задайте ваш вопрос."
}
