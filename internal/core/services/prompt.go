package services

import (
	"fmt"
	"strings"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

const persona = `Ты — "NeoOSI", экспертный AI-ассистент, специализирующийся на вопросах ОСИ и ЖКХ в Казахстане.
Твоя задача — консультировать жильцов и председателей.
Отвечай вежливо, кратко и по делу.`

// markupStripper removes formatting characters the answer must not contain
var markupStripper = strings.NewReplacer("*", "", "#", "", "_", "", "`", "", "~", "")

// StripMarkup removes * # _ ` ~ from generated text
func StripMarkup(text string) string {
	return markupStripper.Replace(text)
}

// GroundedPrompt builds the tier 1 instruction: the answer must come from
// context only and cite the source document.
func GroundedPrompt(question, context string, lang domain.Language) string {
	return fmt.Sprintf(`%s

ИСТОЧНИКИ: ответ должен быть на 100%% основан на КОНТЕКСТЕ ниже. Не добавляй сведений, которых нет в контексте.
Обязательно укажи название документа-источника (строка SOURCE), на который опираешься.
ЯЗЫК: ответ ДОЛЖЕН БЫТЬ СТРОГО на %s языке.
ФОРМАТ: ЗАПРЕЩЕНО использовать Markdown (*, **, #, _, ~, `+"`"+`). Только чистый текст и переносы строк.

КОНТЕКСТ:
%s

Вопрос пользователя: %s`, persona, lang.Name(), context, question)
}

// AdvisoryPrompt builds the tier 2 instruction: no grounding was found, so
// the answer opens with the fixed disclaimer before general guidance.
func AdvisoryPrompt(question string, lang domain.Language) string {
	return fmt.Sprintf(`%s
Ссылайся на законы РК, если знаешь их.

В базе документов не найдено подходящих материалов. Начни ответ ДОСЛОВНО с предложения:
"%s"
Затем дай общую рекомендацию.
ЯЗЫК: ответ ДОЛЖЕН БЫТЬ СТРОГО на %s языке.
ФОРМАТ: ЗАПРЕЩЕНО использовать Markdown (*, **, #, _, ~, `+"`"+`). Только чистый текст и переносы строк.

Вопрос пользователя: %s`, persona, lang.Disclaimer(), lang.Name(), question)
}

// IntentPrompt asks whether the user wants a document created
func IntentPrompt(question string) string {
	return fmt.Sprintf(`Определи, просит ли пользователь СОЗДАТЬ или СОСТАВИТЬ документ (заявление, акт, протокол, жалобу, договор).
Вопросы о содержании документов или законов — это НЕ запрос на создание.
Ответь ровно одним словом: YES или NO.

Сообщение: %s`, question)
}

// LanguagePrompt asks for the language of the question
func LanguagePrompt(question string) string {
	return fmt.Sprintf(`Определи язык сообщения: русский или казахский.
Ответь ровно одним словом: RU или KZ.

Сообщение: %s`, question)
}
