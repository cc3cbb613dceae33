package bot

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bdobrica/Hisho/internal/hisho/encyclopedia"
	"github.com/bdobrica/Hisho/internal/hisho/rates"
	"github.com/bdobrica/Hisho/internal/hisho/weather"
)

const (
	textGreeting = "Привет! Я Хисё, твой личный секретарь.\nЧем помочь сегодня?"

	textHelp = "Я умею:\n" +
		"• Напоминания: «позвонить маме через 2 часа», «встреча через 1 день 5 часов»\n" +
		"• Заметки: добавить, посмотреть, удалить\n" +
		"• Погода в любом городе\n" +
		"• Курсы валют ЦБ РФ\n" +
		"• ИИ-ассистент: свободный диалог\n" +
		"• Энциклопедия: краткая справка из Википедии\n" +
		"• Случайные идеи"

	textMainMenu = "Главное меню:"
	textFallback = "Не понял команды\nВыбери кнопку из меню"
	textInternal = "Что-то пошло не так. Возвращаю в главное меню."

	textRemindPrompt = "Напиши, что напомнить и через сколько\n\n" +
		"Примеры:\n" +
		"• Позвонить маме через 2 часа\n" +
		"• Сходить в магазин через 3 дня\n" +
		"• Выпить воду через 45 минут\n" +
		"• Встреча через 1 день 5 часов"

	textRemindBadTime  = "Не понял время\nПримеры: через 10 минут / 2 часа / 1 день"
	textRemindTooFar   = "Слишком далеко, максимум 30 дней"
	textRemindFailed   = "Не получилось поставить напоминание, попробуй позже"
	textRemindAccepted = "Хорошо! Напомню через %s"

	textNotesMenu        = "Что сделать с заметками?"
	textNotePrompt       = "Напиши заметку, сохраню навсегда"
	textNoteEmpty        = "Пустую заметку сохранить нельзя"
	textNoteSaved        = "Заметка сохранена!\n\n«%s»"
	textNotesNone        = "У тебя пока нет заметок\nДобавь первую!"
	textNotesHeader      = "Твои заметки:\n\n"
	textNoteDeletePrompt = "Напиши номер заметки, которую удалить"
	textNoteBadIndex     = "Нужен номер заметки, например 2"
	textNoteDeleted      = "Заметка удалена"
	textNotesFailed      = "Не получилось обратиться к заметкам, попробуй позже"

	textCityPrompt         = "Напиши название города"
	textCityNotFound       = "Город не найден\nПопробуй ещё раз"
	textWeatherUnavailable = "Погода сейчас недоступна"

	textRatesUnavailable = "Не смог получить курсы"

	textAssistantWelcome     = "Режим ИИ-ассистента. Пиши что угодно, я отвечу.\nЧтобы выйти, нажми «" + LabelBack + "»."
	textAssistantUnavailable = "ИИ-ассистент сейчас недоступен"
	textAssistantFailed      = "Не получилось получить ответ, попробуй ещё раз"
	textAssistantSlowDown    = "Слишком много сообщений, подожди немного"

	textSearchPrompt      = "Что найти в энциклопедии?"
	textSearchNotFound    = "Ничего не нашёл"
	textSearchUnavailable = "Энциклопедия сейчас недоступна"
	textSearchAmbiguous   = "Уточни запрос. Возможно, ты имел в виду:\n"
)

// TextBusy is sent when a user's backlog is full and a message is dropped.
const TextBusy = "Я ещё разбираю твои прошлые сообщения, подожди немного"

var ideas = []string{
	"Сделай 10 отжиманий",
	"Выпей стакан воды",
	"Позвони другу",
	"Улыбнись в зеркало",
	"Сделай глубокий вдох",
}

func formatNotes(list []string) string {
	var b strings.Builder
	b.WriteString(textNotesHeader)
	for i, n := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, n)
	}
	return b.String()
}

func formatWeather(city string, c weather.Conditions) string {
	if c.City != "" {
		city = c.City
	}
	return fmt.Sprintf("Погода в %s:\n%s, %.0f°C (ощущается как %.0f°C)",
		city, capitalize(c.Description), c.TempC, c.FeelsLikeC)
}

func formatRates(r rates.Rates) string {
	return fmt.Sprintf("Курсы ЦБ РФ на сегодня:\n\nUSD → %.2f ₽\nEUR → %.2f ₽\nCNY → %.2f ₽",
		r.USD, r.EUR, r.CNY)
}

func formatArticle(a encyclopedia.Article) string {
	var b strings.Builder
	if a.Title != "" {
		b.WriteString(a.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(a.Summary)
	if a.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(a.URL)
	}
	return b.String()
}

func formatCandidates(d *encyclopedia.Disambiguation) string {
	var b strings.Builder
	b.WriteString(textSearchAmbiguous)
	for i, c := range d.Candidates {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(c)
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
