package bot

import "strings"

// Command is a menu action a user can pick. The set is closed: every value is
// handled by Router.runCommand.
type Command int

const (
	CmdNone Command = iota
	CmdStart
	CmdHelp
	CmdRemind
	CmdNotes
	CmdAddNote
	CmdListNotes
	CmdDeleteNote
	CmdWeather
	CmdRates
	CmdAssistant
	CmdEncyclopedia
	CmdIdea
	CmdBack
)

// Menu labels shown on the keyboards. Matching is exact after trimming and
// case folding.
const (
	LabelRemind       = "Напомни позже"
	LabelNotes        = "Заметки"
	LabelAddNote      = "Добавить заметку"
	LabelListNotes    = "Мои заметки"
	LabelDeleteNote   = "Удалить заметку"
	LabelWeather      = "Погода"
	LabelRates        = "Курсы валют"
	LabelAssistant    = "ИИ-ассистент"
	LabelEncyclopedia = "Энциклопедия"
	LabelIdea         = "Случайная идея"
	LabelHelp         = "Помощь"
	LabelBack         = "Назад в меню"
)

var commandByText = map[string]Command{
	"/start":                           CmdStart,
	"/help":                            CmdHelp,
	strings.ToLower(LabelHelp):         CmdHelp,
	strings.ToLower(LabelRemind):       CmdRemind,
	strings.ToLower(LabelNotes):        CmdNotes,
	strings.ToLower(LabelAddNote):      CmdAddNote,
	strings.ToLower(LabelListNotes):    CmdListNotes,
	strings.ToLower(LabelDeleteNote):   CmdDeleteNote,
	strings.ToLower(LabelWeather):      CmdWeather,
	strings.ToLower(LabelRates):        CmdRates,
	strings.ToLower(LabelAssistant):    CmdAssistant,
	strings.ToLower(LabelEncyclopedia): CmdEncyclopedia,
	strings.ToLower(LabelIdea):         CmdIdea,
	strings.ToLower(LabelBack):         CmdBack,
}

// ParseCommand maps a message to the menu command it names. A label copied
// from a rendered keyboard keeps its brackets, so one surrounding [...] pair
// is stripped. Anything else is CmdNone.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	if inner, ok := strings.CutPrefix(text, "["); ok {
		if inner, ok = strings.CutSuffix(inner, "]"); ok {
			text = strings.TrimSpace(inner)
		}
	}
	return commandByText[strings.ToLower(text)]
}

func (c Command) String() string {
	switch c {
	case CmdNone:
		return "none"
	case CmdStart:
		return "start"
	case CmdHelp:
		return "help"
	case CmdRemind:
		return "remind"
	case CmdNotes:
		return "notes"
	case CmdAddNote:
		return "notes.add"
	case CmdListNotes:
		return "notes.list"
	case CmdDeleteNote:
		return "notes.delete"
	case CmdWeather:
		return "weather"
	case CmdRates:
		return "rates"
	case CmdAssistant:
		return "assistant"
	case CmdEncyclopedia:
		return "encyclopedia"
	case CmdIdea:
		return "idea"
	case CmdBack:
		return "back"
	default:
		return "unknown"
	}
}
