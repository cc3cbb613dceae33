package bot

// Keyboard is the menu attached to an outgoing message.
type Keyboard int

const (
	// KeyboardNone leaves whatever the client shows untouched.
	KeyboardNone Keyboard = iota
	KeyboardMainMenu
	KeyboardNotesMenu
	// KeyboardBack offers only the way back to the main menu.
	KeyboardBack
	// KeyboardRemove hides any keyboard the client shows.
	KeyboardRemove
)

var (
	mainMenuRows = [][]string{
		{LabelRemind, LabelNotes},
		{LabelWeather, LabelRates},
		{LabelAssistant, LabelEncyclopedia},
		{LabelIdea, LabelHelp},
	}
	notesMenuRows = [][]string{
		{LabelAddNote, LabelListNotes},
		{LabelDeleteNote},
		{LabelBack},
	}
	backRows = [][]string{
		{LabelBack},
	}
)

// Rows returns the button labels of k row by row. None and Remove have no
// buttons.
func (k Keyboard) Rows() [][]string {
	switch k {
	case KeyboardMainMenu:
		return mainMenuRows
	case KeyboardNotesMenu:
		return notesMenuRows
	case KeyboardBack:
		return backRows
	default:
		return nil
	}
}

func (k Keyboard) String() string {
	switch k {
	case KeyboardNone:
		return "none"
	case KeyboardMainMenu:
		return "main"
	case KeyboardNotesMenu:
		return "notes"
	case KeyboardBack:
		return "back"
	case KeyboardRemove:
		return "remove"
	default:
		return "unknown"
	}
}
