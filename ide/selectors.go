package ide

// Selectors locate workbench parts in the IDE's DOM. Every field is a CSS
// selector.
//
// Elements that represent named things (tabs, explorer items, process
// tabs) carry their name in a data-name attribute, or data-path for
// explorer items. Markers carry data-line, data-column, data-kind
// ("error" or "warning") and data-code; the cursor element carries
// data-line and data-column.
type Selectors struct {
	Workbench string `yaml:"workbench"`

	EditorText     string `yaml:"editor_text"`
	EditorTab      string `yaml:"editor_tab"`
	EditorTabClose string `yaml:"editor_tab_close"`
	Marker         string `yaml:"marker"`
	Cursor         string `yaml:"cursor"`
	GoToInput      string `yaml:"goto_input"`
	ExplorerItem   string `yaml:"explorer_item"`

	Autocomplete     string `yaml:"autocomplete"`
	AutocompleteItem string `yaml:"autocomplete_item"`

	ConsoleOutput string `yaml:"console_output"`
	ConsoleTab    string `yaml:"console_tab"`

	MenuItem string `yaml:"menu_item"`

	Dialog       string `yaml:"dialog"`
	DialogTitle  string `yaml:"dialog_title"`
	DialogInput  string `yaml:"dialog_input"`
	DialogButton string `yaml:"dialog_button"`

	PaletteToggle string `yaml:"palette_toggle"`
	PaletteItem   string `yaml:"palette_item"`
}

// DefaultSelectors returns selectors for an IDE build that tags its
// workbench with data-testid attributes.
func DefaultSelectors() Selectors {
	return Selectors{
		Workbench: `[data-testid="workbench"]`,

		EditorText:     `[data-testid="editor"] [data-testid="editor-text"]`,
		EditorTab:      `[data-testid="editor-tab"]`,
		EditorTabClose: `[data-testid="editor-tab-close"]`,
		Marker:         `[data-testid="editor"] [data-testid="marker"]`,
		Cursor:         `[data-testid="editor"] [data-testid="cursor"]`,
		GoToInput:      `[data-testid="goto-line"] input`,
		ExplorerItem:   `[data-testid="explorer-item"]`,

		Autocomplete:     `[data-testid="autocomplete"]`,
		AutocompleteItem: `[data-testid="autocomplete"] [data-testid="proposal"]`,

		ConsoleOutput: `[data-testid="console-output"]`,
		ConsoleTab:    `[data-testid="console-tab"]`,

		MenuItem: `[data-testid="menu-item"]`,

		Dialog:       `[data-testid="dialog"]`,
		DialogTitle:  `[data-testid="dialog-title"]`,
		DialogInput:  `[data-testid="dialog"] input`,
		DialogButton: `[data-testid="dialog"] button`,

		PaletteToggle: `[data-testid="palette-toggle"]`,
		PaletteItem:   `[data-testid="palette-item"]`,
	}
}

// merge fills empty fields of s from d.
func (s Selectors) merge(d Selectors) Selectors {
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&s.Workbench, d.Workbench)
	fill(&s.EditorText, d.EditorText)
	fill(&s.EditorTab, d.EditorTab)
	fill(&s.EditorTabClose, d.EditorTabClose)
	fill(&s.Marker, d.Marker)
	fill(&s.Cursor, d.Cursor)
	fill(&s.GoToInput, d.GoToInput)
	fill(&s.ExplorerItem, d.ExplorerItem)
	fill(&s.Autocomplete, d.Autocomplete)
	fill(&s.AutocompleteItem, d.AutocompleteItem)
	fill(&s.ConsoleOutput, d.ConsoleOutput)
	fill(&s.ConsoleTab, d.ConsoleTab)
	fill(&s.MenuItem, d.MenuItem)
	fill(&s.Dialog, d.Dialog)
	fill(&s.DialogTitle, d.DialogTitle)
	fill(&s.DialogInput, d.DialogInput)
	fill(&s.DialogButton, d.DialogButton)
	fill(&s.PaletteToggle, d.PaletteToggle)
	fill(&s.PaletteItem, d.PaletteItem)
	return s
}
