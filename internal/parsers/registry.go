package parsers

// Format tags accepted by the registry. The set is closed: an unknown tag
// fails the whole import before any row is processed.
const (
	FormatFixedText   = "fixedtext"
	FormatSpreadsheet = "spreadsheet"
	FormatHTMLTable   = "htmltable"
	FormatAPIFeed     = "apifeed"
)

var registry = map[string]Parser{
	FormatFixedText:   &FixedTextParser{},
	FormatSpreadsheet: &SpreadsheetParser{},
	FormatHTMLTable:   &HTMLTableParser{},
	FormatAPIFeed:     &APIFeedParser{},
}

// Lookup returns the parser registered for a format tag.
func Lookup(tag string) (Parser, bool) {
	p, ok := registry[tag]
	return p, ok
}

// Tags returns the supported format tags.
func Tags() []string {
	out := make([]string, 0, len(registry))
	for tag := range registry {
		out = append(out, tag)
	}
	return out
}
