package provider

// Position is a zero-based line and character offset. Characters count
// Unicode code points.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open span between two positions
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location points into a document
type Location struct {
	Path  string `json:"path"`
	Range Range  `json:"range"`
}

// Hover is the markdown shown for an id under the cursor
type Hover struct {
	Contents string `json:"contents"`
	Range    Range  `json:"range"`
}

// SymbolKind mirrors the editor symbol kinds in use
type SymbolKind string

const SymbolKindClass SymbolKind = "class"

// Symbol is one workspace symbol result
type Symbol struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	ContainerName string     `json:"containerName"`
	Location      Location   `json:"location"`
}

// CompletionItemKind mirrors the editor completion kinds in use
type CompletionItemKind string

const CompletionItemKindValue CompletionItemKind = "value"

// CompletionItem is one suggested id
type CompletionItem struct {
	Label         string             `json:"label"`
	Description   string             `json:"description"`
	Kind          CompletionItemKind `json:"kind"`
	Range         Range              `json:"range"`
	InsertText    string             `json:"insertText"`
	FilterText    string             `json:"filterText"`
	Detail        string             `json:"detail"`
	Documentation string             `json:"documentation,omitempty"`
}

// TriggerCharacters are the characters after which an editor should ask for completions
var TriggerCharacters = []string{"{", "(", "["}
