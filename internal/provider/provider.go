package provider

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/forester-mcp/internal/logging"
	"github.com/dshills/forester-mcp/pkg/types"
)

// DefaultSymbolCacheSize bounds the workspace-symbol query cache
const DefaultSymbolCacheSize = 256

// Source yields the current result set for one request
type Source interface {
	GetCurrent(ctx context.Context) (*types.ResultSet, error)
}

// Options configures a Provider
type Options struct {
	ShowIDInCompletion bool
	SymbolCacheSize    int
}

type symbolKey struct {
	fingerprint uint64
	query       string
}

// Provider answers editor queries from the current result set
type Provider struct {
	source  Source
	logger  *slog.Logger
	showID  bool
	symbols *lru.Cache[symbolKey, []Symbol]
}

// New creates a provider over source
func New(source Source, opts Options, logger *slog.Logger) *Provider {
	size := opts.SymbolCacheSize
	if size <= 0 {
		size = DefaultSymbolCacheSize
	}
	symbols, err := lru.New[symbolKey, []Symbol](size)
	if err != nil {
		// Fallback to default size
		symbols, _ = lru.New[symbolKey, []Symbol](DefaultSymbolCacheSize)
	}

	return &Provider{
		source:  source,
		logger:  logging.OrDiscard(logger),
		showID:  opts.ShowIDInCompletion,
		symbols: symbols,
	}
}

// current fetches the result set. A failed rebuild degrades to the empty
// set; a missing workspace root is returned to the caller.
func (p *Provider) current(ctx context.Context) (*types.ResultSet, error) {
	rs, err := p.source.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, types.ErrRebuildFailed) {
			p.logger.Warn("serving empty results after failed rebuild", "error", err)
			return types.EmptyResultSet(), nil
		}
		return nil, err
	}
	return rs, nil
}

// Definition resolves the id under the cursor to the document defining it.
// Returns nil when there is no id under the cursor or it is unknown.
func (p *Provider) Definition(ctx context.Context, text string, pos Position) (*Location, error) {
	word, _, ok := wordAt(text, pos)
	if !ok {
		return nil, nil
	}

	rs, err := p.current(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := rs.Get(word)
	if !ok {
		return nil, nil
	}
	return &Location{Path: entry.SourcePath}, nil
}

// Hover describes the id under the cursor as "_Taxon._ Title".
// Returns nil when there is no id under the cursor or it is unknown.
func (p *Provider) Hover(ctx context.Context, text string, pos Position) (*Hover, error) {
	word, wordRange, ok := wordAt(text, pos)
	if !ok {
		return nil, nil
	}

	rs, err := p.current(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := rs.Get(word)
	if !ok {
		return nil, nil
	}

	var contents []string
	if entry.Taxon != nil {
		contents = append(contents, "_"+*entry.Taxon+"._")
	}
	if entry.Title != nil {
		contents = append(contents, *entry.Title)
	}
	return &Hover{Contents: strings.Join(contents, " "), Range: wordRange}, nil
}

// WorkspaceSymbols returns every entry whose id, title or taxon contains
// query, ignoring case. Results are ordered by id.
func (p *Provider) WorkspaceSymbols(ctx context.Context, query string) ([]Symbol, error) {
	rs, err := p.current(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	key := symbolKey{fingerprint: rs.Fingerprint(), query: needle}
	cacheable := rs.Len() > 0
	if cacheable {
		if cached, ok := p.symbols.Get(key); ok {
			return slices.Clone(cached), nil
		}
	}

	symbols := []Symbol{}
	for id, entry := range rs.All() {
		if !containsFold(id, needle) &&
			!containsFold(entry.TitleOr(""), needle) &&
			!containsFold(entry.TaxonOr(""), needle) {
			continue
		}
		symbols = append(symbols, Symbol{
			Name:          entry.TitleOr(id),
			Kind:          SymbolKindClass,
			ContainerName: id,
			Location:      Location{Path: entry.SourcePath},
		})
	}

	if cacheable {
		p.symbols.Add(key, slices.Clone(symbols))
	}
	return symbols, nil
}

func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}

// completionTrigger matches the text before the cursor when an id is expected.
// Each alternative captures the partial id typed so far.
var completionTrigger = regexp.MustCompile(
	`(?:\\transclude\{|\\import\{|\\export\{|\\ref\{|\\citek\{)([^}]*)$` +
		`|\[[^\[]*\]\(([^)]*)$` +
		`|\[\[([^\]]*)$` +
		`|\\citet\{[^}]*\}\{([^}]*)$`)

// Complete suggests ids when the text before the cursor opens a reference.
// The returned items replace the partial id already typed.
func (p *Provider) Complete(ctx context.Context, text string, pos Position) ([]CompletionItem, error) {
	line, ok := lineAt(text, pos.Line)
	if !ok {
		return []CompletionItem{}, nil
	}
	runes := []rune(line)
	character := pos.Character
	if character < 0 || character > len(runes) {
		return []CompletionItem{}, nil
	}
	prefix := string(runes[:character])

	m := completionTrigger.FindStringSubmatchIndex(prefix)
	if m == nil {
		return []CompletionItem{}, nil
	}
	// Every trigger, \citet included, replaces the partial id typed so far
	start := character
	for group := 1; group <= 4; group++ {
		if m[2*group] >= 0 {
			start = utf8.RuneCountInString(prefix[:m[2*group]])
			break
		}
	}

	rs, err := p.current(ctx)
	if err != nil {
		return nil, err
	}
	replace := Range{
		Start: Position{Line: pos.Line, Character: start},
		End:   Position{Line: pos.Line, Character: character},
	}

	items := make([]CompletionItem, 0, rs.Len())
	for id, entry := range rs.All() {
		items = append(items, p.completionItem(id, entry, replace))
	}
	return items, nil
}

func (p *Provider) completionItem(id string, entry types.Entry, replace Range) CompletionItem {
	var label string
	switch {
	case entry.Title == nil:
		label = "[" + id + "]"
	case p.showID:
		label = "[" + id + "] " + *entry.Title
	default:
		label = *entry.Title
	}

	return CompletionItem{
		Label:         label,
		Description:   entry.TaxonOr(""),
		Kind:          CompletionItemKindValue,
		Range:         replace,
		InsertText:    id,
		FilterText:    id + " " + entry.TitleOr("") + " " + entry.TaxonOr(""),
		Detail:        entry.TaxonOr("Tree") + " [" + id + "]",
		Documentation: entry.TitleOr(""),
	}
}
