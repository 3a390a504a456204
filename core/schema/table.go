package schema

import "strings"

// Action is what the walker does with an element.
type Action uint8

const (
	// ActDefault writes the element's text, walks its children and writes its tail.
	ActDefault Action = iota
	// ActErrorPair writes originalForm to the source and targetForm to the target.
	ActErrorPair
	// ActPalimpsest handles a rewritten passage that may hold errors or strikeovers.
	ActPalimpsest
	// ActInsertion handles a correction made of a deletion and/or an insertion.
	ActInsertion
	// ActUnfold writes the first unfoldedForm of an abbreviation to both sides.
	ActUnfold
	// ActAlternative writes the first alternative reading to both sides.
	ActAlternative
	// ActStrikeover writes the joined expansions, continuing the current word.
	ActStrikeover
	// ActOverwrite writes the over text, continuing the current word.
	ActOverwrite
	// ActForeign marks the element's content as a foreign-word span.
	ActForeign
	// ActIgnore drops the element; only its tail is written.
	ActIgnore
	// ActBreak writes a hard sentence break to both sides.
	ActBreak
	// ActSpace writes a space to both sides.
	ActSpace
	// ActBlock writes text and children like ActDefault.
	ActBlock
	// ActOrthError writes the raw text to the source and an attribute to the target.
	ActOrthError
	// ActRecase writes own text to the source and a recased attribute to the target.
	ActRecase
	// ActDiv writes a space and then the element like ActDefault.
	ActDiv
	// ActSpaced is ActDiv with the ordinary tail.
	ActSpaced
)

// TailPolicy decides how the text following an element is written.
type TailPolicy uint8

const (
	// TailJoin continues the previous token unless the raw tail starts with whitespace.
	TailJoin TailPolicy = iota
	// TailSeparate always writes the tail as a separate token.
	TailSeparate
	// TailSpaced writes a space even when there is no tail.
	TailSpaced
)

// Rule is the semantics of one tag.
type Rule struct {
	Action Action
	Tail   TailPolicy
	// Corrects marks the document unit as corrected when the rule applies.
	Corrects bool
	// KeepTrailingSpace writes a space after the text when the raw text ends in whitespace.
	KeepTrailingSpace bool
}

type pattern struct {
	substr string
	rule   Rule
}

// Table maps tag names to rules. Tables are built once and never modified.
type Table struct {
	Name     string
	exact    map[string]Rule
	contains []pattern
	fallback Rule
}

// Lookup returns the rule for a lower-case tag: an exact match first, then
// the first pattern the tag contains, then the table default.
func (t *Table) Lookup(tag string) Rule {
	if r, ok := t.exact[tag]; ok {
		return r
	}
	for _, p := range t.contains {
		if strings.Contains(tag, p.substr) {
			return p.rule
		}
	}
	return t.fallback
}

var kolipsiTable = &Table{
	Name: "kolipsi",
	exact: map[string]Rule{
		"error":               {Action: ActErrorPair, Corrects: true},
		"over_capitalisation": {Action: ActErrorPair, Corrects: true},
		"e":                   {Action: ActErrorPair, Corrects: true},
		"palimpsest":          {Action: ActPalimpsest},
		"correction":          {Action: ActInsertion, Corrects: true},
		"reduction":           {Action: ActUnfold},
		"ambiguous":           {Action: ActAlternative},
		"strikeover":          {Action: ActStrikeover},
		"overwrite":           {Action: ActOverwrite},
		"foreign_word":        {Action: ActForeign},
		"symbol":              {Action: ActIgnore},
		"emoticon":            {Action: ActIgnore},
		"unreadable":          {Action: ActIgnore},
		"par":                 {Action: ActBreak, Tail: TailSeparate},
		"spacewrapper":        {Action: ActSpace},
		"greeting":            {Action: ActBlock, Tail: TailSpaced},
		"closing":             {Action: ActBlock, Tail: TailSpaced},
		"entity":              {Action: ActBlock, Tail: TailSpaced},
	},
	fallback: Rule{Action: ActDefault, KeepTrailingSpace: true},
}

// Leonide tags carry prefixes and suffixes, so most are matched by substring.
// Order matters: the first contained pattern wins.
var leonideTable = &Table{
	Name: "leonide",
	exact: map[string]Rule{
		"div":          {Action: ActDiv, Tail: TailSpaced},
		"spacewrapper": {Action: ActSpace, Tail: TailSeparate},
	},
	contains: []pattern{
		{"tran_foreign_word", Rule{Action: ActForeign, Tail: TailSeparate}},
		{"tran_symbol", Rule{Action: ActIgnore, Tail: TailSeparate}},
		{"tran_emoticon", Rule{Action: ActIgnore, Tail: TailSeparate}},
		{"tran_word_correction", Rule{Action: ActSpaced, Tail: TailSeparate}},
		{"tran_ambiguous", Rule{Action: ActSpaced, Tail: TailSeparate}},
		{"tran_word_deletion", Rule{Action: ActIgnore, Tail: TailSeparate}},
		{"orth_error", Rule{Action: ActOrthError, Tail: TailSeparate, Corrects: true}},
		{"tran_capitalisation", Rule{Action: ActRecase, Tail: TailSeparate}},
	},
	fallback: Rule{Action: ActDefault, Tail: TailSeparate},
}

// Attribute names read by Leonide rules.
const (
	orthTargetAttr   = "orth_error_target"
	recaseTargetAttr = "tran_capitalisation_target"
)
