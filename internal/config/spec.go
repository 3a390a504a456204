package config

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
)

// corpusGrammar is the participle grammar for corpus specs given on the
// command line.
// Examples: "LEONIDE=/data/leonide", "Essays(kolipsi)=essays",
// "Kolipsi_3(kolipsi, L1)=corpora/k3"
//
//nolint:govet // participle grammar tags are not standard struct tags
type corpusGrammar struct {
	Name   string      `@Ident`
	Params *corpusArgs `( "(" @@ ")" )?`
	Path   string      `@Path`
}

//nolint:govet // participle grammar tags are not standard struct tags
type corpusArgs struct {
	Schema   string `@Ident`
	LangProf string `( "," @Ident )?`
}

// corpusLexer defines the lexer for corpus specs. Everything after the
// first "=" is the path, so paths need no quoting.
var corpusLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Path", Pattern: `=.*`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_\-]*`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var corpusParser = participle.MustBuild[corpusGrammar](
	participle.Lexer(corpusLexer),
	participle.Elide("Whitespace"),
)

// ParseCorpus parses a corpus spec of the form NAME[(schema[, lang_prof])]=PATH.
// Without a schema the family is inferred from the name; without a level of
// proficiency L2 is assumed.
func ParseCorpus(s string) (Corpus, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Corpus{}, cerrors.NewValidation("corpus", "empty corpus spec")
	}

	parsed, err := corpusParser.ParseString("", s)
	if err != nil {
		return Corpus{}, &cerrors.ParseError{Format: "corpus spec", Message: "want NAME[(schema[, lang_prof])]=PATH: " + s, Err: err}
	}

	c := Corpus{
		Name:     parsed.Name,
		Path:     strings.TrimSpace(strings.TrimPrefix(parsed.Path, "=")),
		LangProf: "L2",
	}
	if c.Path == "" {
		return Corpus{}, cerrors.NewValidation("corpus", "empty path in "+s)
	}
	if parsed.Params != nil {
		c.Schema = strings.ToLower(parsed.Params.Schema)
		if parsed.Params.LangProf != "" {
			c.LangProf = parsed.Params.LangProf
		}
	}
	if _, err := c.Family(); err != nil {
		return Corpus{}, err
	}
	return c, nil
}

// String renders c as a corpus spec that ParseCorpus accepts.
func (c Corpus) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	if c.Schema != "" || c.LangProf != "" {
		name := c.Schema
		if name == "" {
			f, _ := c.Family()
			name = f.String()
		}
		sb.WriteString("(")
		sb.WriteString(name)
		if c.LangProf != "" {
			sb.WriteString(", ")
			sb.WriteString(c.LangProf)
		}
		sb.WriteString(")")
	}
	sb.WriteString("=")
	sb.WriteString(c.Path)
	return sb.String()
}
