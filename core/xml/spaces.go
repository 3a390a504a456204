package xml

import "regexp"

// SpaceTag is the element InjectSpaces uses to make a space explicit.
const SpaceTag = "spacewrapper"

const spaceElement = "<" + SpaceTag + "> </" + SpaceTag + ">"

var (
	// ">   <" with only horizontal whitespace between two tags.
	spaceBetweenTags = regexp.MustCompile(`(>)([ \t]+)(<)`)
	// ">text   <" where text has content and ends in horizontal whitespace.
	// Tag delimiters never count as content.
	spaceAfterText = regexp.MustCompile(`(>)([^<>\n]*?[^\s<>][^<>\n]*?)([ \t]+)(<)`)
)

// InjectSpaces rewrites markup so horizontal whitespace that separates
// content from a following tag becomes an explicit spacewrapper element.
// Whitespace containing a newline is layout, not content, and is left alone.
//
// Tag-only gaps are rewritten first so injected elements are never nested.
func InjectSpaces(markup []byte) []byte {
	out := spaceBetweenTags.ReplaceAll(markup, []byte("${1}"+spaceElement+"${3}"))
	return spaceAfterText.ReplaceAll(out, []byte("${1}${2}"+spaceElement+"${4}"))
}
