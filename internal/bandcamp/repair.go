package bandcamp

import "regexp"

var (
	commentLineRe = regexp.MustCompile(`(?m)^\s*//.*$`)

	// A trailing comment needs whitespace before the slashes and no quote
	// after them, so "http://" inside string values is left alone.
	tailCommentRe = regexp.MustCompile(`(?m)\s+//[^"\n]*$`)

	bareKeyRe = regexp.MustCompile(`(?m)^(\s*)([A-Za-z_$][\w$]*)\s*:`)

	// "a" + "b" becomes "ab". The leading character must not be a
	// backslash so escaped quotes inside strings are not touched.
	concatRe = regexp.MustCompile(`([^\\])"\s*\+\s*"`)
)

// repairJSON turns a JavaScript object literal into JSON: comment lines and
// trailing comments are removed, bare keys at the start of a line are quoted
// and concatenated string literals are joined.
func repairJSON(blob string) string {
	blob = commentLineRe.ReplaceAllString(blob, "")
	blob = tailCommentRe.ReplaceAllString(blob, "")
	blob = bareKeyRe.ReplaceAllString(blob, `${1}"${2}":`)

	return concatRe.ReplaceAllString(blob, "${1}")
}
