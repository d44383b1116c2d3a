// Package richtext normalizes the HTML fragments the backend stores in text fields.
package richtext

import "regexp"

var REHTMLTag = regexp.MustCompile(`<\/?[^>]+(>|$)`)

// StripTags removes every HTML tag from s, including an unterminated tag at the
// end of the input. It does not validate or unescape anything.
func StripTags(s string) string {
	return REHTMLTag.ReplaceAllString(s, "")
}
