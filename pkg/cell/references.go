package cell

import (
	"sort"
	"strings"
	"unicode"
)

// References is a set of normalised cell identifiers.
type References map[string]struct{}

// NormalizeID returns the canonical form of a cell identifier.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Has reports whether the set contains id.
func (r References) Has(id string) bool {
	_, ok := r[NormalizeID(id)]

	return ok
}

func (r References) Len() int {
	return len(r)
}

// Sorted returns the identifiers in lexical order.
func (r References) Sorted() []string {
	res := make([]string, 0, len(r))
	for id := range r {
		res = append(res, id)
	}

	sort.Strings(res)

	return res
}

func (r References) Equal(other References) bool {
	if len(r) != len(other) {
		return false
	}

	for id := range r {
		if _, ok := other[id]; !ok {
			return false
		}
	}

	return true
}

// ExtractReferences returns the cells referenced by a formula.
//
// The text is split into words made of letters, digits, underscores and dollar signs. A word
// is a reference when it is made of ASCII letters followed by ASCII digits, each part
// optionally prefixed by a dollar sign ($A$1 is A1). Only whole words match: AB12C and A1_B
// reference nothing. The grammar of the formula is ignored, so a reference written inside a
// string literal is still reported, and a range A1:B3 only reports A1 and B3.
func ExtractReferences(text string) References {
	refs := References{}
	start := -1

	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}

			continue
		}

		if start >= 0 {
			addReference(refs, text[start:i])

			start = -1
		}
	}

	if start >= 0 {
		addReference(refs, text[start:])
	}

	return refs
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func addReference(refs References, word string) {
	id, ok := cellID(word)
	if ok {
		refs[id] = struct{}{}
	}
}

// cellID returns the normalised identifier of word if it is shaped like a cell reference.
func cellID(word string) (string, bool) {
	i := 0
	if i < len(word) && word[i] == '$' {
		i++
	}

	lettersStart := i
	for i < len(word) && isASCIILetter(word[i]) {
		i++
	}

	letters := word[lettersStart:i]
	if letters == "" {
		return "", false
	}

	if i < len(word) && word[i] == '$' {
		i++
	}

	digits := word[i:]
	if digits == "" {
		return "", false
	}

	for j := range len(digits) {
		if digits[j] < '0' || digits[j] > '9' {
			return "", false
		}
	}

	return strings.ToUpper(letters) + digits, true
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
