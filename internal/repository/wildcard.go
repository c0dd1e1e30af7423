package repository

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/gobwas/glob"
)

// maxClassExpansion bounds how many runes a negated class mixing ranges
// and single characters may expand to
const maxClassExpansion = 1024

// matchNothing is the matcher for patterns containing an empty class
type matchNothing struct{}

func (matchNothing) Match(string) bool { return false }

// compileWildcard compiles a case-sensitive shell wildcard. Only *, ? and
// [...] / [!...] are special. Braces, commas and backslashes match
// themselves, and a [ without a closing ] is a literal character.
func compileWildcard(pattern string) (glob.Glob, error) {
	p := []rune(pattern)
	var b strings.Builder

	for i := 0; i < len(p); {
		c := p[i]
		i++

		switch c {
		case '*', '?':
			b.WriteRune(c)
		case '[':
			j := i
			if j < len(p) && p[j] == '!' {
				j++
			}
			if j < len(p) && p[j] == ']' {
				j++
			}
			for j < len(p) && p[j] != ']' {
				j++
			}
			if j >= len(p) {
				quoteRune(&b, c)
				continue
			}

			class, empty, err := translateClass(p[i:j])
			if err != nil {
				return nil, err
			}
			if empty {
				return matchNothing{}, nil
			}
			b.WriteString(class)
			i = j + 1
		default:
			quoteRune(&b, c)
		}
	}

	return glob.Compile(b.String())
}

// translateClass rewrites the body of a bracket expression into glob syntax.
// A class that can match no character reports empty.
func translateClass(body []rune) (string, bool, error) {
	negate := len(body) > 0 && body[0] == '!'
	if negate {
		body = body[1:]
	}

	var singles []rune
	var ranges [][2]rune
	for k := 0; k < len(body); k++ {
		lo := body[k]
		if k+2 < len(body) && body[k+1] == '-' {
			hi := body[k+2]
			k += 2
			if lo <= hi {
				ranges = append(ranges, [2]rune{lo, hi})
			}
			continue
		}
		singles = append(singles, lo)
	}

	if len(singles) == 0 && len(ranges) == 0 {
		if negate {
			return "?", false, nil
		}
		return "", true, nil
	}

	if negate {
		return negatedClass(singles, ranges)
	}
	return positiveClass(singles, ranges), false, nil
}

// positiveClass builds an alternation of literal runes and ranges
func positiveClass(singles []rune, ranges [][2]rune) string {
	var items []string
	for _, r := range singles {
		items = append(items, quote(r))
	}
	for _, rg := range ranges {
		lo, hi := rg[0], rg[1]
		// A leading ! would negate the glob range
		if lo == '!' {
			items = append(items, quote('!'))
			lo++
			if lo > hi {
				continue
			}
		}
		items = append(items, fmt.Sprintf("[%c-%c]", lo, hi))
	}

	if len(items) == 1 {
		return items[0]
	}
	return "{" + strings.Join(items, ",") + "}"
}

// negatedClass builds a [!...] class. Glob classes hold either one range or
// a list of runes, so mixed classes are expanded into a rune list.
func negatedClass(singles []rune, ranges [][2]rune) (string, bool, error) {
	if len(singles) == 0 && len(ranges) == 1 {
		return fmt.Sprintf("[!%c-%c]", ranges[0][0], ranges[0][1]), false, nil
	}

	set := make(map[rune]bool)
	for _, r := range singles {
		set[r] = true
	}
	for _, rg := range ranges {
		if int(rg[1]-rg[0])+len(set) >= maxClassExpansion {
			return "", false, fmt.Errorf("character class too large: %w", ErrInvalidPattern)
		}
		for r := rg[0]; r <= rg[1]; r++ {
			set[r] = true
		}
	}

	runes := make([]rune, 0, len(set))
	for r := range set {
		runes = append(runes, r)
	}
	// An escaped - in first position would read as a range
	sort.Slice(runes, func(a, b int) bool {
		if runes[a] == '-' || runes[b] == '-' {
			return runes[b] == '-' && runes[a] != '-'
		}
		return runes[a] < runes[b]
	})
	if len(runes) == 1 && runes[0] == '-' {
		return "[!---]", false, nil
	}

	var b strings.Builder
	b.WriteString("[!")
	for _, r := range runes {
		quoteRune(&b, r)
	}
	b.WriteString("]")
	return b.String(), false, nil
}

func quote(r rune) string {
	var b strings.Builder
	quoteRune(&b, r)
	return b.String()
}

// quoteRune writes r so the glob lexer reads it as a literal
func quoteRune(b *strings.Builder, r rune) {
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' {
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}
