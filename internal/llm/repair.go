package llm

import "strings"

// validEscapes are the escape characters the repair pass preserves. JSON
// also allows \b and \f, but in exam content a lone backslash before 'b'
// or 'f' is overwhelmingly LaTeX (\beta, \frac) rather than an intended
// backspace/form-feed, so those are escaped as content instead.
const validEscapes = `"\/nrtu`

// RepairJSON is the one repair pass applied when strict parsing fails. It
// is a pure text transformation over the located JSON candidate and fixes
// the malformations models commonly introduce inside string values:
//
//   - unescaped backslashes (LaTeX markup like \frac, Windows paths)
//   - over-escaped backslash runs (\\\\ where \\ was meant)
//   - literal newline, tab, and carriage-return characters
//
// Text outside string values is left alone; raw newlines between array
// elements are valid JSON whitespace and must survive.
func RepairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inString = false
			b.WriteByte(c)

		case '\\':
			// Measure the whole backslash run before deciding anything.
			j := i
			for j < len(s) && s[j] == '\\' {
				j++
			}
			run := j - i
			var next byte
			if j < len(s) {
				next = s[j]
			}

			if run%2 == 0 {
				// An even run encodes escaped backslashes; collapse
				// over-escaped runs down to a single escaped backslash.
				b.WriteString(`\\`)
				i = j - 1
				break
			}

			// Odd run: one backslash is trying to escape whatever follows.
			if next != 0 && strings.IndexByte(validEscapes, next) >= 0 {
				b.WriteByte('\\')
				b.WriteByte(next)
				i = j // consume the escaped character too
			} else {
				// Stray backslash before a non-escapable character: escape it.
				b.WriteString(`\\`)
				i = j - 1
			}

		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)

		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}
