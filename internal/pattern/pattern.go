// Package pattern provides string substitution based on fields enclosed
// in square brackets, such as "image_[date, %Y-%m-%d]".
//
// Field arguments are separated by commas. To insert literal commas in
// arguments, enclose the arguments in square brackets. To insert square
// brackets in arguments, enclose the arguments in square brackets and
// double the inner brackets. If the last argument is enclosed in square
// brackets, insert a comma after it. Literal square brackets outside
// fields are inserted by doubling them.
package pattern

import (
	"regexp"
	"strings"
)

// FieldFunc substitutes one field occurrence. name is the parsed field
// name and args are the parsed field arguments. Returning an error
// leaves the original field text in place.
type FieldFunc func(name string, args []string) (string, error)

// Field pairs a regular expression matching field names with the
// function substituting matched fields.
type Field struct {
	Regex *regexp.Regexp
	Func  FieldFunc
}

type parsedField struct {
	name string
	args []string
	raw  string
}

type patternPart struct {
	text  string
	field *parsedField
	fn    FieldFunc
}

// Pattern is a parsed string pattern. Fields not matching any entry in
// the field table are left in place as literal text.
type Pattern struct {
	text  string
	parts []patternPart
}

// New parses text against the given field table. The first field whose
// regular expression matches a parsed field name substitutes it.
func New(text string, fields []Field) *Pattern {
	return &Pattern{text: text, parts: parsePattern(text, fields)}
}

// String returns the original pattern text.
func (p *Pattern) String() string {
	return p.text
}

// Substitute substitutes all fields in the pattern and returns the
// result. Fields whose substitution function fails are kept as their
// original text.
func (p *Pattern) Substitute() string {
	var builder strings.Builder
	for _, part := range p.parts {
		if part.fn == nil {
			builder.WriteString(part.text)
			continue
		}

		value, err := part.fn(part.field.name, part.field.args)
		if err != nil {
			builder.WriteString("[" + part.field.raw + "]")
			continue
		}
		builder.WriteString(value)
	}
	return builder.String()
}

func parsePattern(text string, fields []Field) []patternPart {
	var parts []patternPart

	index := 0
	startOfField := 0
	lastConstant := 0
	depth := 0

	addLiteral := func(end int) {
		start := max(lastConstant, startOfField)
		if start < end {
			parts = append(parts, patternPart{text: text[start:end]})
		}
	}

	for index < len(text) {
		switch text[index] {
		case '[':
			escaped := isEscaped(text, index, '[')
			switch {
			case depth == 0 && escaped:
				addLiteral(index)
				parts = append(parts, patternPart{text: "["})
				lastConstant = index + 2
				index += 2
				continue
			case depth == 0:
				addLiteral(index)
				startOfField = index
				depth++
			case depth == 1:
				depth++
			case escaped:
				index += 2
				continue
			default:
				depth++
			}
		case ']':
			escaped := isEscaped(text, index, ']')
			switch {
			case depth == 0 && escaped:
				addLiteral(index)
				parts = append(parts, patternPart{text: "]"})
				lastConstant = index + 2
				index += 2
				continue
			case depth == 0:
				index++
				continue
			case depth == 1:
				depth--
			case escaped:
				index += 2
				continue
			default:
				depth--
				index++
				continue
			}

			raw := text[startOfField+1 : index]
			name, args := ParseField(raw)
			if fn := matchField(name, fields); fn != nil {
				parts = append(parts, patternPart{
					field: &parsedField{name: name, args: args, raw: raw},
					fn:    fn,
				})
			} else {
				addLiteral(index + 1)
			}
			lastConstant = index + 1
		}
		index++
	}

	addLiteral(len(text))
	return parts
}

// ParseField parses a field given as a string without the enclosing
// brackets and returns the field name and arguments.
func ParseField(raw string) (string, []string) {
	nameEnd := strings.Index(raw, ",")
	if nameEnd == -1 {
		return strings.TrimSpace(raw), nil
	}

	name := strings.TrimSpace(raw[:nameEnd])
	// The trailing comma terminates the last argument within the loop.
	argsText := raw[nameEnd+1:] + ","

	var args []string
	inBracketArg := false
	lastArgEnd := 0
	index := 0

	for index < len(argsText) {
		switch argsText[index] {
		case ',':
			if inBracketArg {
				index++
				continue
			}
			args = append(args, argsText[lastArgEnd:index])
			lastArgEnd = index + 1
		case '[':
			if isEscaped(argsText, index, '[') {
				index += 2
				continue
			}
			inBracketArg = true
		case ']':
			if isEscaped(argsText, index, ']') {
				index += 2
				continue
			}
			inBracketArg = false
		}
		index++
	}

	return name, processArgs(args)
}

func processArgs(args []string) []string {
	var processed []string
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}

		if arg[0] == '[' && arg[len(arg)-1] == ']' {
			arg = arg[1 : len(arg)-1]
		}
		arg = strings.ReplaceAll(arg, "[[", "[")
		arg = strings.ReplaceAll(arg, "]]", "]")

		processed = append(processed, arg)
	}
	return processed
}

func matchField(name string, fields []Field) FieldFunc {
	for _, field := range fields {
		if field.Regex.MatchString(name) {
			return field.Func
		}
	}
	return nil
}

func isEscaped(text string, index int, symbol byte) bool {
	return index+1 < len(text) && text[index+1] == symbol
}
