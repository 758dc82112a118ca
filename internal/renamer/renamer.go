// Package renamer renames item names according to a string pattern
// with substitution fields, such as "image[001]" or
// "[path]_[date, %Y]".
package renamer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/jo-hoe/layerbatch/internal/itemtree"
	"github.com/jo-hoe/layerbatch/internal/pathutil"
	"github.com/jo-hoe/layerbatch/internal/pattern"
)

// Env provides fields with the state of the current batch run.
type Env interface {
	// CurrentItem returns the item currently being processed.
	CurrentItem() *itemtree.Item
	// MatchingItems returns all items matching the active constraints.
	MatchingItems() []*itemtree.Item
	// CanvasName returns the name of the source canvas or file.
	CanvasName() string
	CanvasWidth() int
	CanvasHeight() int
	// FileExtension returns the configured output file extension.
	FileExtension() string
}

// Dimensioner reports pixel dimensions and offsets of a node. Nodes
// implementing it enable the item tokens of the [attributes] field.
type Dimensioner interface {
	Width() int
	Height() int
	OffsetX() int
	OffsetY() int
}

var (
	numberFieldRegex     = regexp.MustCompile(`^[0-9]+$`)
	nameFieldRegex       = regexp.MustCompile(`^name$`)
	imageNameFieldRegex  = regexp.MustCompile(`^image name$`)
	pathFieldRegex       = regexp.MustCompile(`^path$`)
	dateFieldRegex       = regexp.MustCompile(`^date$`)
	attributesFieldRegex = regexp.MustCompile(`^attributes$`)
	replaceFieldRegex    = regexp.MustCompile(`^replace$`)

	percentMeasureRegex = regexp.MustCompile(`^%pc([0-9]*)$`)
	templateTokenRegex  = regexp.MustCompile(`%(%|[a-zA-Z_][a-zA-Z0-9_]*)`)
)

// ItemRenamer substitutes a filename pattern for items in a batch run.
// Number fields keep their counters across calls, so a single renamer
// must be used for the whole run and not shared between runs.
type ItemRenamer struct {
	env        Env
	pattern    *pattern.Pattern
	fieldTable []pattern.Field

	// item is bound for the duration of a single Rename call.
	item *itemtree.Item

	// counters is keyed by number field text, then by parent item key.
	counters map[string]map[itemtree.Key]*numberCounter
}

// New parses patternText and returns a renamer bound to env.
func New(env Env, patternText string) *ItemRenamer {
	r := &ItemRenamer{
		env:      env,
		counters: map[string]map[itemtree.Key]*numberCounter{},
	}
	r.fieldTable = []pattern.Field{
		{Regex: numberFieldRegex, Func: r.numberField},
		{Regex: nameFieldRegex, Func: r.nameField},
		{Regex: imageNameFieldRegex, Func: r.imageNameField},
		{Regex: pathFieldRegex, Func: r.pathField},
		{Regex: dateFieldRegex, Func: r.dateField},
		{Regex: attributesFieldRegex, Func: r.attributesField},
		{Regex: replaceFieldRegex, Func: r.replaceField},
	}
	r.pattern = pattern.New(patternText, r.fieldTable)
	return r
}

// Rename returns the pattern substituted for the given item. A nil item
// renames the environment's current item.
func (r *ItemRenamer) Rename(item *itemtree.Item) string {
	if item == nil {
		item = r.env.CurrentItem()
	}
	r.item = item
	return r.pattern.Substitute()
}

// numberCounter yields consecutive numbers padded with zeros.
type numberCounter struct {
	value     int
	increment int
	padding   int
}

func (c *numberCounter) next() string {
	formatted := strconv.Itoa(c.value)
	if len(formatted) < c.padding {
		formatted = strings.Repeat("0", c.padding-len(formatted)) + formatted
	}
	c.value += c.increment
	return formatted
}

// numberField implements fields such as [001]. Counters reset per
// parent unless %n is given. %d or %d<padding> makes numbering
// descending, starting from the item count when the field text is 0.
func (r *ItemRenamer) numberField(fieldValue string, args []string) (string, error) {
	resetOnParent := true
	ascending := true
	padding := -1

	for _, arg := range args {
		if arg == "%n" {
			resetOnParent = false
		} else if strings.HasPrefix(arg, "%d") {
			ascending = false
			if parsed, err := strconv.Atoi(arg[len("%d"):]); err == nil {
				padding = parsed
			}
		}
	}

	var parentItem *itemtree.Item
	var parentKey itemtree.Key
	if resetOnParent {
		parentItem = r.item.Parent()
		if parentItem != nil {
			parentKey = parentItem.Key()
		}
	}

	counters := r.counters[fieldValue]
	if counters == nil {
		counters = map[itemtree.Key]*numberCounter{}
		r.counters[fieldValue] = counters
	}

	counter := counters[parentKey]
	if counter == nil {
		initial, err := strconv.Atoi(fieldValue)
		if err != nil {
			return "", fmt.Errorf("invalid number field %q: %w", fieldValue, err)
		}
		if padding < 0 {
			padding = len(fieldValue)
		}
		increment := 1
		if !ascending {
			increment = -1
			if initial == 0 {
				initial = r.initialDescendingNumber(parentItem, resetOnParent)
			}
		}
		counter = &numberCounter{value: initial, increment: increment, padding: padding}
		counters[parentKey] = counter
	}

	return counter.next(), nil
}

func (r *ItemRenamer) initialDescendingNumber(parentItem *itemtree.Item, resetOnParent bool) int {
	items := r.env.MatchingItems()
	if !resetOnParent {
		return len(items)
	}

	count := 0
	for _, item := range items {
		if parentItem != nil {
			if item.Depth() == parentItem.Depth()+1 && item.Parent() == parentItem {
				count++
			}
		} else if item.Depth() == 0 {
			count++
		}
	}
	return count
}

// nameField implements [name]. Without arguments the file extension is
// stripped; %e keeps it and %i keeps it only when it matches the
// configured output extension.
func (r *ItemRenamer) nameField(name string, args []string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most 1 argument, got %d", len(args))
	}
	stripMode := ""
	if len(args) > 0 {
		stripMode = args[0]
	}
	return r.itemName(r.item, stripMode), nil
}

func (r *ItemRenamer) itemName(item *itemtree.Item, stripMode string) string {
	if stripMode == "%e" || stripMode == "%i" {
		extension := pathutil.FileExtension(item.OrigName())
		if extension != "" {
			if stripMode == "%e" || extension == r.env.FileExtension() {
				return item.Name
			}
		}
	}
	return pathutil.StripExtension(item.Name)
}

// imageNameField implements [image name]. %e keeps the extension of
// the source canvas name.
func (r *ItemRenamer) imageNameField(name string, args []string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most 1 argument, got %d", len(args))
	}
	keepExtension := ""
	if len(args) > 0 {
		keepExtension = args[0]
	}

	imageName := r.env.CanvasName()
	if imageName == "" {
		imageName = "Untitled"
	}
	if keepExtension == "%e" {
		return imageName, nil
	}
	return pathutil.ReplaceExtension(imageName, "", false), nil
}

// pathField implements [path]: parent names followed by the item name,
// joined with a separator. An optional wrapper argument wraps each
// component at the %c token.
func (r *ItemRenamer) pathField(name string, args []string) (string, error) {
	if len(args) > 3 {
		return "", fmt.Errorf("expected at most 3 arguments, got %d", len(args))
	}
	separator := "-"
	wrapper := "%c"
	stripMode := ""
	if len(args) > 0 {
		separator = args[0]
	}
	if len(args) > 1 && strings.Contains(args[1], "%c") {
		wrapper = args[1]
	}
	if len(args) > 2 {
		stripMode = args[2]
	}

	var components []string
	for _, parent := range r.item.Parents() {
		components = append(components, parent.Name)
	}
	components = append(components, r.itemName(r.item, stripMode))

	for i, component := range components {
		components[i] = strings.ReplaceAll(wrapper, "%c", component)
	}
	return strings.Join(components, separator), nil
}

// dateField implements [date] with an strftime format argument.
func (r *ItemRenamer) dateField(name string, args []string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most 1 argument, got %d", len(args))
	}
	format := "%Y-%m-%d"
	if len(args) > 0 {
		format = args[0]
	}
	return strftime.Format(format, time.Now()), nil
}

// attributesField implements [attributes]. The first argument is a
// template with %w, %h, %x, %y (item) and %iw, %ih (canvas) tokens. The
// optional measure argument %pc<digits> turns item tokens into ratios
// of the canvas size.
func (r *ItemRenamer) attributesField(name string, args []string) (string, error) {
	if len(args) == 0 || len(args) > 2 {
		return "", fmt.Errorf("expected 1 or 2 arguments, got %d", len(args))
	}
	template := args[0]
	measure := "%px"
	if len(args) > 1 {
		measure = args[1]
	}

	values := map[string]string{
		"iw": strconv.Itoa(r.env.CanvasWidth()),
		"ih": strconv.Itoa(r.env.CanvasHeight()),
	}

	if node, ok := r.item.Node().(Dimensioner); ok {
		switch {
		case measure == "%px":
			values["w"] = strconv.Itoa(node.Width())
			values["h"] = strconv.Itoa(node.Height())
			values["x"] = strconv.Itoa(node.OffsetX())
			values["y"] = strconv.Itoa(node.OffsetY())
		case strings.HasPrefix(measure, "%pc"):
			match := percentMeasureRegex.FindStringSubmatch(measure)
			if match != nil {
				digits := 2
				if match[1] != "" {
					digits, _ = strconv.Atoi(match[1])
				}
				values["w"] = roundedRatio(node.Width(), r.env.CanvasWidth(), digits)
				values["h"] = roundedRatio(node.Height(), r.env.CanvasHeight(), digits)
				values["x"] = roundedRatio(node.OffsetX(), r.env.CanvasWidth(), digits)
				values["y"] = roundedRatio(node.OffsetY(), r.env.CanvasHeight(), digits)
			}
		}
	}

	return substituteTokens(template, values), nil
}

// replaceField implements [replace]: the first argument names another
// field, the second and third are a regular expression and its
// replacement. Optional arguments limit the replacement count and add
// regexp flags (ignorecase, multiline, dotall).
func (r *ItemRenamer) replaceField(name string, args []string) (string, error) {
	if len(args) < 3 {
		return "", fmt.Errorf("expected at least 3 arguments, got %d", len(args))
	}

	fieldName, fieldArgs := pattern.ParseField(args[0])
	fn := r.lookupField(fieldName)
	if fn == nil {
		return "", nil
	}
	value, err := fn(fieldName, fieldArgs)
	if err != nil {
		return "", err
	}

	count := 0
	if len(args) > 3 {
		if parsed, err := strconv.Atoi(args[3]); err == nil {
			count = parsed
		}
	}

	patternText := args[1]
	for _, flagName := range args[4:] {
		prefix, ok := replaceFlags[strings.ToLower(flagName)]
		if !ok {
			return "", fmt.Errorf("unknown regular expression flag %q", flagName)
		}
		patternText = "(?" + prefix + ")" + patternText
	}

	re, err := regexp.Compile(patternText)
	if err != nil {
		return "", err
	}
	return replaceCount(re, value, args[2], count), nil
}

var replaceFlags = map[string]string{
	"ignorecase": "i",
	"multiline":  "m",
	"dotall":     "s",
}

func (r *ItemRenamer) lookupField(name string) pattern.FieldFunc {
	for _, field := range r.fieldTable {
		if field.Regex.MatchString(name) {
			return field.Func
		}
	}
	return nil
}

// replaceCount applies no more than count replacements; a count of zero
// or less replaces all occurrences.
func replaceCount(re *regexp.Regexp, src, replacement string, count int) string {
	if count <= 0 {
		return re.ReplaceAllString(src, replacement)
	}

	var builder strings.Builder
	remaining := src
	for i := 0; i < count; i++ {
		match := re.FindStringSubmatchIndex(remaining)
		if match == nil {
			break
		}
		builder.WriteString(remaining[:match[0]])
		builder.Write(re.ExpandString(nil, replacement, remaining, match))

		if match[1] == match[0] {
			if match[0] >= len(remaining) {
				remaining = ""
				break
			}
			builder.WriteByte(remaining[match[0]])
			remaining = remaining[match[0]+1:]
			continue
		}
		remaining = remaining[match[1]:]
	}
	builder.WriteString(remaining)
	return builder.String()
}

func substituteTokens(template string, values map[string]string) string {
	return templateTokenRegex.ReplaceAllStringFunc(template, func(token string) string {
		if token == "%%" {
			return "%"
		}
		if value, ok := values[token[1:]]; ok {
			return value
		}
		return token
	})
}

func roundedRatio(value, total, digits int) string {
	if total == 0 {
		return "0"
	}
	factor := math.Pow(10, float64(digits))
	rounded := math.Round(float64(value)/float64(total)*factor) / factor

	formatted := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(formatted, ".") {
		formatted += ".0"
	}
	return formatted
}
