package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"testing"
)

// pairField mimics a field with two optional arguments defaulting to
// "1" and "2".
func pairField(name string, args []string) (string, error) {
	if len(args) > 2 {
		return "", fmt.Errorf("expected at most 2 arguments, got %d", len(args))
	}
	arg1, arg2 := "1", "2"
	if len(args) > 0 {
		arg1 = args[0]
	}
	if len(args) > 1 {
		arg2 = args[1]
	}
	return arg1 + arg2, nil
}

// tripleField mimics a field with three required arguments.
func tripleField(name string, args []string) (string, error) {
	if len(args) != 3 {
		return "", fmt.Errorf("expected 3 arguments, got %d", len(args))
	}
	return args[0] + args[1] + args[2], nil
}

// variadicField mimics a field with one required argument and any
// number of additional arguments.
func variadicField(name string, args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("expected at least 1 argument")
	}
	return args[0] + "_" + strings.Join(args[1:], "-"), nil
}

func failingField(name string, args []string) (string, error) {
	return "", errors.New("invalid argument values")
}

func constantField(value string) FieldFunc {
	return func(name string, args []string) (string, error) {
		return value, nil
	}
}

func counterField() FieldFunc {
	i := 0
	return func(name string, args []string) (string, error) {
		i++
		return strconv.Itoa(i), nil
	}
}

func fieldTable(regex string, fn FieldFunc) []Field {
	return []Field{{Regex: regexp.MustCompile(regex), Func: fn}}
}

func TestSubstituteWithoutFields(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"empty string", "", ""},
		{"plain string", "image", "image"},
		{"string containing field delimiters", "[image]", "[image]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.text, nil).Substitute(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		fields   []Field
		text     string
		expected string
	}{
		{
			"multiple fields with constant values",
			[]Field{
				{regexp.MustCompile("field1"), constantField("1")},
				{regexp.MustCompile("field2"), constantField("2")},
				{regexp.MustCompile("field3"), constantField("3")},
			},
			"img_[field1][field2]_[field3]",
			"img_12_3",
		},
		{"explicit arguments", fieldTable("field", pairField), "img_[field, 3, 4]", "img_34"},
		{"arguments longer than one character", fieldTable("field", pairField), "img_[field, one, two]", "img_onetwo"},
		{"last argument defaulted", fieldTable("field", pairField), "img_[field, 3]", "img_32"},
		{"all arguments defaulted", fieldTable("field", pairField), "img_[field]", "img_12"},
		{"trailing comma", fieldTable("field", pairField), "img_[field,]", "img_12"},
		{"trailing comma and space", fieldTable("field", pairField), "img_[field, ]", "img_12"},
		{"explicit arguments with trailing comma", fieldTable("field", pairField), "img_[field, 3, 4, ]", "img_34"},
		{"more arguments than the field accepts", fieldTable("field", pairField), "img_[field, 3, 4, 5]", "img_[field, 3, 4, 5]"},
		{"no arguments for required arguments", fieldTable("field", tripleField), "img_[field]", "img_[field]"},
		{"fewer arguments than required", fieldTable("field", tripleField), "img_[field, 3]", "img_[field, 3]"},
		{"no extra arguments for variadic field", fieldTable("field", variadicField), "img_[field, 3]", "img_3_"},
		{"extra arguments for variadic field", fieldTable("field", variadicField), "img_[field, 3, 4, 5, 6]", "img_3_4-5-6"},
		{"bracketed arguments", fieldTable("field", pairField), "img_[field, [3], [4],]", "img_34"},
		{"multiple spaces between arguments", fieldTable("field", pairField), "img_[field,   3,  4  ]", "img_34"},
		{"bracketed arguments with commas", fieldTable("field", pairField), "img_[field, [3, ], [4, ],]", "img_3, 4, "},
		{"escaped brackets on argument bounds", fieldTable("field", pairField), "img_[field, [[[3, ]]], [[[4, ]]],]", "img_[3, ][4, ]"},
		{"escaped brackets inside arguments", fieldTable("field", pairField), "img_[field, [on[[e], [t[[w]]o],]", "img_on[et[w]o"},
		{"failing field restores field text", fieldTable("field", failingField), "img_[field]", "img_[field]"},
		{"unmatched field name", fieldTable("unrecognized field", pairField), "img_[field]", "img_[field]"},
		{"field regex with delimiters never matches", fieldTable(`\[field\]`, pairField), "img_[field]", "img_[field]"},
		{"escaped delimiters", fieldTable("field", pairField), "img_[[field]]", "img_[field]"},
		{"escaped delimiters alongside fields", fieldTable("field", pairField), "[[img [[1]]_[field]", "[img [1]_12"},
		{"uneven delimiters", fieldTable("field", pairField), "img_[field, [1[, ]", "img_[field, [1[, ]"},
		{"escaped opening delimiter", fieldTable("field", pairField), "img_[[field", "img_[field"},
		{"unescaped opening delimiter", fieldTable("field", pairField), "img_[field", "img_[field"},
		{"unescaped opening delimiter at end", fieldTable("field", pairField), "img_[field][", "img_12["},
		{"escaped closing delimiter", fieldTable("field", pairField), "img_field]]", "img_field]"},
		{"unescaped closing delimiter", fieldTable("field", pairField), "img_field]", "img_field]"},
		{"escaped opening and unescaped closing delimiter", fieldTable("field", pairField), "img_[[field]", "img_[field]"},
		{"unescaped opening and escaped closing delimiter", fieldTable("field", pairField), "img_[field]]", "img_12]"},
		{"escaped delimiters at ends with field inside", fieldTable("field", pairField), "img_[[field] [field]]", "img_[field] 12]"},
		{"unescaped opening and closing delimiters at end", fieldTable("field", pairField), "img_[field[]", "img_[field[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.text, tt.fields).Substitute(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSubstituteRepeatedlyYieldsSameResult(t *testing.T) {
	p := New("img_[field, 3, 4]", fieldTable("field", pairField))
	for i := 0; i < 3; i++ {
		if got := p.Substitute(); got != "img_34" {
			t.Errorf("Expected %q, got %q", "img_34", got)
		}
	}
}

func TestSubstituteWithRegexFields(t *testing.T) {
	t.Run("numbered fields", func(t *testing.T) {
		p := New("img_[42]_[0]", fieldTable("^[0-9]+$", counterField()))
		expected := []string{"img_1_2", "img_3_4", "img_5_6"}
		for _, want := range expected {
			if got := p.Substitute(); got != want {
				t.Errorf("Expected %q, got %q", want, got)
			}
		}
	})

	t.Run("non-matching regex", func(t *testing.T) {
		p := New("img_[abc]", fieldTable("^[0-9]+$", counterField()))
		if got := p.Substitute(); got != "img_[abc]" {
			t.Errorf("Expected %q, got %q", "img_[abc]", got)
		}
	})

	t.Run("first matching regex wins", func(t *testing.T) {
		fields := []Field{
			{regexp.MustCompile("^[0-9]+$"), constantField("number")},
			{regexp.MustCompile("^[0-9a-z]+$"), constantField("alphanumeric")},
		}
		if got := New("img_[42]", fields).Substitute(); got != "img_number" {
			t.Errorf("Expected %q, got %q", "img_number", got)
		}
	})
}

func TestParseField(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		expectedName string
		expectedArgs []string
	}{
		{"name only", "field", "field", nil},
		{"name with surrounding spaces", " field ", "field", nil},
		{"name with arguments", "field, 3, 4", "field", []string{"3", "4"}},
		{"name containing spaces", "image name, %e", "image name", []string{"%e"}},
		{"bracketed argument with comma", "field, [3, ],", "field", []string{"3, "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args := ParseField(tt.raw)
			if name != tt.expectedName {
				t.Errorf("Expected name %q, got %q", tt.expectedName, name)
			}
			if !slices.Equal(args, tt.expectedArgs) {
				t.Errorf("Expected args %v, got %v", tt.expectedArgs, args)
			}
		})
	}
}

func TestPatternString(t *testing.T) {
	text := "img_[field]"
	if got := New(text, nil).String(); got != text {
		t.Errorf("Expected %q, got %q", text, got)
	}
}
