// Package transcript rewrites speech-to-text output before it is shown.
//
// A substitutions file holds one rule per line:
//
//	# comment
//	gonna => going to          literal, case-insensitive, whole words
//	s/\bum+\b//g               sed-style regex with flags i, g, m, s
//	drop: you know             remove a phrase entirely
//
// Rules run in file order and the whole set repeats until the text stops
// changing or the iteration limit is reached. Whitespace is collapsed last.
package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const DefaultIterationLimit = 30

type rule struct {
	re          *regexp.Regexp
	replacement string
	firstOnly   bool
}

func (r rule) apply(input string) string {
	if !r.firstOnly {
		return r.re.ReplaceAllString(input, r.replacement)
	}
	loc := r.re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input
	}
	var expanded []byte
	expanded = r.re.ExpandString(expanded, r.replacement, input, loc)
	return input[:loc[0]] + string(expanded) + input[loc[1]:]
}

// Filter implements ports.TranscriptFilter.
type Filter struct {
	rules []rule
	limit int
}

var spaceRun = regexp.MustCompile(`\s+`)

// Load reads a substitutions file. A blank path or a missing file yields a
// filter that only normalizes whitespace.
func Load(path string, limit int) (*Filter, error) {
	if strings.TrimSpace(path) == "" {
		return Passthrough(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Passthrough(), nil
		}
		return nil, fmt.Errorf("failed to open substitutions %q: %w", path, err)
	}
	defer f.Close()

	lines := make([]string, 0, 16)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read substitutions %q: %w", path, err)
	}

	filter, err := Parse(lines, limit)
	if err != nil {
		return nil, fmt.Errorf("substitutions %q: %w", path, err)
	}
	return filter, nil
}

// Parse compiles rule lines.
func Parse(lines []string, limit int) (*Filter, error) {
	rules := make([]rule, 0, len(lines))
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		rules = append(rules, r)
	}
	return newFilter(rules, limit), nil
}

// Passthrough only normalizes whitespace.
func Passthrough() *Filter {
	return newFilter(nil, 0)
}

func newFilter(rules []rule, limit int) *Filter {
	if limit <= 0 {
		limit = DefaultIterationLimit
	}
	return &Filter{rules: rules, limit: limit}
}

// Len reports how many rules were compiled.
func (f *Filter) Len() int { return len(f.rules) }

func (f *Filter) Apply(text string) (string, error) {
	out := text
	for i := 0; i < f.limit && len(f.rules) > 0; i++ {
		before := out
		for _, r := range f.rules {
			out = r.apply(out)
		}
		if out == before {
			break
		}
	}
	return strings.TrimSpace(spaceRun.ReplaceAllString(out, " ")), nil
}

func parseLine(line string) (rule, error) {
	switch {
	case strings.HasPrefix(line, "drop:"):
		phrase := strings.TrimSpace(strings.TrimPrefix(line, "drop:"))
		if phrase == "" {
			return rule{}, errors.New("drop rule needs a phrase")
		}
		return wordRule(phrase, "")
	case isRegexRule(line):
		return parseRegex(line)
	case strings.Contains(line, "=>"):
		from, to, _ := strings.Cut(line, "=>")
		from = strings.TrimSpace(from)
		if from == "" {
			return rule{}, errors.New("literal rule source cannot be empty")
		}
		return wordRule(from, strings.TrimSpace(to))
	default:
		return rule{}, fmt.Errorf("unsupported rule %q", line)
	}
}

func wordRule(phrase, replacement string) (rule, error) {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
	if err != nil {
		return rule{}, fmt.Errorf("invalid phrase: %w", err)
	}
	return rule{re: re, replacement: strings.ReplaceAll(replacement, "$", "$$")}, nil
}

func isRegexRule(line string) bool {
	return len(line) > 2 && line[0] == 's' && isDelimiter(line[1])
}

func isDelimiter(c byte) bool {
	switch c {
	case '/', '|', '#', ',', ':', '!', '@':
		return true
	}
	return false
}

func parseRegex(line string) (rule, error) {
	delim := line[1]
	parts, rest, err := splitDelimited(line[2:], delim, 2)
	if err != nil {
		return rule{}, err
	}

	flags := "i"
	firstOnly := true
	for _, flag := range strings.TrimSpace(rest) {
		switch flag {
		case 'g':
			firstOnly = false
		case 'i':
		case 'm', 's':
			flags += string(flag)
		default:
			return rule{}, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + flags + ")" + parts[0])
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex: %w", err)
	}
	return rule{re: re, replacement: parts[1], firstOnly: firstOnly}, nil
}

// splitDelimited reads n fields terminated by delim. A backslash keeps an
// escaped delimiter literal; other escapes pass through to the regex.
func splitDelimited(s string, delim byte, n int) ([]string, string, error) {
	fields := make([]string, 0, n)
	var current strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			if s[i+1] == delim {
				current.WriteByte(delim)
			} else {
				current.WriteByte(c)
				current.WriteByte(s[i+1])
			}
			i++
			continue
		}
		if c == delim {
			fields = append(fields, current.String())
			current.Reset()
			if len(fields) == n {
				return fields, s[i+1:], nil
			}
			continue
		}
		current.WriteByte(c)
	}
	return nil, "", errors.New("unterminated expression")
}
