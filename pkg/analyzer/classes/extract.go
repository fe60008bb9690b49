package classes

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dlclark/regexp2"
)

// arrayGroup is the capture-group name that marks an array-literal match.
const arrayGroup = "array"

// ErrInvalidStrategy is returned when a strategy pattern does not compile.
var ErrInvalidStrategy = errors.New("invalid extraction strategy")

// Strategy is one named extraction pattern for a templating dialect.
type Strategy struct {
	Name    string
	Pattern *regexp2.Regexp

	// arrayIndex is the group number of the "array" group, or -1.
	arrayIndex int
}

// StrategyTable maps file extensions to the strategies that apply to them.
type StrategyTable struct {
	byExt       map[string][]*Strategy
	fingerprint uint64
}

// NewStrategyTable compiles every strategy referenced by fileTypes.
// Extensions are matched case-insensitively and may be given with or without
// a leading dot. An unknown strategy name or a pattern that fails to compile
// is an error.
func NewStrategyTable(strategies map[string]string, fileTypes map[string][]string, timeout time.Duration) (*StrategyTable, error) {
	compiled := make(map[string]*Strategy, len(strategies))
	compile := func(name string) (*Strategy, error) {
		if s, ok := compiled[name]; ok {
			return s, nil
		}
		expr, ok := strategies[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q is not defined", ErrInvalidStrategy, name)
		}
		re, err := regexp2.Compile(expr, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidStrategy, name, err)
		}
		if timeout > 0 {
			re.MatchTimeout = timeout
		}
		s := &Strategy{
			Name:       name,
			Pattern:    re,
			arrayIndex: re.GroupNumberFromName(arrayGroup),
		}
		compiled[name] = s
		return s, nil
	}

	table := &StrategyTable{byExt: make(map[string][]*Strategy, len(fileTypes))}
	for ext, names := range fileTypes {
		key := normalizeExt(ext)
		for _, name := range names {
			s, err := compile(name)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(table.byExt[key], s) {
				table.byExt[key] = append(table.byExt[key], s)
			}
		}
	}
	table.fingerprint = fingerprint(strategies, fileTypes, timeout)
	return table, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// fingerprint hashes the table definition so cached extractions are
// invalidated when strategies change.
func fingerprint(strategies map[string]string, fileTypes map[string][]string, timeout time.Duration) uint64 {
	h := xxhash.New()
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(h, "s:%s=%s\n", name, strategies[name])
	}
	exts := make([]string, 0, len(fileTypes))
	for ext := range fileTypes {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	for _, ext := range exts {
		fmt.Fprintf(h, "t:%s=%s\n", normalizeExt(ext), strings.Join(fileTypes[ext], ","))
	}
	fmt.Fprintf(h, "timeout:%d\n", timeout)
	return h.Sum64()
}

// ForPath returns the strategies configured for the file's extension.
func (t *StrategyTable) ForPath(path string) []*Strategy {
	return t.byExt[normalizeExt(filepath.Ext(path))]
}

// Fingerprint identifies the table definition.
func (t *StrategyTable) Fingerprint() uint64 {
	return t.fingerprint
}

// Extraction is the set of raw class strings found in one file.
type Extraction struct {
	Patterns       []string `json:"patterns"`
	StrategiesUsed []string `json:"strategies_used"`
	// TimedOut lists strategies abandoned because a match exceeded the timeout.
	TimedOut []string `json:"timed_out,omitempty"`
}

// FindClassesInSource runs every strategy configured for filePath's extension
// over source. A file without configured strategies yields an empty result.
//
// A normal match contributes its first non-empty capture group as one entry.
// An array-literal match contributes every safe quoted literal as its own entry.
func FindClassesInSource(source, filePath string, table *StrategyTable) Extraction {
	ex := Extraction{Patterns: []string{}, StrategiesUsed: []string{}}
	if table == nil {
		return ex
	}

	for _, s := range table.ForPath(filePath) {
		found := false
		m, err := s.Pattern.FindStringMatch(source)
		for m != nil {
			if s.arrayIndex >= 0 {
				if g := m.GroupByNumber(s.arrayIndex); g != nil && g.Length > 0 {
					literals := arrayLiterals(g.String())
					ex.Patterns = append(ex.Patterns, literals...)
					found = true
					m, err = s.Pattern.FindNextMatch(m)
					continue
				}
			}
			if raw, ok := firstCapture(m); ok {
				ex.Patterns = append(ex.Patterns, raw)
				found = true
			}
			m, err = s.Pattern.FindNextMatch(m)
		}
		if err != nil {
			ex.TimedOut = append(ex.TimedOut, s.Name)
		}
		if found {
			ex.StrategiesUsed = append(ex.StrategiesUsed, s.Name)
		}
	}
	return ex
}

// firstCapture returns the first non-empty capture group, skipping the whole
// match and the array group.
func firstCapture(m *regexp2.Match) (string, bool) {
	groups := m.Groups()
	for i := 1; i < len(groups); i++ {
		if groups[i].Name == arrayGroup {
			continue
		}
		if groups[i].Length > 0 {
			return groups[i].String(), true
		}
	}
	return "", false
}

var quotedLiteral = regexp2.MustCompile(`'([^']*)'|"([^"]*)"|`+"`([^`]*)`", regexp2.None)

// conditionalMarkers identify computed array elements whose classes cannot
// be attributed to a literal.
var conditionalMarkers = []string{"?", "==", "!=", "&&", "||"}

// arrayLiterals returns each quoted literal in a bracketed array body.
// Elements holding a conditional expression or an object literal are skipped.
func arrayLiterals(body string) []string {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "[")
	body = strings.TrimSuffix(body, "]")

	var out []string
	for _, element := range splitTopLevel(body) {
		element = strings.TrimSpace(element)
		if element == "" || strings.HasPrefix(element, "{") || isConditional(element) {
			continue
		}
		m, _ := quotedLiteral.FindStringMatch(element)
		for m != nil {
			if lit, ok := firstCapture(m); ok {
				if lit = strings.TrimSpace(lit); lit != "" {
					out = append(out, lit)
				}
			}
			m, _ = quotedLiteral.FindNextMatch(m)
		}
	}
	return out
}

func isConditional(element string) bool {
	for _, marker := range conditionalMarkers {
		if strings.Contains(element, marker) {
			return true
		}
	}
	return false
}

// splitTopLevel splits on commas that are not nested in quotes or brackets.
func splitTopLevel(s string) []string {
	var parts []string
	var quote rune
	depth := 0
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
