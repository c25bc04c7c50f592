package mermaid

import "strings"

// lineKind classifies a single line of flowchart source by its syntactic role.
// Classification happens before any rewrite so that repair stages never apply
// to control syntax they were not written for.
type lineKind int

const (
	lineBlank       lineKind = iota
	lineComment              // standalone %% comment
	lineDirective            // %%{init: ...}%% directive
	lineHeader               // flowchart TD / graph LR declaration
	lineSubgraph             // subgraph <id> [title]
	lineEnd                  // end of a subgraph block
	lineDirection            // direction TB (inside a subgraph)
	lineClassDef             // classDef <name> <styles>
	lineClassAssign          // class <node>[,<node>...] <name>
	lineStyle                // style / linkStyle / click statements
	lineStatement            // node and/or edge statements
)

func classifyLine(s string) lineKind {
	t := strings.TrimSpace(s)
	switch {
	case t == "":
		return lineBlank
	case strings.HasPrefix(t, "%%{"):
		return lineDirective
	case strings.HasPrefix(t, "%%"):
		return lineComment
	}
	switch firstWord(t) {
	case "flowchart", "graph":
		return lineHeader
	case "subgraph":
		return lineSubgraph
	case "end":
		return lineEnd
	case "direction":
		return lineDirection
	case "classDef":
		return lineClassDef
	case "class":
		return lineClassAssign
	case "style", "linkStyle", "click":
		return lineStyle
	}
	return lineStatement
}

// firstWord returns the first whitespace-separated word with any trailing
// statement terminator removed.
func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ";")
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// indexOutsideQuotes returns the index of the first occurrence of marker in s
// that does not fall inside a double-quoted region, or -1. This is what keeps
// a %% inside a quoted label from being mistaken for a comment start.
func indexOutsideQuotes(s, marker string) int {
	return indexOutsideQuotesFrom(s, marker, 0)
}

func indexOutsideQuotesFrom(s, marker string, from int) int {
	inQuote := false
	for i := from; i < len(s); i++ {
		if s[i] == '"' {
			inQuote = !inQuote
			continue
		}
		if !inQuote && strings.HasPrefix(s[i:], marker) {
			return i
		}
	}
	return -1
}

// opSpan marks an edge operator occurrence within a line.
type opSpan struct {
	start, end int
}

func isOpChar(c byte) bool {
	return c == '-' || c == '=' || c == '.'
}

// findEdgeOps locates edge operators outside quoted regions. An operator is a
// run of two or more '-', '=' or '.' characters, optionally preceded by '<'
// and optionally terminated by '>'. Covers -->, ---, -.->, ==>, == and the
// backward variants.
func findEdgeOps(s string) []opSpan {
	var ops []opSpan
	inQuote := false
	for i := 0; i < len(s); {
		c := s[i]
		if c == '"' {
			inQuote = !inQuote
			i++
			continue
		}
		if inQuote {
			i++
			continue
		}
		start := i
		j := i
		if c == '<' && j+1 < len(s) && isOpChar(s[j+1]) {
			j++
		}
		k := j
		for k < len(s) && isOpChar(s[k]) {
			k++
		}
		if k-j >= 2 {
			if k < len(s) && s[k] == '>' {
				k++
			}
			ops = append(ops, opSpan{start, k})
			i = k
			continue
		}
		i++
	}
	return ops
}

// shape delimiter pairs, longest openers first so compound shapes win over
// their single-character prefixes.
var shapeDelims = []struct {
	open    string
	closers []string
}{
	{"([", []string{"])"}},
	{"[(", []string{")]"}},
	{"[[", []string{"]]"}},
	{"[/", []string{"/]", "\\]"}},
	{"[\\", []string{"\\]", "/]"}},
	{"((", []string{"))"}},
	{"{{", []string{"}}"}},
	{"[", []string{"]"}},
	{"(", []string{")"}},
	{"{", []string{"}"}},
}

// shapeDelimAt reports the shape opener starting at position i, or "" when the
// position does not open a node shape. Shape delimiters only count when they
// are attached to a node identifier, which keeps bare parentheses in edge
// labels from being rewritten.
func shapeDelimAt(s string, i int) (string, []string) {
	if i == 0 || !isIdentChar(s[i-1]) {
		return "", nil
	}
	for _, d := range shapeDelims {
		if strings.HasPrefix(s[i:], d.open) {
			return d.open, d.closers
		}
	}
	return "", nil
}

// findCloser locates the earliest closer candidate at or after from,
// preferring positions outside quoted regions and falling back to a plain
// search when an unbalanced quote hides every candidate.
func findCloser(s string, from int, closers []string) (pos int, closer string) {
	pos = -1
	for _, c := range closers {
		if p := indexOutsideQuotesFrom(s, c, from); p >= 0 && (pos < 0 || p < pos) {
			pos, closer = p, c
		}
	}
	if pos >= 0 {
		return pos, closer
	}
	for _, c := range closers {
		if p := strings.Index(s[from:], c); p >= 0 && (pos < 0 || p+from < pos) {
			pos, closer = p+from, c
		}
	}
	return pos, closer
}
