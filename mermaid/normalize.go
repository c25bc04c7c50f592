package mermaid

import (
	"fmt"
	"strings"
)

// Result is the outcome of normalizing one raw model response. When no
// diagram-like content is detected, Explanation carries the input unchanged
// and DiagramSource is empty; the caller decides whether that is an error.
type Result struct {
	Explanation   string `json:"explanation"`
	DiagramSource string `json:"diagramSource"`
}

// DefaultDirection is the layout policy applied when none is configured.
const DefaultDirection = "TD"

var validDirections = map[string]bool{
	"TD": true, "TB": true, "LR": true, "RL": true, "BT": true,
}

// Normalizer repairs model-generated flowchart source into a canonical,
// deterministic subset of the language. All methods are pure functions of the
// input text and the fixed configuration; they never return errors, because
// malformed input is the entire reason this type exists.
type Normalizer struct {
	direction string
	theme     Theme
}

// NewNormalizer builds a Normalizer for the given layout direction and theme.
// Unknown directions fall back to DefaultDirection; a nil theme uses the
// default theme's classDef table.
func NewNormalizer(direction string, theme Theme) *Normalizer {
	if !validDirections[direction] {
		direction = DefaultDirection
	}
	if theme == nil {
		theme = DefaultTheme()
	}
	return &Normalizer{direction: direction, theme: theme}
}

var defaultNormalizer = NewNormalizer(DefaultDirection, nil)

// Normalize runs the full pipeline, extraction included, on a raw model
// response that may wrap the diagram in prose and a fenced code block.
func Normalize(rawText string) Result { return defaultNormalizer.Normalize(rawText) }

// Repair runs only the repair stages, for source that has already been
// separated from its surrounding prose (structured-output mode).
func Repair(source string) string { return defaultNormalizer.Repair(source) }

func (n *Normalizer) Normalize(rawText string) Result {
	if block, prose, ok := extractFencedBlock(rawText); ok {
		return Result{Explanation: prose, DiagramSource: n.Repair(block)}
	}
	if looksLikeDiagram(rawText) {
		return Result{DiagramSource: n.Repair(rawText)}
	}
	return Result{Explanation: rawText}
}

// Repair applies the repair stages in order: inline-comment truncation,
// dangling-edge removal, trailing-annotation stripping, direction
// canonicalization, label quoting and dead-line pruning. Running Repair on
// its own output is a no-op.
func (n *Normalizer) Repair(source string) string {
	rawLines := strings.Split(source, "\n")
	lines := make([]string, 0, len(rawLines))
	used := map[string]bool{}
	defined := map[string]bool{}

	for _, raw := range rawLines {
		line := strings.TrimRight(raw, " \t\r")
		kind := classifyLine(line)

		// Standalone comments and directives survive untouched.
		if kind == lineComment || kind == lineDirective {
			lines = append(lines, line)
			continue
		}

		// Inline trailing commentary is unrecoverable prose: truncate at the
		// marker and discard the remainder. The search is quote-aware, so a
		// %% inside a quoted label never starts a comment.
		if idx := indexOutsideQuotes(line, "%%"); idx >= 0 {
			line = strings.TrimRight(line[:idx], " \t")
			kind = classifyLine(line)
		}

		switch kind {
		case lineBlank:
			continue
		case lineClassAssign:
			name, ok := classAssignName(line)
			if !ok || !isStyleClass(name) {
				continue
			}
			used[name] = true
		case lineClassDef:
			name, ok := classDefName(line)
			if !ok || !isStyleClass(name) {
				continue
			}
			defined[name] = true
		case lineStatement:
			line = collapseEdgeOpRuns(line)
			line = stripDanglingEdges(line)
			line = stripTrailingProse(line)
			line = filterClassTokens(line, used)
			line = quoteShapeLabels(line)
			if strings.TrimSpace(line) == "" {
				continue
			}
		}
		lines = append(lines, line)
	}

	lines = n.canonicalizeDirection(lines)
	lines = append(lines, n.missingClassDefs(used, defined)...)
	return strings.Join(lines, "\n")
}

// canonicalizeDirection removes every direction declaration and inserts
// exactly one, matching the configured policy, as the first line after any
// leading directives.
func (n *Normalizer) canonicalizeDirection(lines []string) []string {
	header := "flowchart " + n.direction
	directives := []string{}
	rest := []string{}
	leading := true
	for _, ln := range lines {
		kind := classifyLine(ln)
		if kind == lineHeader {
			continue
		}
		if leading && kind == lineDirective {
			directives = append(directives, ln)
			continue
		}
		leading = false
		rest = append(rest, ln)
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, directives...)
	out = append(out, header)
	return append(out, rest...)
}

// missingClassDefs emits canonical classDef lines for every vocabulary class
// that is assigned somewhere but never defined, in a fixed order so output
// stays deterministic.
func (n *Normalizer) missingClassDefs(used, defined map[string]bool) []string {
	var out []string
	for _, name := range StyleClasses {
		if used[name] && !defined[name] {
			out = append(out, fmt.Sprintf("classDef %s %s", name, n.theme[name]))
		}
	}
	return out
}

// collapseEdgeOpRuns merges consecutive edge operators separated only by
// whitespace, a hallucination artifact like "A --> --> B", keeping the last
// operator of each run.
func collapseEdgeOpRuns(line string) string {
	for {
		ops := findEdgeOps(line)
		changed := false
		for k := 0; k+1 < len(ops); k++ {
			if strings.TrimSpace(line[ops[k].end:ops[k+1].start]) == "" {
				line = line[:ops[k].start] + line[ops[k+1].start:]
				changed = true
				break
			}
		}
		if !changed {
			return line
		}
	}
}

// stripDanglingEdges removes trailing edge operators that name no target, a
// truncated-generation artifact. "A --> B -->" collapses to "A --> B";
// "A -->|sends|" collapses to "A". Repair never infers a target: deleting is
// the documented, safer behavior.
func stripDanglingEdges(line string) string {
	for {
		body := strings.TrimRight(line, " \t")
		body = strings.TrimRight(strings.TrimSuffix(body, ";"), " \t")
		ops := findEdgeOps(body)
		if len(ops) == 0 {
			return line
		}
		last := ops[len(ops)-1]
		if !danglingTail(body[last.start:last.end], body[last.end:]) {
			return line
		}
		line = strings.TrimRight(body[:last.start], " \t")
	}
}

// danglingTail reports whether the text following an edge operator names no
// destination. An empty tail is dangling; so is a bare |label| with nothing
// after it; so is anything after a plain -- or ==, which only ever open an
// inline edge label and are meaningless without their closing arrow.
func danglingTail(op, tail string) bool {
	t := strings.TrimSpace(tail)
	if t == "" {
		return true
	}
	if op == "--" || op == "==" {
		return true
	}
	if strings.HasPrefix(t, "|") {
		rest := t[1:]
		j := strings.IndexByte(rest, '|')
		if j < 0 {
			return true
		}
		return strings.TrimSpace(rest[j+1:]) == ""
	}
	return false
}

// stripTrailingProse truncates free text that models append after a complete
// statement element: past a node shape's closing delimiter, a :::class token
// or a bare node id, anything that is not a legal continuation (edge
// operator, |label| span, &, comma or semicolon) is discarded. Shape bodies,
// |...| edge labels and the text of a "-- label -->" inline edge are opaque,
// so a literal parenthesis or bracket inside a label never ends the
// statement.
func stripTrailingProse(line string) string {
	afterNode := false
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '&' || c == ';' || c == ',':
			afterNode = false
			i++
		case c == '|':
			j := indexOutsideQuotesFrom(line, "|", i+1)
			if j < 0 {
				return line
			}
			afterNode = false
			i = j + 1
		case strings.HasPrefix(line[i:], ":::"):
			j := i + 3
			for j < len(line) && isIdentChar(line[j]) {
				j++
			}
			afterNode = true
			i = j
		case c == '<' || isOpChar(c):
			ops := findEdgeOps(line[i:])
			if len(ops) == 0 || ops[0].start != 0 {
				if afterNode {
					return strings.TrimRight(line[:i], " \t")
				}
				i++
				continue
			}
			op := line[i : i+ops[0].end]
			afterNode = false
			if (op == "--" || op == "==") && len(ops) > 1 {
				// inline edge label: the words up to the closing operator
				// are label text
				i += ops[1].start
			} else {
				i += ops[0].end
			}
		default:
			if opener, closers := shapeDelimAt(line, i); opener != "" {
				end, closer := findCloser(line, i+len(opener), closers)
				if end < 0 {
					return line
				}
				afterNode = true
				i = end + len(closer)
				continue
			}
			if afterNode {
				return strings.TrimRight(line[:i], " \t")
			}
			if isIdentChar(c) {
				for i < len(line) && isIdentChar(line[i]) {
					if isOpChar(line[i]) {
						if ops := findEdgeOps(line[i:]); len(ops) > 0 && ops[0].start == 0 {
							break
						}
					}
					i++
				}
				afterNode = true
				continue
			}
			i++
		}
	}
	return line
}

// filterClassTokens drops :::name assignments whose name is outside the
// closed style-class vocabulary and records the ones that survive.
func filterClassTokens(line string, used map[string]bool) string {
	for from := 0; ; {
		i := indexOutsideQuotesFrom(line, ":::", from)
		if i < 0 {
			return line
		}
		j := i + 3
		for j < len(line) && isIdentChar(line[j]) {
			j++
		}
		name := line[i+3 : j]
		if isStyleClass(name) {
			used[name] = true
			from = j
			continue
		}
		line = line[:i] + line[j:]
		from = i
	}
}

// classAssignName extracts the class name from a "class a,b name" statement.
func classAssignName(line string) (string, bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 3 {
		return "", false
	}
	return strings.TrimRight(fields[len(fields)-1], ";"), true
}

// classDefName extracts the class name from a "classDef name styles" line.
func classDefName(line string) (string, bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 {
		return "", false
	}
	return strings.TrimRight(fields[1], ";"), true
}

// quoteShapeLabels rewrites every node-shape label into canonical quoted
// form: surrounding quotes stripped, interior quotes replaced with #quot;,
// the whole label re-wrapped. Idempotent by construction.
func quoteShapeLabels(line string) string {
	var b strings.Builder
	inQuote := false
	for i := 0; i < len(line); {
		c := line[i]
		if c == '"' {
			inQuote = !inQuote
			b.WriteByte(c)
			i++
			continue
		}
		if inQuote {
			b.WriteByte(c)
			i++
			continue
		}
		if c == '|' {
			// |...| edge labels are copied verbatim: a parenthesis inside
			// one is label text, not a shape delimiter
			if j := indexOutsideQuotesFrom(line, "|", i+1); j >= 0 {
				b.WriteString(line[i : j+1])
				i = j + 1
				continue
			}
		}
		opener, closers := shapeDelimAt(line, i)
		if opener == "" {
			b.WriteByte(c)
			i++
			continue
		}
		end, closer := findCloser(line, i+len(opener), closers)
		if end < 0 {
			b.WriteString(line[i:])
			break
		}
		b.WriteString(opener)
		b.WriteString(canonicalLabel(line[i+len(opener) : end]))
		b.WriteString(closer)
		i = end + len(closer)
	}
	return b.String()
}

// canonicalLabel produces the quoted form of a label's inner text. Interior
// quote characters become #quot; so the label can never terminate the shape
// delimiter early.
func canonicalLabel(inner string) string {
	t := strings.TrimSpace(inner)
	t = strings.Trim(t, `"`)
	t = strings.ReplaceAll(t, `"`, "#quot;")
	return `"` + t + `"`
}
