package mermaid

import "strings"

// extractFencedBlock pulls the diagram source out of a model response that
// wraps it in a fenced code block. The block tagged for the diagram language
// wins; failing that, the first fence whose body looks like flowchart source.
// Everything outside the chosen fence becomes the explanation. An
// unterminated fence (truncated generation) runs to end of input.
func extractFencedBlock(text string) (block, prose string, found bool) {
	lines := strings.Split(text, "\n")

	type fence struct {
		open, close int // line indexes; close == len(lines) when unterminated
		tag         string
	}
	var fences []fence
	open, tag := -1, ""
	for i, ln := range lines {
		t := strings.TrimSpace(ln)
		if !strings.HasPrefix(t, "```") {
			continue
		}
		if open < 0 {
			open = i
			tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(t, "```")))
		} else {
			fences = append(fences, fence{open, i, tag})
			open = -1
		}
	}
	if open >= 0 {
		fences = append(fences, fence{open, len(lines), tag})
	}

	pick := -1
	for i, f := range fences {
		if f.tag == "mermaid" || f.tag == "mmd" {
			pick = i
			break
		}
	}
	if pick < 0 {
		for i, f := range fences {
			if looksLikeDiagram(strings.Join(lines[f.open+1:f.close], "\n")) {
				pick = i
				break
			}
		}
	}
	if pick < 0 {
		return "", "", false
	}

	f := fences[pick]
	block = strings.Join(lines[f.open+1:f.close], "\n")
	rest := make([]string, 0, len(lines))
	for i, ln := range lines {
		if i >= f.open && i <= f.close {
			continue
		}
		rest = append(rest, ln)
	}
	prose = strings.TrimSpace(strings.Join(rest, "\n"))
	return block, prose, true
}

// looksLikeDiagram sniffs unfenced text for flowchart keywords: a direction
// declaration or the block-grouping keyword at the start of any line.
func looksLikeDiagram(text string) bool {
	for _, ln := range strings.Split(text, "\n") {
		switch firstWord(strings.TrimSpace(ln)) {
		case "flowchart", "graph", "subgraph":
			return true
		}
	}
	return false
}
