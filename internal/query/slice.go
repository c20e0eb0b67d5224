package query

import (
	"fmt"
	"strings"

	"github.com/anchorhq/anchor/internal/graph"
)

// SliceResult is a graph-sliced rendering of one symbol's code.
type SliceResult struct {
	Text       string
	TotalLines int
	ShownLines int
	CallCount  int
	WasSliced  bool
}

// alwaysKeptPrefixes are trimmed-line prefixes that are always kept
// regardless of call-line proximity.
var alwaysKeptPrefixes = []string{"return ", "return;", "Ok(", "Err(", "raise ", "throw "}

// Slice reduces a symbol's body to its signature, closing line, call sites
// with one line of context, and return statements. Passing full=true
// bypasses the transform and returns the snippet verbatim.
func Slice(n *graph.Node, full bool) SliceResult {
	lines := strings.Split(n.CodeSnippet, "\n")
	total := len(lines)
	callCount := len(n.CallLines)

	if full || total <= 10 || callCount == 0 {
		return SliceResult{Text: n.CodeSnippet, TotalLines: total, ShownLines: total, CallCount: callCount, WasSliced: false}
	}

	keep := make([]bool, total)
	keep[0] = true
	keep[total-1] = true

	for _, l := range n.CallLines {
		rel := l - n.LineStart
		if l < n.LineStart || rel >= total {
			continue
		}
		for _, r := range []int{rel - 1, rel, rel + 1} {
			if r >= 0 && r < total {
				keep[r] = true
			}
		}
	}

	for i, line := range lines {
		t := strings.TrimSpace(line)
		for _, prefix := range alwaysKeptPrefixes {
			if strings.HasPrefix(t, prefix) {
				keep[i] = true
				break
			}
		}
	}

	var b strings.Builder
	shown := 0
	i := 0
	for i < total {
		if keep[i] {
			fmt.Fprintf(&b, "%4d: %s\n", n.LineStart+i, lines[i])
			shown++
			i++
			continue
		}
		j := i
		for j < total && !keep[j] {
			j++
		}
		b.WriteString("    ...\n")
		i = j
	}

	return SliceResult{
		Text:       strings.TrimSuffix(b.String(), "\n"),
		TotalLines: total,
		ShownLines: shown,
		CallCount:  callCount,
		WasSliced:  true,
	}
}
