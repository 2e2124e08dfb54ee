package latex

// Boundaries marks which positions of a token stream are safe cut points.
// Position i lies between tokens[i-1] and tokens[i]; position 0 and
// position len(tokens) are the stream ends.
type Boundaries struct {
	safe []bool
}

// Classify walks tokens and marks the positions where the stream can be cut
// without separating a construct from its content. Only three kinds of
// positions qualify, and only at environment depth 0:
//
//   - right after a paragraph break
//   - right before an environment (or math environment) opens
//   - right after an environment (or math environment) closes
//
// Anything else stays joined, however uneven the resulting chunks.
func Classify(tokens []Token) Boundaries {
	n := len(tokens)
	safe := make([]bool, n+1)
	safe[0] = true
	safe[n] = true

	for i := 1; i < n; i++ {
		prev, next := tokens[i-1], tokens[i]
		if prev.depthAfter() != 0 || binds(prev, next) {
			continue
		}
		switch {
		case prev.Kind == ParagraphBreak && prev.Depth == 0:
			safe[i] = true
		case prev.Kind == EnvEnd && prev.Depth == 0:
			safe[i] = true
		case prev.IsMathEnv() && prev.Depth == 0:
			safe[i] = true
		case next.Kind == EnvBegin && next.Depth == 0:
			safe[i] = true
		case next.IsMathEnv() && next.Depth == 0:
			safe[i] = true
		}
	}
	return Boundaries{safe: safe}
}

// binds reports whether prev is an argument-less control word written flush
// against next, in which case the macro may take next as its argument.
func binds(prev, next Token) bool {
	if prev.Kind != Command || prev.Args || prev.Name == "" || !isLetter(prev.Name[0]) {
		return false
	}
	return prev.Span.End == next.Span.Start && next.Raw != "" && !isSpace(next.Raw[0])
}

// Len returns the number of positions, one more than the token count.
func (b Boundaries) Len() int { return len(b.safe) }

// IsSafe reports whether position i is a safe cut point. Out-of-range
// positions are never safe.
func (b Boundaries) IsSafe(i int) bool {
	return i >= 0 && i < len(b.safe) && b.safe[i]
}

// Indices returns the safe interior positions in ascending order.
func (b Boundaries) Indices() []int {
	var out []int
	for i := 1; i < len(b.safe)-1; i++ {
		if b.safe[i] {
			out = append(out, i)
		}
	}
	return out
}
