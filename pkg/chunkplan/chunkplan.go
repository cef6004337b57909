// Package chunkplan splits a dialogue script into a bounded number of
// synthesis-sized chunks, preferring speaker-turn boundaries and falling
// back to proportional character splitting when turns are too sparse.
package chunkplan

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTargetChars is the per-chunk character budget for one
	// synthesis call.
	DefaultTargetChars = 400

	// maxBoundaryScan caps the forward scan for a sentence terminator in
	// the character-split fallback. Past this window the cut is forced.
	maxBoundaryScan = 120
)

var ErrMaxChunks = errors.New("max chunks must be at least 1")

type Options struct {
	TargetChars int      // per-chunk size target in characters
	SpeakerTags []string // line prefixes that open a new turn, e.g. "Joe:"
}

func DefaultOptions() Options {
	return Options{
		TargetChars: DefaultTargetChars,
		SpeakerTags: []string{"Joe:", "Jane:"},
	}
}

// Chunk is one contiguous piece of the script.
type Chunk struct {
	Index int
	Text  string
}

// Plan is an ordered chunking of a script. Joining the chunk texts with
// Separator reproduces the input exactly.
type Plan struct {
	Chunks    []Chunk
	Separator string
}

func (p *Plan) Texts() []string {
	out := make([]string, len(p.Chunks))
	for i, c := range p.Chunks {
		out[i] = c.Text
	}
	return out
}

// Reassemble reconstructs the original script text.
func (p *Plan) Reassemble() string {
	return strings.Join(p.Texts(), p.Separator)
}

type Planner struct {
	opts Options
}

func New(opts Options) *Planner {
	if opts.TargetChars <= 0 {
		opts.TargetChars = DefaultTargetChars
	}
	if len(opts.SpeakerTags) == 0 {
		opts.SpeakerTags = DefaultOptions().SpeakerTags
	}
	return &Planner{opts: opts}
}

// Plan splits script into at most maxChunks chunks. The chunk count is
// min(ceil(len/target), maxChunks), never less than 1.
func (p *Planner) Plan(script string, maxChunks int) (*Plan, error) {
	if maxChunks < 1 {
		return nil, fmt.Errorf("plan script: %w", ErrMaxChunks)
	}

	target := p.opts.TargetChars
	count := (len(script) + target - 1) / target
	if count > maxChunks {
		count = maxChunks
	}
	if count <= 1 {
		return &Plan{
			Chunks:    []Chunk{{Index: 0, Text: script}},
			Separator: "\n",
		}, nil
	}

	lines := strings.Split(script, "\n")
	if p.countTurnStarts(lines) < count {
		return p.splitByChars(script, count), nil
	}
	return p.splitByTurns(lines, count, target), nil
}

func (p *Planner) countTurnStarts(lines []string) int {
	n := 0
	for _, line := range lines {
		if p.isTurnStart(line) {
			n++
		}
	}
	return n
}

func (p *Planner) isTurnStart(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	for _, tag := range p.opts.SpeakerTags {
		if strings.HasPrefix(trimmed, tag) {
			return true
		}
	}
	return false
}

// splitByTurns greedily accumulates whole lines. A chunk closes when it
// has reached the target size and the next line opens a new turn, when it
// overflows 1.5x the target, or when the remaining turn boundaries are
// exactly enough to start each remaining chunk. The last chunk absorbs
// everything left.
func (p *Planner) splitByTurns(lines []string, count, target int) *Plan {
	// turnsAfter[i] = number of turn-start lines with index >= i
	turnsAfter := make([]int, len(lines)+1)
	for i := len(lines) - 1; i >= 0; i-- {
		turnsAfter[i] = turnsAfter[i+1]
		if p.isTurnStart(lines[i]) {
			turnsAfter[i]++
		}
	}

	chunks := make([]Chunk, 0, count)
	var cur []string
	size := 0

	for i, line := range lines {
		cur = append(cur, line)
		size += len(line)

		if len(chunks) == count-1 || i+1 >= len(lines) {
			continue // last chunk absorbs the remainder
		}

		stillToOpen := count - len(chunks) - 1
		nextIsTurn := p.isTurnStart(lines[i+1])

		closeNow := false
		switch {
		case nextIsTurn && size >= target:
			closeNow = true
		case nextIsTurn && turnsAfter[i+1] == stillToOpen:
			// every remaining boundary is needed to open a chunk
			closeNow = true
		case size > target*3/2:
			closeNow = true
		}
		if closeNow {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.Join(cur, "\n")})
			cur = cur[:0:0]
			size = 0
		}
	}

	chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.Join(cur, "\n")})
	return &Plan{Chunks: chunks, Separator: "\n"}
}

// splitByChars divides the script into count near-equal spans. Each
// internal boundary is nudged forward to the next sentence terminator or
// newline so words are not cut, but never beyond maxBoundaryScan. The
// last span absorbs any remainder. Chunks are raw substrings, so the plan
// separator is empty.
func (p *Planner) splitByChars(script string, count int) *Plan {
	span := len(script) / count
	chunks := make([]Chunk, 0, count)

	start := 0
	for i := 0; i < count-1; i++ {
		cut := start + span
		if cut >= len(script) {
			cut = len(script)
		} else {
			cut = nudgeBoundary(script, cut)
		}
		// a nudged cut must leave at least one byte for every chunk
		// still to come, or trailing chunks come out empty
		if max := len(script) - (count - 1 - i); cut > max {
			cut = max
			for cut > start+1 && !utf8.RuneStart(script[cut]) {
				cut--
			}
		}
		chunks = append(chunks, Chunk{Index: i, Text: script[start:cut]})
		start = cut
	}
	chunks = append(chunks, Chunk{Index: count - 1, Text: script[start:]})

	return &Plan{Chunks: chunks, Separator: ""}
}

// nudgeBoundary moves pos forward past the next sentence terminator or
// newline within the scan window, or to the next rune boundary when none
// is found (forced cut).
func nudgeBoundary(script string, pos int) int {
	limit := pos + maxBoundaryScan
	if limit > len(script) {
		limit = len(script)
	}
	for i := pos; i < limit; i++ {
		switch script[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	// Forced cut: advance to the next rune boundary so multi-byte
	// characters are never split.
	for pos < len(script) && !utf8.RuneStart(script[pos]) {
		pos++
	}
	return pos
}
