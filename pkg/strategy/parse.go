package strategy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Parse errors
var (
	ErrUnknownCommand   = errors.New("unrecognized command")
	ErrAmbiguousCommand = errors.New("ambiguous command")
)

// AmbiguousError lists the ops an abbreviated input could stand for.
type AmbiguousError struct {
	Input      string
	Candidates []Op
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous command %q (%d candidates)", e.Input, len(e.Candidates))
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousCommand
}

// Command is a parsed input line.
type Command struct {
	Op    Op
	Args  []string // placeholder values in pattern order
	Words []string // the line with keywords expanded to their full form
	Raw   string
}

// Keyword returns the first expanded word of the command.
func (c Command) Keyword() string {
	if len(c.Words) == 0 {
		return ""
	}
	return c.Words[0]
}

// Arg returns argument i, or "" when absent.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

type match struct {
	rule  *rule
	score int
	args  []string
	words []string
}

// Parse matches line against the profile grammar. Keywords may be abbreviated
// to any prefix; an exact keyword scores higher than a prefix. The best scoring
// rule wins, rules allowed in view are preferred, and a tie between different
// ops is reported as ambiguous.
func (s *Strategy) Parse(line string, view model.View) (Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Command{}, ErrUnknownCommand
	}

	var allowed, other []match
	for i := range s.rules {
		m, ok := matchRule(&s.rules[i], tokens)
		if !ok {
			continue
		}
		if s.Allowed(m.rule.op, view) {
			allowed = append(allowed, m)
		} else {
			other = append(other, m)
		}
	}

	candidates := allowed
	if len(candidates) == 0 {
		candidates = other
	}
	if len(candidates) == 0 {
		return Command{}, ErrUnknownCommand
	}

	best := candidates[0]
	for _, m := range candidates[1:] {
		if m.score > best.score {
			best = m
		}
	}
	var ops []Op
	for _, m := range candidates {
		if m.score == best.score {
			ops = appendOp(ops, m.rule.op)
		}
	}
	if len(ops) > 1 {
		return Command{}, &AmbiguousError{Input: strings.TrimSpace(line), Candidates: ops}
	}

	return Command{
		Op:    best.rule.op,
		Args:  best.args,
		Words: best.words,
		Raw:   strings.TrimSpace(line),
	}, nil
}

func appendOp(ops []Op, op Op) []Op {
	for _, o := range ops {
		if o == op {
			return ops
		}
	}
	return append(ops, op)
}

func matchRule(rl *rule, tokens []string) (match, bool) {
	m := match{rule: rl}
	ti := 0
	for pi, elem := range rl.pattern {
		switch elem {
		case "<*>", "<?>":
			if pi != len(rl.pattern)-1 {
				return m, false
			}
			rest := tokens[ti:]
			if elem == "<*>" && len(rest) == 0 {
				return m, false
			}
			if len(rest) > 0 {
				joined := strings.Join(rest, " ")
				m.args = append(m.args, joined)
				m.words = append(m.words, rest...)
			}
			return m, true
		}

		if ti >= len(tokens) {
			return m, false
		}
		tok := tokens[ti]
		ti++

		switch elem {
		case "<w>":
			m.args = append(m.args, tok)
			m.words = append(m.words, tok)
		case "<n>":
			if _, err := strconv.ParseUint(tok, 10, 32); err != nil {
				return m, false
			}
			m.args = append(m.args, tok)
			m.words = append(m.words, tok)
		case "<ip>":
			if !util.IsValidIPv4(tok) {
				return m, false
			}
			m.args = append(m.args, tok)
			m.words = append(m.words, tok)
		default:
			lt := strings.ToLower(tok)
			switch {
			case lt == elem:
				m.score += 2
			case strings.HasPrefix(elem, lt):
				m.score++
			default:
				return m, false
			}
			m.words = append(m.words, elem)
		}
	}
	return m, ti == len(tokens)
}
