package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/eventflux-io/engine/internal/core/errs"
	"github.com/eventflux-io/engine/internal/core/pattern"
)

// PatternStepSpec is one parsed pattern-chain step (spec §6:
// `FROM PATTERN ( e1=S1 -> e2=S2{m,n} -> not e3 within T )`). Alias is the
// name a SELECT clause's e1[i].col / e1.col reference binds to; Position is
// assigned left-to-right over the non-NOT steps only, matching
// pattern.Chain's position numbering.
type PatternStepSpec struct {
	Alias    string
	Stream   string
	Quant    pattern.Quantifier
	IsNot    bool
	NotDur   time.Duration
	Position int // -1 for NOT steps, which occupy no position
}

// ParsedPattern is a fully parsed `PATTERN ( ... )` clause, ready to drive a
// pattern.Builder once a scheduler is available.
type ParsedPattern struct {
	Every  bool
	Within time.Duration
	Steps  []PatternStepSpec
	// AliasPosition maps each non-NOT step's alias to its chain position,
	// for the SELECT translator to resolve `e1[...]`/`e1.col` references.
	AliasPosition map[string]int
}

// patternScanner tokenizes a PATTERN(...) body into whitespace/punctuation
// separated tokens, keeping `->`, `{`, `}`, `,`, `=`, `[`, `]`, `.` as their
// own tokens.
func patternScanner(body string) []string {
	var toks []string
	i := 0
	n := len(body)
	for i < n {
		c := body[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '-' && i+1 < n && body[i+1] == '>':
			toks = append(toks, "->")
			i += 2
		case strings.ContainsRune("{},=[].", rune(c)):
			toks = append(toks, string(c))
			i++
		default:
			j := i
			for j < n && !strings.ContainsRune(" \t\n\r{},=[].", rune(body[j])) && !(body[j] == '-' && j+1 < n && body[j+1] == '>') {
				j++
			}
			toks = append(toks, body[i:j])
			i = j
		}
	}
	return toks
}

type patternParser struct {
	toks []string
	pos  int
}

func (p *patternParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *patternParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *patternParser) expect(tok string) error {
	if !strings.EqualFold(p.next(), tok) {
		return errs.New(errs.ValidationFailed, "expected '"+tok+"' in PATTERN clause")
	}
	return nil
}

// ParsePattern parses the text between `PATTERN (` and its matching `)`
// (body does not include the parens).
func ParsePattern(body string) (*ParsedPattern, error) {
	p := &patternParser{toks: patternScanner(body)}
	pp := &ParsedPattern{AliasPosition: make(map[string]int)}

	if strings.EqualFold(p.peek(), "every") {
		pp.Every = true
		p.next()
	}

	position := 0
	for {
		if p.peek() == "" {
			break
		}
		step, err := p.parseStep(&position)
		if err != nil {
			return nil, err
		}
		pp.Steps = append(pp.Steps, *step)
		if step.Alias != "" {
			pp.AliasPosition[step.Alias] = step.Position
		}
		if strings.EqualFold(p.peek(), "within") && len(pp.Steps) == 1 {
			// WITHIN attached right after the first step binds the whole
			// chain's deadline (spec §4.3: "applied to the first step").
			p.next()
			d, err := p.parseDuration()
			if err != nil {
				return nil, err
			}
			pp.Within = d
		}
		if p.peek() == "->" {
			p.next()
			continue
		}
		break
	}
	if len(pp.Steps) == 0 {
		return nil, errs.New(errs.ValidationFailed, "PATTERN clause has no steps")
	}
	return pp, nil
}

func (p *patternParser) parseStep(position *int) (*PatternStepSpec, error) {
	if strings.EqualFold(p.peek(), "not") {
		p.next()
		stream := p.next()
		if stream == "" {
			return nil, errs.New(errs.ValidationFailed, "expected stream name after NOT")
		}
		if err := p.expect("within"); err != nil {
			return nil, err
		}
		d, err := p.parseDuration()
		if err != nil {
			return nil, err
		}
		return &PatternStepSpec{Stream: stream, IsNot: true, NotDur: d, Position: -1}, nil
	}

	alias := p.next()
	if alias == "" {
		return nil, errs.New(errs.ValidationFailed, "expected pattern step alias")
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}
	stream := p.next()
	if stream == "" {
		return nil, errs.New(errs.ValidationFailed, "expected stream name in pattern step")
	}
	quant := pattern.ExactlyOne
	if p.peek() == "{" {
		p.next()
		minTok := p.next()
		min, err := strconv.Atoi(minTok)
		if err != nil {
			return nil, errs.Wrap(errs.ValidationFailed, "malformed count quantifier", err)
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
		maxTok := p.next()
		var max int
		if maxTok == "}" {
			// `{m,}` — unbounded; the consumed token was actually '}'.
			max = 0
		} else {
			max, err = strconv.Atoi(maxTok)
			if err != nil {
				return nil, errs.Wrap(errs.ValidationFailed, "malformed count quantifier", err)
			}
			if err := p.expect("}"); err != nil {
				return nil, err
			}
		}
		quant = pattern.Quantifier{Min: min, Max: max}
	}
	step := &PatternStepSpec{Alias: alias, Stream: stream, Quant: quant, Position: *position}
	*position++
	return step, nil
}

var durationUnits = map[string]time.Duration{
	"ms": time.Millisecond, "millis": time.Millisecond, "msec": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
}

func (p *patternParser) parseDuration() (time.Duration, error) {
	tok := p.next()
	if tok == "" {
		return 0, errs.New(errs.ValidationFailed, "expected duration")
	}
	// A single Go-duration-shaped token, e.g. "5s" or "250ms".
	if d, err := time.ParseDuration(tok); err == nil {
		return d, nil
	}
	n, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, errs.New(errs.ValidationFailed, "malformed duration: "+tok)
	}
	unitTok := strings.ToLower(p.next())
	unit, ok := durationUnits[unitTok]
	if !ok {
		return 0, errs.New(errs.ValidationFailed, "unknown duration unit: "+unitTok)
	}
	return time.Duration(n * float64(unit)), nil
}

// extractPatternBody pulls the text between the first `PATTERN (` and its
// matching `)` out of a pattern query, returning that body and the text that
// holds the SELECT list: whatever follows the closing `)` (the
// `FROM PATTERN ( ... ) SELECT ...` form) or, when nothing follows it, the
// text before `FROM PATTERN` (the `SELECT ... FROM PATTERN ( ... )` form
// that an INSERT INTO target SELECT ... statement carries).
func extractPatternBody(selectText string) (body string, tail string, err error) {
	idx := fromPatternRe.FindStringIndex(selectText)
	if idx == nil {
		return "", "", errs.New(errs.ValidationFailed, "not a PATTERN query")
	}
	openParen := idx[1] - 1 // fromPatternRe's match ends on the '(' itself
	closeParen := matchingParen(selectText, openParen)
	if closeParen < 0 {
		return "", "", errs.New(errs.ValidationFailed, "unbalanced parens in PATTERN clause")
	}
	tail = selectText[closeParen+1:]
	if strings.TrimSpace(tail) == "" {
		tail = selectText[:idx[0]]
	}
	return selectText[openParen+1 : closeParen], tail, nil
}
