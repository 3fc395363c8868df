package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/models"
	"github.com/bnema/adblock-engine/internal/preprocessor"
)

// maxLineSize is the longest line the parser accepts.  Some lists embed long
// scriptlet arguments.
const maxLineSize = 1 << 20

// Config selects the kinds of filters kept by the parser
type Config struct {
	Debug                       bool
	LoadNetworkFilters          bool
	LoadCosmeticFilters         bool
	LoadGenericCosmeticsFilters bool
	LoadPreprocessors           bool
}

// Result is the outcome of parsing a list
type Result struct {
	NetworkFilters  []*filters.NetworkFilter
	CosmeticFilters []*filters.CosmeticFilter

	// Preprocessors only contains conditions gating at least one filter.
	Preprocessors []*preprocessor.Preprocessor

	NotSupported []NotSupported
}

// NotSupported describes a rejected line
type NotSupported struct {
	Filter     string
	Reason     string
	LineNumber int
	Type       models.FilterType
}

// Reasons of rejected lines
const (
	ReasonInvalidNetwork  = "invalid-network"
	ReasonInvalidCosmetic = "invalid-cosmetic"
	ReasonAdGuard         = "adguard-only (#$#, #%#, #?#, $$)"
	ReasonGenericCosmetic = "generic-cosmetic (disabled)"
)

// Parser parses ABP/uBlock filter lists
type Parser struct {
	conf  *Config
	stats Stats
}

// Stats tracks parsing statistics
type Stats struct {
	Total        int
	Network      int
	Exception    int
	Cosmetic     int
	Comments     int
	Preprocessor int
	Unsupported  int
	SkipReasons  map[string]int // Detailed breakdown of skipped filters
}

// New creates a new parser
func New(conf *Config) *Parser {
	return &Parser{
		conf: conf,
		stats: Stats{
			SkipReasons: make(map[string]int),
		},
	}
}

// Stats returns parsing statistics accumulated over every parsed list
func (p *Parser) Stats() Stats {
	return p.stats
}

// Parse reads a filter list
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading list: %w", err)
	}

	return p.parseLines(lines), nil
}

// ParseString parses a filter list held in memory
func (p *Parser) ParseString(list string) *Result {
	return p.parseLines(strings.Split(list, "\n"))
}

// Parse parses list with a fresh parser
func Parse(list string, conf *Config) *Result {
	return New(conf).ParseString(list)
}

// skip records a rejected line with reason
func (p *Parser) skip(res *Result, lineNumber int, line string, typ models.FilterType, reason string) {
	p.stats.Unsupported++
	p.stats.SkipReasons[reason]++
	res.NotSupported = append(res.NotSupported, NotSupported{
		Filter:     line,
		Reason:     reason,
		LineNumber: lineNumber,
		Type:       typ,
	})
}

// parseLines parses the lines of a list
func (p *Parser) parseLines(lines []string) *Result {
	res := &Result{}

	var stack, done []*preprocessor.Preprocessor
	gate := func(id uint32) {
		if len(stack) > 0 {
			stack[len(stack)-1].FilterIDs[id] = struct{}{}
		}
	}

	for i := 0; i < len(lines); i++ {
		lineNumber := i
		line := strings.TrimLeft(lines[i], " \t\r")
		line, i = joinContinuations(lines, line, i)
		line = strings.TrimSpace(line)

		typ := DetectFilterType(line, true)
		if typ != models.FilterTypeNotSupportedEmpty {
			p.stats.Total++
		}

		switch {
		case typ == models.FilterTypeNetwork && p.conf.LoadNetworkFilters:
			f := filters.ParseNetwork(line, p.conf.Debug)
			if f == nil {
				p.skip(res, lineNumber, line, typ, ReasonInvalidNetwork)

				continue
			}

			if f.IsException() {
				p.stats.Exception++
			} else {
				p.stats.Network++
			}

			res.NetworkFilters = append(res.NetworkFilters, f)
			gate(f.ID())
		case typ == models.FilterTypeCosmetic && p.conf.LoadCosmeticFilters:
			f := filters.ParseCosmetic(line, p.conf.Debug)
			if f == nil {
				p.skip(res, lineNumber, line, typ, ReasonInvalidCosmetic)

				continue
			}

			if !p.conf.LoadGenericCosmeticsFilters && f.IsGenericHide() {
				p.stats.SkipReasons[ReasonGenericCosmetic]++

				continue
			}

			p.stats.Cosmetic++
			res.CosmeticFilters = append(res.CosmeticFilters, f)
			gate(f.ID())
		case p.conf.LoadPreprocessors && p.handleDirective(line, &stack, &done):
			p.stats.Preprocessor++
		case typ == models.FilterTypeNotSupportedAdGuard:
			p.skip(res, lineNumber, line, typ, ReasonAdGuard)
		case typ == models.FilterTypeNotSupportedComment:
			p.stats.Comments++
		}
	}

	for _, pp := range done {
		if len(pp.FilterIDs) > 0 {
			res.Preprocessors = append(res.Preprocessors, pp)
		}
	}

	return res
}

// handleDirective applies a preprocessor directive to the stack of open
// conditions.  Closed conditions are appended to done.  ok is false if line
// is not a directive.
func (p *Parser) handleDirective(line string, stack, done *[]*preprocessor.Preprocessor) (ok bool) {
	switch preprocessor.Detect(line) {
	case preprocessor.DirectiveIf:
		cond := preprocessor.Condition(line)
		if n := len(*stack); n > 0 {
			cond = "(" + (*stack)[n-1].Condition + ")&&(" + cond + ")"
		}

		*stack = append(*stack, preprocessor.FromCondition(cond))
	case preprocessor.DirectiveElse, preprocessor.DirectiveEndif:
		n := len(*stack)
		if n == 0 {
			return true
		}

		last := (*stack)[n-1]
		*stack = (*stack)[:n-1]
		*done = append(*done, last)

		if preprocessor.Detect(line) == preprocessor.DirectiveElse {
			*stack = append(*stack, preprocessor.FromCondition("!("+last.Condition+")"))
		}
	default:
		return false
	}

	return true
}

// joinContinuations appends to line the continuation lines following lines[i]
// when line ends with " \".  A continuation line is indented by exactly four
// spaces.  It returns the joined line and the index of its last part.
func joinContinuations(lines []string, line string, i int) (joined string, last int) {
	if len(line) <= 2 {
		return line, i
	}

	for i < len(lines)-1 && strings.HasSuffix(line, ` \`) {
		line = line[:len(line)-2]

		next := lines[i+1]
		if len(next) <= 4 || next[:4] != "    " || next[4] == ' ' {
			break
		}

		line += next[4:]
		i++
	}

	return line, i
}

// LinesWithFilters returns the raw lines of the valid filters of list, each
// once, network filters first.
func LinesWithFilters(list string, conf Config) []string {
	conf.Debug = true
	res := Parse(list, &conf)

	seen := make(map[string]struct{}, len(res.NetworkFilters)+len(res.CosmeticFilters))
	var lines []string
	add := func(line string) {
		if _, ok := seen[line]; !ok {
			seen[line] = struct{}{}
			lines = append(lines, line)
		}
	}

	for _, f := range res.NetworkFilters {
		add(f.RawLine)
	}

	for _, f := range res.CosmeticFilters {
		add(f.RawLine)
	}

	return lines
}
