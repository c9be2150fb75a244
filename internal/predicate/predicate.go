// Package predicate implements the WHERE-clause grammar and
// type-directed evaluator described in SPEC_FULL.md §6.
package predicate

import (
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"

	"coredb/internal/coltype"
	"coredb/internal/dberr"
	"coredb/internal/rowcodec"
	"coredb/internal/schema"
)

// Op is a comparison operator usable in a Single predicate.
type Op string

const (
	Eq   Op = "="
	Neq  Op = "!="
	Gt   Op = ">"
	Lt   Op = "<"
	Gte  Op = ">="
	Lte  Op = "<="
	Like Op = "LIKE"
)

// Predicate is the WHERE-clause grammar: nil means "no filter" (None).
type Predicate interface {
	isPredicate()
}

// Single compares one column against a literal.
type Single struct {
	Column  string
	Op      Op
	Literal string
}

// And is the conjunction of two predicates.
type And struct{ Left, Right Predicate }

// Or is the disjunction of two predicates.
type Or struct{ Left, Right Predicate }

func (Single) isPredicate() {}
func (And) isPredicate()    {}
func (Or) isPredicate()     {}

// Eval reports whether row, under schema s, satisfies p. A nil p always
// matches. A Single naming a column missing from the schema or the row
// is a hard error, as is an unrecognized operator or node type; type
// mismatches and non-VARCHAR LIKE both evaluate to false (SPEC_FULL.md
// §9 Open Question 4).
func Eval(p Predicate, row rowcodec.Row, s schema.Schema) (bool, error) {
	switch pr := p.(type) {
	case nil:
		return true, nil
	case Single:
		return evalSingle(pr, row, s)
	case And:
		l, err := Eval(pr.Left, row, s)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return Eval(pr.Right, row, s)
	case Or:
		l, err := Eval(pr.Left, row, s)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return Eval(pr.Right, row, s)
	default:
		return false, dberr.Newf(dberr.KindInvalidSchema, "unknown predicate node %T", p)
	}
}

func evalSingle(pr Single, row rowcodec.Row, s schema.Schema) (bool, error) {
	colType, ok := s.ColumnType(pr.Column)
	if !ok {
		return false, dberr.Newf(dberr.KindMissingColumn, "unknown column %q in predicate", pr.Column)
	}
	actual, ok := row[pr.Column]
	if !ok {
		return false, dberr.Newf(dberr.KindMissingColumn, "row missing column %q", pr.Column)
	}

	if pr.Op == Like {
		if colType != coltype.Varchar {
			return false, nil
		}
		return likeMatch(actual, pr.Literal), nil
	}

	cmp, ok := compare(colType, actual, pr.Literal)
	if !ok {
		return false, nil
	}

	switch pr.Op {
	case Eq:
		return cmp == 0, nil
	case Neq:
		return cmp != 0, nil
	case Gt:
		return cmp > 0, nil
	case Lt:
		return cmp < 0, nil
	case Gte:
		return cmp >= 0, nil
	case Lte:
		return cmp <= 0, nil
	default:
		return false, dberr.Newf(dberr.KindInvalidSchema, "unknown operator %q", pr.Op)
	}
}

// compare returns (ordering, true) when both values coerce to t's
// comparison domain, or (0, false) when the literal cannot be coerced.
func compare(t coltype.Type, actual, literal string) (int, bool) {
	switch t {
	case coltype.Int, coltype.Timestamp:
		a, errA := parseOrdinal(t, actual)
		b, errB := parseOrdinal(t, literal)
		if errA != nil || errB != nil {
			return 0, false
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	case coltype.Boolean:
		a, errA := strconv.ParseBool(actual)
		b, errB := strconv.ParseBool(literal)
		if errA != nil || errB != nil {
			return 0, false
		}
		switch {
		case a == b:
			return 0, true
		case !a && b:
			return -1, true
		default:
			return 1, true
		}
	case coltype.Varchar:
		return strings.Compare(actual, literal), true
	default:
		return 0, false
	}
}

func parseOrdinal(t coltype.Type, text string) (int64, error) {
	if t == coltype.Int {
		return strconv.ParseInt(text, 10, 32)
	}
	return timestampMillis(text)
}

func timestampMillis(text string) (int64, error) {
	encoded, err := coltype.Encode(coltype.Timestamp, text)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(encoded)), nil
}

var likeEscaper = regexp.MustCompile(`[.+*?()|\[\]{}^$\\]`)

func likeMatch(value, pattern string) bool {
	escaped := likeEscaper.ReplaceAllString(pattern, `\$0`)
	regexPattern := "^" + strings.ReplaceAll(escaped, "%", ".*") + "$"
	re, err := regexp.Compile(regexPattern)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}
