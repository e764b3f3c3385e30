package wire

import (
	"fmt"
	"strings"

	"pilotcsp.dev/pilot/pkg/transport"
)

// MaxFormatLen bounds the number of terms a single format string may
// contain (spec §8, "55 format terms... rejected"; original PI_MAX_FORMATLEN).
const MaxFormatLen = 50

// Error is what the parser raises; it carries a Reason matching one of the
// pilot.Code names so the caller (package pilot) can translate it without
// wire depending on pilot (which would create an import cycle).
type Error struct {
	Reason string
	Msg    string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Reason, e.Msg) }

func errf(reason, format string, a ...any) *Error {
	return &Error{Reason: reason, Msg: fmt.Sprintf(format, a...)}
}

type countKind int

const (
	countScalar countKind = iota
	countFixed
	countStar
	countVar
)

var opTokens = []struct {
	tok  string
	code int
}{
	{"mop", transport.OpUser},
	{"min", transport.OpMin},
	{"max", transport.OpMax},
	{"&&", transport.OpLAnd},
	{"||", transport.OpLOr},
	{"^^", transport.OpLXor},
	{"+", transport.OpSum},
	{"*", transport.OpProd},
	{"&", transport.OpBAnd},
	{"|", transport.OpBOr},
	{"^", transport.OpBXor},
}

var typeTokens = []struct {
	tok   string
	ctype CType
}{
	{"hhu", CTypeUnsignedChar},
	{"lld", CTypeLongLong},
	{"lli", CTypeLongLong},
	{"llu", CTypeUnsignedLongLong},
	{"hd", CTypeShort},
	{"hi", CTypeShort},
	{"hu", CTypeUnsignedShort},
	{"ld", CTypeLong},
	{"li", CTypeLong},
	{"lu", CTypeUnsignedLong},
	{"lf", CTypeDouble},
	{"Lf", CTypeLongDouble},
	{"b", CTypeByte},
	{"c", CTypeChar},
	{"d", CTypeInt},
	{"i", CTypeInt},
	{"u", CTypeUnsigned},
	{"f", CTypeFloat},
	{"m", CTypeUserDefined},
	{"s", CTypeChar},
}

type parser struct {
	format string
	pos    int
	args   []any
	argPos int
	ctx    IOContext
	terms  int
}

// Parse compiles format against args in the given binding context,
// producing the per-message descriptor vector described in spec §4.2.
func Parse(ctx IOContext, format string, args []any) ([]Descriptor, error) {
	if format == "" {
		return nil, errf("NullFormat", "empty format string")
	}
	p := &parser{format: format, args: args, ctx: ctx}
	var out []Descriptor
	for p.pos < len(p.format) {
		c := p.format[p.pos]
		if c == ' ' || c == '\t' || c == '\n' {
			p.pos++
			continue
		}
		if c != '%' {
			p.pos++ // literal text is ignored, consistent with "ws | term"
			continue
		}
		p.terms++
		if p.terms > MaxFormatLen {
			return nil, errf("FormatArgs", "format exceeds %d terms", MaxFormatLen)
		}
		ds, err := p.term()
		if err != nil {
			return nil, err
		}
		out = append(out, ds...)
	}
	if p.argPos != len(p.args) {
		return nil, errf("FormatArgs", "format consumed %d arguments, %d supplied", p.argPos, len(p.args))
	}
	return out, nil
}

func (p *parser) peekMatch(opts []string) (string, bool) {
	for _, tok := range opts {
		if strings.HasPrefix(p.format[p.pos:], tok) {
			return tok, true
		}
	}
	return "", false
}

func (p *parser) nextArg() (any, error) {
	if p.argPos >= len(p.args) {
		return nil, errf("FormatArgs", "too few arguments for format")
	}
	a := p.args[p.argPos]
	p.argPos++
	return a, nil
}

// term parses one "%" ... type unit, returning the one or two descriptors
// it produces.
func (p *parser) term() ([]Descriptor, error) {
	p.pos++ // consume '%'

	var op transport.ReduceOp
	haveOp := false
	for _, o := range opTokens {
		if strings.HasPrefix(p.format[p.pos:], o.tok) && p.pos+len(o.tok) < len(p.format) && p.format[p.pos+len(o.tok)] == '/' {
			haveOp = true
			op.Code = o.code
			if o.code == transport.OpUser {
				handle, err := p.nextArg()
				if err != nil {
					return nil, err
				}
				userOp, ok := handle.(transport.ReduceOp)
				if !ok {
					return nil, errf("OpInvalid", "mop requires a transport.ReduceOp argument")
				}
				op = userOp
			}
			p.pos += len(o.tok) + 1 // token + '/'
			break
		}
	}

	kind := countScalar
	fixedN := 0
	switch {
	case p.pos < len(p.format) && p.format[p.pos] == '*':
		kind = countStar
		p.pos++
	case p.pos < len(p.format) && p.format[p.pos] == '^':
		kind = countVar
		p.pos++
	default:
		start := p.pos
		for p.pos < len(p.format) && p.format[p.pos] >= '0' && p.format[p.pos] <= '9' {
			p.pos++
		}
		if p.pos > start {
			kind = countFixed
			fmt.Sscanf(p.format[start:p.pos], "%d", &fixedN)
		}
	}

	tok, ctype, ok := p.matchType()
	if !ok {
		return nil, errf("FormatInvalid", "unrecognized type at %q", p.format[p.pos:])
	}
	p.pos += len(tok)

	if tok == "s" {
		if haveOp || kind != countScalar {
			return nil, errf("FormatInvalid", "%%s takes no length prefix or reduce op")
		}
		return p.bindString()
	}

	if kind == countVar {
		if haveOp {
			return nil, errf("OpInvalid", "variable-length arrays cannot carry a reduce op")
		}
		return p.bindVariable(ctype)
	}

	if kind == countFixed && (fixedN == 0 || fixedN == 1) {
		return nil, errf("ArrayLength", "array length must be >= 2, got %d", fixedN)
	}

	if tok == "m" {
		handle, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		if _, ok := handle.(transport.DataType); !ok {
			return nil, errf("OpMissing", "%%m requires a transport.DataType handle argument")
		}
	}

	return p.bindFixedOrScalar(ctype, kind, fixedN, op)
}

func (p *parser) matchType() (string, CType, bool) {
	for _, t := range typeTokens {
		if strings.HasPrefix(p.format[p.pos:], t.tok) {
			return t.tok, t.ctype, true
		}
	}
	return "", CTypeInvalid, false
}

func (p *parser) bindFixedOrScalar(ctype CType, kind countKind, fixedN int, op transport.ReduceOp) ([]Descriptor, error) {
	count := 1
	if kind == countStar {
		lenArg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		n, ok := asInt(lenArg)
		if !ok {
			return nil, errf("FormatArgs", "'*' length argument must be an integer")
		}
		count = n
	} else if kind == countFixed {
		count = fixedN
	}

	arg, err := p.nextArg()
	if err != nil {
		return nil, err
	}

	d := Descriptor{Count: count, CType: ctype, Op: op}
	if p.ctx == Values {
		if count == 1 {
			d.Value = narrowValue(ctype, arg)
		} else {
			d.Value = arg // caller-owned array, taken by reference
		}
	} else {
		if _, ok := validatePointer(arg); !ok && count == 1 {
			return nil, errf("BogusPointerArg", "scalar read target must be a non-nil pointer")
		}
		d.Value = arg
	}
	return []Descriptor{d}, nil
}

func (p *parser) bindVariable(ctype CType) ([]Descriptor, error) {
	if p.ctx == Values {
		lenArg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		n, ok := asInt(lenArg)
		if !ok {
			return nil, errf("FormatArgs", "'^' length argument must be an integer")
		}
		dataArg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		return []Descriptor{
			{IsSendCount: true, Value: n, Count: 1, CType: CTypeInt},
			{Value: dataArg, Count: n, CType: ctype, Variable: true},
		}, nil
	}

	lenArg, err := p.nextArg()
	if err != nil {
		return nil, err
	}
	if _, ok := validatePointer(lenArg); !ok {
		return nil, errf("BogusPointerArg", "'^' length target must be a non-nil *int")
	}
	dataArg, err := p.nextArg()
	if err != nil {
		return nil, err
	}
	if _, ok := validatePointer(dataArg); !ok {
		return nil, errf("BogusPointerArg", "'^' data target must be a non-nil pointer to slice")
	}
	return []Descriptor{
		{IsSendCount: true, Value: lenArg, Count: 1, CType: CTypeInt},
		{Value: dataArg, CType: ctype, Variable: true},
	}, nil
}

func (p *parser) bindString() ([]Descriptor, error) {
	if p.ctx == Values {
		s, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		str, ok := s.(string)
		if !ok {
			return nil, errf("FormatArgs", "%%s requires a string argument")
		}
		return []Descriptor{
			{IsSendCount: true, Value: len(str) + 1, Count: 1, CType: CTypeInt, IsString: true},
			{Value: str, Count: len(str) + 1, CType: CTypeChar, Variable: true, IsString: true},
		}, nil
	}

	target, err := p.nextArg()
	if err != nil {
		return nil, err
	}
	if _, ok := validatePointer(target); !ok {
		return nil, errf("BogusPointerArg", "%%s read target must be a non-nil *string")
	}
	return []Descriptor{
		{IsSendCount: true, Variable: true, IsString: true, CType: CTypeInt},
		{Value: target, CType: CTypeChar, Variable: true, IsString: true},
	}, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
