package schema

import "fmt"

var scalarKeywords = map[string]ScalarType{
	"double":   TDouble,
	"float":    TFloat,
	"int32":    TInt32,
	"int64":    TInt64,
	"uint32":   TUint32,
	"uint64":   TUint64,
	"fixed32":  TFixed32,
	"fixed64":  TFixed64,
	"bool":     TBool,
	"string":   TString,
	"bytes":    TBytes,
	"sfixed32": TSFixed32,
	"sfixed64": TSFixed64,
	"sint32":   TSInt32,
	"sint64":   TSInt64,
}

var labelKeywords = map[string]Label{
	"optional": LabelOptional,
	"required": LabelRequired,
	"repeated": LabelRepeated,
}

// parser is a recursive-descent parser for the broker's restricted proto3
// subset: an optional `syntax`, an optional `package`, and one or more
// `message` blocks. Unknown top-level statements (`option`, `import`,
// `service`, ...) are skipped whole, so schema files written for a fuller
// proto3 toolchain still parse here.
type parser struct {
	lex    *lexer
	cur    token
	source string
}

func newParser(source string) *parser {
	p := &parser{lex: newLexer(source), source: source}
	p.advance()
	return p
}

func (p *parser) advance() {
	p.cur = p.lex.next()
}

func (p *parser) atPunct(s string) bool {
	return p.cur.kind == tokPunct && p.cur.text == s
}

func (p *parser) err(kind error) error {
	return fmt.Errorf("%w (line %d)", kind, p.cur.line)
}

// parseFile parses the whole source text and returns every message
// definition it declares.
func (p *parser) parseFile() ([]*MessageDef, error) {
	var defs []*MessageDef
	for p.cur.kind != tokEOF {
		if p.cur.kind != tokIdent {
			p.advance() // stray punctuation between statements
			continue
		}
		switch p.cur.text {
		case "syntax":
			if err := p.parseSyntax(); err != nil {
				return nil, err
			}
		case "package":
			if err := p.parsePackage(); err != nil {
				return nil, err
			}
		case "message":
			def, err := p.parseMessage()
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		default:
			p.skipUnknownStatement()
		}
	}
	return defs, nil
}

func (p *parser) parseSyntax() error {
	p.advance() // 'syntax'
	if !p.atPunct("=") {
		return p.err(ErrExpectedSyntaxVersion)
	}
	p.advance()
	if p.cur.kind != tokString {
		return p.err(ErrExpectedSyntaxVersion)
	}
	p.advance()
	if !p.atPunct(";") {
		return p.err(ErrExpectedSyntaxVersion)
	}
	p.advance()
	return nil
}

func (p *parser) parsePackage() error {
	p.advance() // 'package'
	if p.cur.kind != tokIdent || !dottedIdent(p.cur.text) {
		return p.err(ErrExpectedPackageName)
	}
	p.advance()
	if !p.atPunct(";") {
		return p.err(ErrExpectedPackageName)
	}
	p.advance()
	return nil
}

func (p *parser) parseMessage() (*MessageDef, error) {
	p.advance() // 'message'
	if p.cur.kind != tokIdent {
		return nil, p.err(ErrUnexpectedToken)
	}
	name := p.cur.text
	p.advance()
	if !p.atPunct("{") {
		return nil, p.err(ErrUnexpectedToken)
	}
	p.advance()

	var fields []FieldDef
	for !p.atPunct("}") {
		if p.cur.kind == tokEOF {
			return nil, p.err(ErrUnexpectedToken)
		}
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	p.advance() // '}'
	return newMessageDef(name, p.source, fields), nil
}

func (p *parser) parseField() (FieldDef, error) {
	label := LabelOptional
	if p.cur.kind == tokIdent {
		if l, ok := labelKeywords[p.cur.text]; ok {
			label = l
			p.advance()
		}
	}

	if p.cur.kind != tokIdent {
		return FieldDef{}, p.err(ErrExpectedFieldType)
	}
	var typ ScalarType
	var typeName string
	if st, ok := scalarKeywords[p.cur.text]; ok {
		typ = st
	} else {
		typ = TMessage
		typeName = p.cur.text
	}
	p.advance()

	if p.cur.kind != tokIdent {
		return FieldDef{}, p.err(ErrExpectedFieldName)
	}
	name := p.cur.text
	p.advance()

	if !p.atPunct("=") {
		return FieldDef{}, p.err(ErrUnexpectedToken)
	}
	p.advance()

	tag, ok := p.cur.asInt()
	if !ok || tag <= 0 {
		return FieldDef{}, p.err(ErrExpectedFieldTag)
	}
	p.advance()

	if !p.atPunct(";") {
		return FieldDef{}, p.err(ErrUnexpectedToken)
	}
	p.advance()

	return FieldDef{Name: name, Tag: uint32(tag), Type: typ, Label: label, TypeName: typeName}, nil
}

// skipUnknownStatement steps over a top-level statement this parser does
// not recognize (`option ...;`, `import ...;`, a `service { ... }` block),
// so schema files written for a fuller proto3 toolchain still parse.
func (p *parser) skipUnknownStatement() {
	p.advance() // the unrecognized keyword itself
	depth := 0
	for p.cur.kind != tokEOF {
		switch {
		case p.atPunct("{"):
			depth++
		case p.atPunct("}"):
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		case p.atPunct(";") && depth == 0:
			p.advance()
			return
		}
		p.advance()
	}
}
