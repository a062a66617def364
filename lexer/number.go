package lexer

import "github.com/nyxlang/nyxc/token"

// numberState mirrors tokenizer.cpp's NumberState enum. Every valid
// terminal state maps to exactly one Lexeme; every other state that
// cannot reach a delimiter cleanly is reported as ILLEGAL, consuming the
// run up to the next delimiter rather than aborting the line.
type numberState int

const (
	nsError numberState = iota
	nsStart
	nsSign
	nsZero
	nsDecimal
	nsOctal
	nsOctalPattern
	nsBinaryStart
	nsBinary
	nsBinaryPattern
	nsHexStart
	nsHex
	nsHexPattern
	nsFractionStart
	nsFraction
	nsExponentStart
	nsExponentSign
	nsExponent
)

// scanNumber reproduces tokenizer.cpp's parseNumber state machine: from a
// leading '0' it branches into binary/hex/octal/fraction; a '*' at any
// digit position of an integer-base literal promotes it to that base's
// wildcard Pattern variant (used for byte-pattern literals, §4.1/§6).
func (l *Lexer) scanNumber(pos token.Position, start int) token.Token {
	i := start
	state := nsStart
	line := l.line

	advance := func() (byte, bool) {
		if i >= len(line) {
			return 0, false
		}
		c := line[i]
		i++
		return c, true
	}

	for {
		c, ok := advance()
		if !ok {
			break
		}
		switch state {
		case nsStart:
			switch {
			case c == '+' || c == '-':
				state = nsSign
			case c == '0':
				state = nsZero
			case c == '.':
				state = nsFractionStart
			case isDigit[c]:
				state = nsDecimal
			default:
				state = nsError
			}
		case nsSign:
			switch {
			case c == '0':
				state = nsZero
			case c == '.':
				state = nsFractionStart
			case isDigit[c]:
				state = nsDecimal
			default:
				state = nsError
			}
		case nsZero:
			switch {
			case c == 'b' || c == 'B':
				state = nsBinaryStart
			case c == 'x' || c == 'X':
				state = nsHexStart
			case c == '*':
				state = nsOctalPattern
			case c >= '0' && c <= '7':
				state = nsOctal
			case c == '.':
				state = nsFractionStart
			case c == 'e' || c == 'E':
				state = nsExponentStart
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsDecimal:
			switch {
			case isDigit[c]:
				state = nsDecimal
			case c == '.':
				state = nsFractionStart
			case c == 'e' || c == 'E':
				state = nsExponentStart
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsOctal:
			switch {
			case c >= '0' && c <= '7':
				state = nsOctal
			case c == '*':
				state = nsOctalPattern
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsOctalPattern:
			switch {
			case c >= '0' && c <= '7', c == '*':
				state = nsOctalPattern
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsBinaryStart:
			switch {
			case c == '0' || c == '1':
				state = nsBinary
			case c == '*':
				state = nsBinaryPattern
			default:
				state = nsError
			}
		case nsBinary:
			switch {
			case c == '0' || c == '1':
				state = nsBinary
			case c == '*':
				state = nsBinaryPattern
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsBinaryPattern:
			switch {
			case c == '0' || c == '1' || c == '*':
				state = nsBinaryPattern
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsHexStart:
			switch {
			case isHexDigit[c]:
				state = nsHex
			case c == '*':
				state = nsHexPattern
			default:
				state = nsError
			}
		case nsHex:
			switch {
			case isHexDigit[c]:
				state = nsHex
			case c == '*':
				state = nsHexPattern
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsHexPattern:
			switch {
			case isHexDigit[c] || c == '*':
				state = nsHexPattern
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsFractionStart:
			switch {
			case isDigit[c]:
				state = nsFraction
			default:
				state = nsError
			}
		case nsFraction:
			switch {
			case isDigit[c]:
				state = nsFraction
			case c == 'e' || c == 'E':
				state = nsExponentStart
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsExponentStart:
			switch {
			case c == '+' || c == '-':
				state = nsExponentSign
			case isDigit[c]:
				state = nsExponent
			default:
				state = nsError
			}
		case nsExponentSign:
			switch {
			case isDigit[c]:
				state = nsExponent
			default:
				state = nsError
			}
		case nsExponent:
			switch {
			case isDigit[c]:
				state = nsExponent
			case isDelimiter(c):
				i--
				goto done
			default:
				state = nsError
			}
		case nsError:
			if isDelimiter(c) {
				i--
				goto done
			}
			// keep consuming until a delimiter, per tokenizer.cpp
		}
	}

done:
	l.column = i
	text := line[start:i]
	kind := stateToKind(state)
	return token.Token{Kind: kind, Text: text, Pos: pos}
}

func stateToKind(state numberState) token.Kind {
	switch state {
	case nsZero, nsDecimal:
		return token.DecimalLiteral
	case nsOctal:
		return token.OctalLiteral
	case nsOctalPattern:
		return token.OctalPattern
	case nsBinary:
		return token.BinaryLiteral
	case nsBinaryPattern:
		return token.BinaryPattern
	case nsHex:
		return token.HexadecimalLiteral
	case nsHexPattern:
		return token.HexadecimalPattern
	case nsFraction, nsExponent:
		return token.FloatLiteral
	default:
		return token.ILLEGAL
	}
}
