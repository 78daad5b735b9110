// Package ascii implements the token stream shared by the ascii dump and load
// routines of the tableau, model and simplex packages.
//
// Dumps are whitespace-delimited sequences of tags and values, written in a
// fixed order. They are meant for round trips and debugging, not for
// exchanging data with other tools.
package ascii

import (
	"bufio"
	"io"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

// ErrBadFormat is returned (wrapped) when a dump cannot be parsed.
var ErrBadFormat = errors.New("ascii: bad dump format")

// Reader hands out the whitespace-separated tokens of a dump.
type Reader struct {
	s *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1<<26)
	s.Split(bufio.ScanWords)
	return &Reader{s: s}
}

// Token returns the next token.
func (r *Reader) Token() (string, error) {
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return "", errors.Wrap(err, "ascii: read")
		}
		return "", errors.Wrap(ErrBadFormat, "unexpected end of input")
	}
	return r.s.Text(), nil
}

// Expect consumes len(words) tokens and checks they match words in order.
func (r *Reader) Expect(words ...string) error {
	for _, w := range words {
		tok, err := r.Token()
		if err != nil {
			return err
		}
		if tok != w {
			return errors.Wrapf(ErrBadFormat, "expected %q, found %q", w, tok)
		}
	}
	return nil
}

// Int reads a decimal int.
func (r *Reader) Int() (int, error) {
	tok, err := r.Token()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(ErrBadFormat, "expected an integer, found %q", tok)
	}
	return n, nil
}

// NonNegInt reads a decimal int and rejects negative values.
func (r *Reader) NonNegInt() (int, error) {
	n, err := r.Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Wrapf(ErrBadFormat, "unexpected negative value %d", n)
	}
	return n, nil
}

// BigInt reads an arbitrary-precision integer into z.
func (r *Reader) BigInt(z *big.Int) error {
	tok, err := r.Token()
	if err != nil {
		return err
	}
	if _, ok := z.SetString(tok, 10); !ok {
		return errors.Wrapf(ErrBadFormat, "expected a big integer, found %q", tok)
	}
	return nil
}

// Bool reads a "true"/"false" token.
func (r *Reader) Bool() (bool, error) {
	tok, err := r.Token()
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(tok)
	if err != nil {
		return false, errors.Wrapf(ErrBadFormat, "expected a boolean, found %q", tok)
	}
	return b, nil
}
