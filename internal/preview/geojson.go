package preview

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// streamFeatures reads a GeoJSON feature collection from r and observes
// the properties of each top-level feature in order. It stops reading as
// soon as acc is full; members other than "features" are skipped token by
// token so they are never held in memory as a whole.
func streamFeatures(r io.Reader, acc *Accumulator, done *completion) {
	if acc.Full() {
		done.settle(TerminationCapped, nil)
		return
	}

	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		done.settle(TerminationFailed, err)
		return
	}

	sawFeatures := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			done.settle(TerminationFailed, jsonErr(err))
			return
		}
		key, _ := tok.(string)
		if key != "features" {
			if err := skipValue(dec); err != nil {
				done.settle(TerminationFailed, err)
				return
			}
			continue
		}

		if err := expectDelim(dec, '['); err != nil {
			done.settle(TerminationFailed, err)
			return
		}
		sawFeatures = true

		for dec.More() {
			var feature struct {
				Properties json.RawMessage `json:"properties"`
			}
			if err := dec.Decode(&feature); err != nil {
				done.settle(TerminationFailed, jsonErr(err))
				return
			}
			rec, err := decodeRecord(feature.Properties)
			if err != nil {
				done.settle(TerminationFailed, err)
				return
			}
			acc.Observe(rec)
			if acc.Full() {
				done.settle(TerminationCapped, nil)
				return
			}
		}

		if err := expectDelim(dec, ']'); err != nil {
			done.settle(TerminationFailed, err)
			return
		}
	}

	if !sawFeatures {
		done.settle(TerminationFailed, fmt.Errorf("%w: features", ErrMissingMember))
		return
	}
	done.settle(TerminationExhausted, nil)
}

// expectDelim reads the next token and checks it is want.
func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return jsonErr(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrInvalidJSON, want, tok)
	}
	return nil
}

// skipValue consumes the next JSON value without decoding it.
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return jsonErr(err)
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}

// jsonErr tags decoder errors as ErrInvalidJSON. Errors from the underlying
// reader pass through so network failures keep their own code.
func jsonErr(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: unexpected end of input", ErrInvalidJSON)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return err
}
