package preview

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// streamRows reads CSV from r. The first record is the header row; every
// later row becomes a record keyed by header name. Blank lines are skipped
// by the csv reader. Parsing stops as soon as acc is full, so rows past
// the sample are never requested from the parser.
func streamRows(r io.Reader, acc *Accumulator, done *completion) {
	if acc.Full() {
		done.settle(TerminationCapped, nil)
		return
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		done.settle(TerminationExhausted, nil)
		return
	}
	if err != nil {
		done.settle(TerminationFailed, csvErr(err))
		return
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			done.settle(TerminationExhausted, nil)
			return
		}
		if err != nil {
			done.settle(TerminationFailed, csvErr(err))
			return
		}

		acc.Observe(rowRecord(header, row))
		if acc.Full() {
			done.settle(TerminationCapped, nil)
			return
		}
	}
}

// rowRecord keys row by header position. Values past the header are
// dropped; header columns past the end of the row are left out.
func rowRecord(header, row []string) Record {
	rec := NewRecord()
	for i, name := range header {
		if i >= len(row) {
			break
		}
		rec.Set(name, row[i])
	}
	return rec
}

// csvErr tags parse errors as ErrInvalidCSV and leaves reader errors alone.
func csvErr(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	return err
}
