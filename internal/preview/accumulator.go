package preview

import "sync"

// SampleSize is the maximum number of records in a preview.
const SampleSize = 10

// Accumulator collects the fields and sample records of one preview.
// It is owned by a single request and passed explicitly to the extractor
// that fills it.
type Accumulator struct {
	mu        sync.Mutex
	limit     int
	union     bool
	fields    []string
	fieldSeen map[string]struct{}
	results   []Record
}

// NewAccumulator returns an accumulator capped at limit records. When union
// is true, fields collects every key seen across records in first-seen
// order; otherwise fields holds the keys of the most recent record.
func NewAccumulator(limit int, union bool) *Accumulator {
	if limit <= 0 || limit > SampleSize {
		limit = SampleSize
	}
	return &Accumulator{limit: limit, union: union}
}

// begin marks results as present, so an extractor that ran but found
// nothing reports an empty list rather than an absent one.
func (a *Accumulator) begin() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.results == nil {
		a.results = make([]Record, 0, a.limit)
	}
}

// Observe updates fields from rec and appends it. It returns false without
// changing anything once the accumulator is full.
func (a *Accumulator) Observe(rec Record) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.results) >= a.limit {
		return false
	}

	keys := recordKeys(rec)
	if a.union {
		if a.fieldSeen == nil {
			a.fieldSeen = make(map[string]struct{})
			a.fields = make([]string, 0, len(keys))
		}
		for _, k := range keys {
			if _, ok := a.fieldSeen[k]; !ok {
				a.fieldSeen[k] = struct{}{}
				a.fields = append(a.fields, k)
			}
		}
	} else {
		a.fields = keys
	}

	a.results = append(a.results, rec)
	return true
}

// Append adds rec to the results without touching fields.
func (a *Accumulator) Append(rec Record) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.results) >= a.limit {
		return false
	}
	a.results = append(a.results, rec)
	return true
}

// SetFields replaces the field list.
func (a *Accumulator) SetFields(names []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fields = names
}

// Full reports whether the record cap has been reached.
func (a *Accumulator) Full() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results) >= a.limit
}

// Len returns the number of collected records.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Fields returns the current field list, or nil if none was observed.
func (a *Accumulator) Fields() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fields == nil {
		return nil
	}
	out := make([]string, len(a.fields))
	copy(out, a.fields)
	return out
}

// Results returns the collected records, or nil if no extractor ran.
func (a *Accumulator) Results() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.results == nil {
		return nil
	}
	out := make([]Record, len(a.results))
	copy(out, a.results)
	return out
}
