package preview

import "time"

// Status summarizes how a preview went.
type Status string

const (
	// StatusOK means every step succeeded and records were found.
	StatusOK Status = "ok"
	// StatusEmpty means every step succeeded but the source had no records.
	StatusEmpty Status = "empty"
	// StatusPartial means some step failed but something was collected.
	StatusPartial Status = "partial"
	// StatusFailed means nothing could be collected.
	StatusFailed Status = "failed"
	// StatusUnsupported means the source format was not recognized.
	StatusUnsupported Status = "unsupported"
)

// Result is the preview returned to the client. Type, Compression, Fields
// and Results follow the wire contract of the /fields endpoint: absent
// values are omitted, an empty result list is kept.
type Result struct {
	Type        Format       `json:"type"`
	Compression Compression  `json:"compression,omitempty"`
	Fields      []string     `json:"fields,omitzero"`
	Results     []Record     `json:"results,omitzero"`
	Status      Status       `json:"status"`
	Diagnostics []StepResult `json:"diagnostics,omitempty"`
	PreviewID   string       `json:"previewId,omitempty"`
	SampledAt   time.Time    `json:"sampledAt,omitzero"`
}

// Assemble builds the result for desc from what acc collected.
func Assemble(desc SourceDescriptor, acc *Accumulator, steps []StepResult) *Result {
	res := &Result{
		Type:        desc.Format,
		Compression: desc.Compression,
		Diagnostics: steps,
	}
	if acc != nil {
		res.Fields = acc.Fields()
		res.Results = acc.Results()
	}
	res.Status = summarize(desc, res, steps)
	return res
}

func summarize(desc SourceDescriptor, res *Result, steps []StepResult) Status {
	if !desc.Supported() {
		return StatusUnsupported
	}

	failed := 0
	for _, s := range steps {
		if !s.OK {
			failed++
		}
	}
	collected := len(res.Results) > 0 || len(res.Fields) > 0

	switch {
	case failed == 0 && len(res.Results) > 0:
		return StatusOK
	case failed == 0:
		return StatusEmpty
	case collected:
		return StatusPartial
	default:
		return StatusFailed
	}
}
