package preview

// StepResult is the outcome of one network or parse step of a preview.
// Failed steps are not fatal: the preview keeps whatever other steps
// collected, and the step result says what went wrong.
type StepResult struct {
	Step        string      `json:"step"`
	OK          bool        `json:"ok"`
	Code        string      `json:"code,omitempty"`
	Message     string      `json:"message,omitempty"`
	Records     int         `json:"records"`
	BytesRead   int64       `json:"bytesRead,omitempty"`
	Termination Termination `json:"termination,omitempty"`

	Err error `json:"-"`
}

// fail marks the step failed with err.
func (s StepResult) fail(err error) StepResult {
	msg := MapError(err)
	s.OK = false
	s.Err = err
	s.Code = msg.Code
	s.Message = msg.Message
	if s.Termination == "" {
		s.Termination = TerminationFailed
	}
	return s
}

// finish records how a stream ended.
func (s StepResult) finish(reason Termination, err error) StepResult {
	s.Termination = reason
	if err != nil {
		return s.fail(err)
	}
	s.OK = true
	return s
}
