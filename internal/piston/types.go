package piston

// Language is a language identifier understood by the execution service.
type Language string

const (
	Python Language = "python"
	Cpp    Language = "cpp"
)

// DefaultLanguage is selected for new workspaces.
const DefaultLanguage = Cpp

// wildcardVersion asks the service for its newest installed runtime.
const wildcardVersion = "*"

// File is one source file in an execution request.
type File struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// ExecuteRequest is the body of a POST to the execute endpoint.
type ExecuteRequest struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Files    []File `json:"files"`
	Stdin    string `json:"stdin"`
}

// StageResult is the outcome of the compile or run stage of a job.
type StageResult struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

// ExitCode returns the stage's exit code, treating a missing code as 0.
func (s *StageResult) ExitCode() int {
	if s == nil || s.Code == nil {
		return 0
	}
	return *s.Code
}

// Signaled reports whether the stage was terminated by a signal.
func (s *StageResult) Signaled() bool {
	return s != nil && s.Signal != nil && *s.Signal != ""
}

// ExecuteResponse is the decoded body of a successful execute call.
// Run is nil when the service did not report a run stage.
type ExecuteResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Run      *StageResult `json:"run"`
	Compile  *StageResult `json:"compile,omitempty"`
}

// Outcome pairs the result of one Execute call with its error.
// Err != nil means the call failed before a usable response was obtained.
type Outcome struct {
	Response *ExecuteResponse
	Err      error
}
