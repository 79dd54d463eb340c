package assist

import (
	"errors"
	"fmt"
)

// Collaborator failure classes. Gateway implementations wrap these so callers
// can branch on the failing collaborator without string matching.
var (
	ErrTranscription   = errors.New("transcription failed")
	ErrAnalysis        = errors.New("analysis failed")
	ErrRecommendation  = errors.New("recommendation failed")
	ErrReplyGeneration = errors.New("reply generation failed")
)

// Pipeline stage names carried by TurnError.
const (
	StageTranscribe     = "transcribe"
	StageLogUser        = "log_user"
	StageAnalyze        = "analyze"
	StageLogInteraction = "log_interaction"
	StageRecommend      = "recommend"
	StageReply          = "reply"
	StageLogAI          = "log_ai"
)

// TurnError wraps a failure with the pipeline stage it occurred in. The turn
// is never partially retried: entries already flushed stay durable, and the
// caller surfaces the error without touching prior state.
type TurnError struct {
	Stage string
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed at %s: %v", e.Stage, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// LogWrite reports whether the failure happened writing one of the log stores.
// Past that point the session's logged state can no longer be trusted, so the
// session must be torn down and reset before further turns.
func (e *TurnError) LogWrite() bool {
	switch e.Stage {
	case StageLogUser, StageLogInteraction, StageLogAI:
		return true
	}
	return false
}

func turnErr(stage string, err error) *TurnError {
	return &TurnError{Stage: stage, Err: err}
}
