package llmcall

import (
	"github.com/cedesk/cedesk/internal/defra"
	"github.com/cedesk/cedesk/internal/providers"
)

// Recorder handles fire-and-forget LLM call recording via a Sink.
type Recorder struct {
	sink *defra.Sink
}

// NewRecorder creates a new recorder.
func NewRecorder(sink *defra.Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record captures a model invocation asynchronously. Non-blocking; the
// write is queued and batched.
func (r *Recorder) Record(result *providers.ChatResult, opts RecordOptions) {
	if r == nil || r.sink == nil {
		return
	}

	call := FromChatResult(result, opts)
	if call == nil {
		return
	}

	r.sink.Send(defra.WriteOp{
		Op:         defra.OpCreate,
		Collection: Collection,
		Document:   call.ToMap(),
	})
}
