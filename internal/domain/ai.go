package domain

type FailureReason string

const (
	FailureNone          FailureReason = ""
	FailureTimeout       FailureReason = "timeout"
	FailureCancelled     FailureReason = "cancelled"
	FailureProvider      FailureReason = "provider_error"
	FailureEmptyResponse FailureReason = "empty_response"
	FailureDisabled      FailureReason = "disabled"
)

// AIResponse is the outcome of a generative fallback call. Text is set only on
// success and Failure only on failure; raw provider errors never leave the
// orchestrator.
type AIResponse struct {
	Succeeded bool
	Text      string
	Failure   FailureReason
}

func AISuccess(text string) AIResponse {
	return AIResponse{Succeeded: true, Text: text}
}

func AIFailure(reason FailureReason) AIResponse {
	return AIResponse{Failure: reason}
}
