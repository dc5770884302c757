package enums

// OutboxDLQErrorReason records why an outbox row was moved to outbox_dlq.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means every retry failed.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means the broker rejected the message outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnroutable means no topic or payload decoder is known for the event.
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUnroutable:
		return true
	}
	return false
}
