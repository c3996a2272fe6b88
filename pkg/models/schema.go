package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateMessageEnvelope(msg *MessageEnvelope) error {
	if msg == nil {
		return &ValidationError{
			Field:   "envelope",
			Message: "message envelope cannot be nil",
		}
	}

	if msg.SourceID == "" {
		return &ValidationError{
			Field:   "source_id",
			Message: "source_id is required",
		}
	}

	if msg.MessageID <= 0 {
		return &ValidationError{
			Field:   "message_id",
			Message: "message_id must be a positive origin-assigned identifier",
		}
	}

	if msg.PostedAt.IsZero() {
		return &ValidationError{
			Field:   "posted_at",
			Message: "posted_at is required",
		}
	}

	if msg.Text == "" && len(msg.MediaRefs) == 0 {
		return &ValidationError{
			Field:   "text",
			Message: "message must carry text or at least one media reference",
		}
	}

	for i, ref := range msg.MediaRefs {
		if ref == "" {
			return &ValidationError{
				Field:   "media_refs",
				Message: fmt.Sprintf("media reference %d is empty", i),
			}
		}
	}

	return nil
}
