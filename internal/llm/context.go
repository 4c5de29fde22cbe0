package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	userKey    contextKey = "llm_user"
)

// Purpose labels used by the generators.
const (
	PurposeQuestion = "question-gen"
	PurposeHints    = "hint-gen"
	PurposeLesson   = "lesson-gen"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithUser records which user a generation is being made for.
func WithUser(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFrom returns the user attached by WithUser, or 0.
func UserFrom(ctx context.Context) uint {
	if v, ok := ctx.Value(userKey).(uint); ok {
		return v
	}
	return 0
}
