package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact purpose match ("" = any)
	From    time.Time // created_at >= From
	To      time.Time // created_at <= To
}

// LLMRequestEventData captures the data for a single chat request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	UserID       uint
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMUsage aggregates token usage for one purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMEventRepo is the audit log of chat requests.
type LLMEventRepo interface {
	// AppendLLMRequest records a chat API call.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event or ErrNotFound.
	GetLLMEvent(ctx context.Context, id uint) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates usage per purpose label.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates usage per model ID.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}

type llmEventRepo struct {
	db *gorm.DB
}

func (r *llmEventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	ev := LLMRequestEvent{
		Provider:     data.Provider,
		Model:        data.Model,
		Purpose:      data.Purpose,
		UserID:       data.UserID,
		InputTokens:  data.InputTokens,
		OutputTokens: data.OutputTokens,
		LatencyMs:    data.LatencyMs,
		Success:      data.Success,
		ErrorMessage: data.ErrorMessage,
		RequestBody:  data.RequestBody,
		ResponseBody: data.ResponseBody,
	}
	if err := r.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *llmEventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	q := r.db.WithContext(ctx).Model(&LLMRequestEvent{})
	if opts.Purpose != "" {
		q = q.Where("purpose = ?", opts.Purpose)
	}
	if !opts.From.IsZero() {
		q = q.Where("created_at >= ?", opts.From.UTC())
	}
	if !opts.To.IsZero() {
		q = q.Where("created_at <= ?", opts.To.UTC())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var events []LLMRequestEvent
	if err := q.Order("id desc").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return events, nil
}

func (r *llmEventRepo) GetLLMEvent(ctx context.Context, id uint) (*LLMRequestEvent, error) {
	var ev LLMRequestEvent
	if err := r.db.WithContext(ctx).First(&ev, id).Error; err != nil {
		return nil, NotFound(err)
	}
	return &ev, nil
}

func (r *llmEventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "purpose")
}

func (r *llmEventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "model")
}

func (r *llmEventRepo) usage(ctx context.Context, column string) ([]LLMUsage, error) {
	type row struct {
		GroupKey     string
		Calls        int
		InputTokens  int
		OutputTokens int
		AvgLatency   float64
	}

	var rows []row
	err := r.db.WithContext(ctx).Model(&LLMRequestEvent{}).
		Select(column + " AS group_key, COUNT(*) AS calls, " +
			"COALESCE(SUM(input_tokens), 0) AS input_tokens, " +
			"COALESCE(SUM(output_tokens), 0) AS output_tokens, " +
			"COALESCE(AVG(latency_ms), 0) AS avg_latency").
		Group(column).
		Order(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate LLM usage by %s: %w", column, err)
	}

	out := make([]LLMUsage, len(rows))
	for i, r := range rows {
		u := LLMUsage{
			Calls:        r.Calls,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			AvgLatencyMs: int64(r.AvgLatency),
		}
		if column == "purpose" {
			u.Purpose = r.GroupKey
		} else {
			u.Model = r.GroupKey
		}
		out[i] = u
	}
	return out, nil
}
