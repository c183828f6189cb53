package credentials

import (
	"context"
	"encoding/json"
	"log/slog"

	"ipvcore/internal/credentials/models"
	"ipvcore/internal/platform/kafka/consumer"
)

// BatchHandler adapts ProcessBatch to the queue consumer.
type BatchHandler struct {
	svc    *Service
	logger *slog.Logger
}

var _ consumer.BatchHandler = (*BatchHandler)(nil)

func NewBatchHandler(svc *Service, logger *slog.Logger) *BatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{svc: svc, logger: logger}
}

// HandleBatch decodes every record; undecodable records fail on their own.
func (h *BatchHandler) HandleBatch(ctx context.Context, msgs []*consumer.Message) []string {
	var (
		failed  []string
		decoded = make([]models.AsyncMessage, 0, len(msgs))
	)
	for _, m := range msgs {
		var msg models.AsyncMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			h.logger.WarnContext(ctx, "undecodable async credential", "message_id", m.ID(), "error", err)
			failed = append(failed, m.ID())
			continue
		}
		msg.ID = m.ID()
		decoded = append(decoded, msg)
	}
	return append(failed, h.svc.ProcessBatch(ctx, decoded)...)
}
