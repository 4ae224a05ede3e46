package models

import (
	"context"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/config"
	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"github.com/google/uuid"
)

const (
	EventTypeCategoryStatus = "checklist.categoria.status"
	EventTypeDocumentStatus = "checklist.documentos.status"

	publishTimeout = 5 * time.Second
)

// MessagePublisher is satisfied by config.PubSubPublisher.
type MessagePublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

type StatusEvent struct {
	EventId       string          `json:"event_id"`
	Type          string          `json:"type"`
	ClienteId     int             `json:"cliente_id"`
	NomeCategoria string          `json:"nome_categoria,omitempty"`
	Status        ChecklistStatus `json:"status,omitempty"`
	DocumentoIds  []int           `json:"documento_ids,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	ActorId       int             `json:"actor_id,omitempty"`
	CorrelationId string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// publishEvent runs after commit. Failures are logged and never reach the caller.
func (c *Checklist) publishEvent(ctx context.Context, ev StatusEvent) {
	if c.publisher == nil {
		return
	}
	ev.EventId = uuid.NewString()
	ev.OccurredAt = c.now().UTC()
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		ev.CorrelationId = cid
	}
	if uid, ok := utils.GetUserIdFromContext(ctx); ok {
		ev.ActorId = uid
	}

	data, err := utils.MarshalToJSON(ev)
	if err != nil {
		config.LogError(c.logger, "Checklist", "publishEvent", "marshalling event", ev.Type, err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if _, err := c.publisher.Publish(pubCtx, []byte(data), map[string]string{
		"event_type": ev.Type,
		"cliente_id": strconv.Itoa(ev.ClienteId),
		"event_id":   ev.EventId,
	}); err != nil {
		config.LogError(c.logger, "Checklist", "publishEvent", "publishing event", ev, err)
	}
}
