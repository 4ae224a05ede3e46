package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm/clause"
)

type DocumentComparison struct {
	ID              int             `json:"id"`
	NomeCategoria   string          `json:"nome_categoria"`
	NomeDocumento   string          `json:"nome_documento"`
	Status          ChecklistStatus `json:"status"`
	PresenteBucket  bool            `json:"presente_bucket"`
	StatusBucket    string          `json:"status_bucket"`
	DataConfirmacao *time.Time      `json:"data_confirmacao"`
	ConfirmadoPor   *string         `json:"confirmado_por"`
}

type ClientComparison struct {
	ClienteId          int                  `json:"cliente_id"`
	ClienteNome        string               `json:"cliente_nome"`
	ListagemDisponivel bool                 `json:"listagem_disponivel"`
	TotalDocumentos    int                  `json:"total_documentos"`
	Recebidos          int                  `json:"recebidos"`
	Encontrados        int                  `json:"encontrados"`
	Documentos         []DocumentComparison `json:"documentos"`
}

type DocumentStatusInput struct {
	DocumentoId int    `json:"documento_id" validate:"required,gt=0"`
	Status      string `json:"status" validate:"required"`
}

type BulkConfirmInput struct {
	ClienteId  int                   `json:"cliente_id" validate:"required,gt=0"`
	Documentos []DocumentStatusInput `json:"documentos" validate:"required,min=1,dive"`
}

type BulkConfirmResult struct {
	Mensagem     string `json:"mensagem"`
	Atualizados  int    `json:"atualizados"`
	Ignorados    int    `json:"ignorados"`
	IdsIgnorados []int  `json:"ids_ignorados"`
}

type documentChange struct {
	id     int
	status ChecklistStatus
}

// GetComparison lists the client's document rows next to their presence in the file listing.
func (c *Checklist) GetComparison(ctx context.Context, clientID int) (*ClientComparison, error) {
	ctx, span := tracer.Start(ctx, "Checklist.GetComparison", trace.WithAttributes(attribute.Int("cliente_id", clientID)))
	defer span.End()

	def, ok := findClientDef(c.catalog.LoadCatalog(ctx), clientID)
	if !ok {
		return nil, utils.NewNotFoundError(msgClientNotFound)
	}

	var docs []DocumentoChecklist
	if err := c.db.WithContext(ctx).
		Where("cliente_id = ?", clientID).
		Order("id").
		Find(&docs).Error; err != nil {
		return nil, c.internalError(span, "GetComparison", "loading document rows", clientID, err, msgInternalRead)
	}

	listing := c.files.ListFiles(ctx, def.StorageKey())
	present := c.policy.Matcher(listing.Files)

	result := &ClientComparison{
		ClienteId:          def.ID,
		ClienteNome:        def.Nome,
		ListagemDisponivel: listing.Available,
		TotalDocumentos:    len(docs),
		Documentos:         make([]DocumentComparison, 0, len(docs)),
	}
	for _, d := range docs {
		p := present(d.NomeDocumento)
		if p {
			result.Encontrados++
		}
		if d.Status == StatusRecebido {
			result.Recebidos++
		}
		result.Documentos = append(result.Documentos, DocumentComparison{
			ID:              d.ID,
			NomeCategoria:   d.NomeCategoria,
			NomeDocumento:   d.NomeDocumento,
			Status:          d.Status,
			PresenteBucket:  p,
			StatusBucket:    bucketLabel(p),
			DataConfirmacao: d.DataConfirmacao,
			ConfirmadoPor:   d.ConfirmadoPor,
		})
	}
	return result, nil
}

func (input *BulkConfirmInput) validate(c *Checklist) ([]documentChange, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, utils.NewValidationError(msgIncompleteData)
	}
	// a repeated id keeps its first position and its last status
	changes := make([]documentChange, 0, len(input.Documentos))
	position := make(map[int]int, len(input.Documentos))
	for _, d := range input.Documentos {
		status, err := ParseDocumentStatus(d.Status)
		if err != nil {
			return nil, err
		}
		if i, seen := position[d.DocumentoId]; seen {
			changes[i].status = status
			continue
		}
		position[d.DocumentoId] = len(changes)
		changes = append(changes, documentChange{id: d.DocumentoId, status: status})
	}
	return changes, nil
}

// BulkConfirm applies every status change in one transaction. Ids that do not belong to the
// client are skipped and reported back. Confirmation metadata is stamped when a document
// enters RECEBIDO and cleared when it leaves it.
func (c *Checklist) BulkConfirm(ctx context.Context, input BulkConfirmInput) (*BulkConfirmResult, error) {
	ctx, span := tracer.Start(ctx, "Checklist.BulkConfirm")
	defer span.End()

	changes, err := input.validate(c)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("cliente_id", input.ClienteId), attribute.Int("documentos", len(changes)))

	if _, ok := findClientDef(c.catalog.LoadCatalog(ctx), input.ClienteId); !ok {
		return nil, utils.NewNotFoundError(msgClientNotFound)
	}

	actor, _ := utils.GetUsernameFromContext(ctx)
	result, updatedIds, err := c.applyDocumentChanges(ctx, input.ClienteId, changes, utils.NilIfEmpty(actor))
	if err != nil {
		return nil, c.internalError(span, "BulkConfirm", "applying document statuses", input, err, msgInternalSave)
	}

	if len(updatedIds) > 0 {
		c.publishEvent(ctx, StatusEvent{
			Type:         EventTypeDocumentStatus,
			ClienteId:    input.ClienteId,
			DocumentoIds: updatedIds,
			Actor:        actor,
		})
	}
	return result, nil
}

func (c *Checklist) applyDocumentChanges(ctx context.Context, clientID int, changes []documentChange, actor *string) (*BulkConfirmResult, []int, error) {
	ids := make([]int, 0, len(changes))
	for _, ch := range changes {
		ids = append(ids, ch.id)
	}
	now := c.now()

	tx := c.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var docs []DocumentoChecklist
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cliente_id = ? AND id IN ?", clientID, utils.UniqueSlice(ids)).
		Find(&docs).Error; err != nil {
		return nil, nil, err
	}
	current := make(map[int]ChecklistStatus, len(docs))
	for _, d := range docs {
		current[d.ID] = d.Status
	}

	result := &BulkConfirmResult{IdsIgnorados: []int{}}
	var updatedIds []int
	for _, ch := range changes {
		prev, ok := current[ch.id]
		if !ok {
			result.Ignorados++
			result.IdsIgnorados = append(result.IdsIgnorados, ch.id)
			continue
		}

		updates := map[string]interface{}{
			"status":           ch.status,
			"data_atualizacao": now,
		}
		if ch.status == StatusRecebido {
			if prev != StatusRecebido {
				updates["data_confirmacao"] = now
				updates["confirmado_por"] = actor
			}
		} else {
			updates["data_confirmacao"] = nil
			updates["confirmado_por"] = nil
		}
		if err := tx.Model(&DocumentoChecklist{}).Where("id = ?", ch.id).Updates(updates).Error; err != nil {
			return nil, nil, err
		}
		current[ch.id] = ch.status
		result.Atualizados++
		updatedIds = append(updatedIds, ch.id)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	result.Mensagem = fmt.Sprintf("%d documento(s) atualizado(s).", result.Atualizados)
	if result.Ignorados > 0 {
		result.Mensagem = fmt.Sprintf("%d documento(s) atualizado(s), %d ignorado(s).", result.Atualizados, result.Ignorados)
	}
	return result, utils.UniqueSlice(updatedIds), nil
}
