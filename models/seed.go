package models

import (
	"context"

	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"github.com/sirupsen/logrus"
)

const seedBatchSize = 200

type SeedResult struct {
	Skipped    bool `json:"skipped"`
	Clientes   int  `json:"clientes"`
	Categorias int  `json:"categorias"`
	Documentos int  `json:"documentos"`
}

// Seed populates an empty store from the catalog. It runs only while the clientes table is
// empty; once any client row exists it is a no-op, and later catalog edits are not applied.
func (c *Checklist) Seed(ctx context.Context) (*SeedResult, error) {
	ctx, span := tracer.Start(ctx, "Checklist.Seed")
	defer span.End()

	result, err := c.seed(ctx)
	if err != nil {
		if isDuplicateKeyErr(err) {
			// another instance seeded concurrently
			return &SeedResult{Skipped: true}, nil
		}
		return nil, c.internalError(span, "Seed", "seeding store from catalog", nil, err, msgInternalSave)
	}
	if !result.Skipped {
		c.logger.WithFields(logrus.Fields{
			"module":     "Checklist",
			"funcName":   "Seed",
			"clientes":   result.Clientes,
			"categorias": result.Categorias,
			"documentos": result.Documentos,
		}).Info("store seeded from catalog")
	}
	return result, nil
}

func (c *Checklist) seed(ctx context.Context) (*SeedResult, error) {
	tx := c.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var count int64
	if err := tx.Model(&Cliente{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return &SeedResult{Skipped: true}, nil
	}

	now := c.now()
	var (
		clientes   []Cliente
		categorias []CategoriaChecklist
		documentos []DocumentoChecklist
	)
	seenClients := make(map[int]struct{})
	for _, def := range c.catalog.LoadCatalog(ctx) {
		if _, dup := seenClients[def.ID]; dup || def.ID <= 0 {
			continue
		}
		seenClients[def.ID] = struct{}{}
		clientes = append(clientes, clienteFromDef(def))

		seenCategories := make(map[string]struct{})
		for _, cat := range def.Categorias {
			if _, dup := seenCategories[cat.Nome]; dup || cat.Nome == "" {
				continue
			}
			seenCategories[cat.Nome] = struct{}{}

			docNames := utils.UniqueSlice(cat.Documentos)
			docs, err := encodeDocumentNames(docNames)
			if err != nil {
				return nil, err
			}
			categorias = append(categorias, CategoriaChecklist{
				ClienteId:              def.ID,
				NomeCategoria:          cat.Nome,
				StatusRecebimento:      c.initialStatus(def.ID, cat),
				DetalhesDocumentosJson: docs,
				DataAtualizacao:        now,
			})
			for _, name := range docNames {
				documentos = append(documentos, DocumentoChecklist{
					ClienteId:       def.ID,
					NomeCategoria:   cat.Nome,
					NomeDocumento:   name,
					Status:          StatusPendente,
					DataAtualizacao: now,
				})
			}
		}
	}

	if len(clientes) > 0 {
		if err := tx.CreateInBatches(&clientes, seedBatchSize).Error; err != nil {
			return nil, err
		}
	}
	if len(categorias) > 0 {
		if err := tx.CreateInBatches(&categorias, seedBatchSize).Error; err != nil {
			return nil, err
		}
	}
	if len(documentos) > 0 {
		if err := tx.CreateInBatches(&documentos, seedBatchSize).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &SeedResult{
		Clientes:   len(clientes),
		Categorias: len(categorias),
		Documentos: len(documentos),
	}, nil
}

// initialStatus honours an explicit catalog status; anything unusable falls back to PENDENTE.
func (c *Checklist) initialStatus(clientID int, cat CategoryDef) ChecklistStatus {
	if cat.Status == "" {
		return StatusPendente
	}
	status, err := ParseCategoryStatus(cat.Status)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"module":         "Checklist",
			"funcName":       "Seed",
			"cliente_id":     clientID,
			"nome_categoria": cat.Nome,
			"status":         cat.Status,
		}).Warn("ignoring invalid initial status in catalog")
		return StatusPendente
	}
	return status
}
