package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/config"
	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer = otel.Tracer("checklist")

const (
	confirmAttempts   = 4
	confirmRetryDelay = 25 * time.Millisecond
	confirmLockTTL    = 10 * time.Second

	bucketFound    = "Sim"
	bucketNotFound = "Não"

	msgInternalRead = "Erro interno ao consultar o banco de dados."
)

type ChecklistOptions struct {
	DB      *gorm.DB
	Catalog CatalogLoader
	Files   FileLister
	Policy  MatchPolicy
	// optional
	Locker    *redislock.Client
	Publisher MessagePublisher
	Logger    *logrus.Logger
	Now       func() time.Time
}

// Checklist reconciles the catalog, the status store and the file listing.
// It keeps no state between calls; every read reloads the catalog and the listing.
type Checklist struct {
	db        *gorm.DB
	catalog   CatalogLoader
	files     FileLister
	policy    MatchPolicy
	locker    *redislock.Client
	publisher MessagePublisher
	logger    *logrus.Logger
	now       func() time.Time
	validate  *validator.Validate
}

func NewChecklist(opts ChecklistOptions) *Checklist {
	if opts.Catalog == nil {
		opts.Catalog = StaticCatalog{}
	}
	if opts.Files == nil {
		opts.Files = unavailableListing{}
	}
	if opts.Policy == "" {
		opts.Policy = MatchPolicySubstring
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Checklist{
		db:        opts.DB,
		catalog:   opts.Catalog,
		files:     opts.Files,
		policy:    opts.Policy,
		locker:    opts.Locker,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       opts.Now,
		validate:  validator.New(),
	}
}

type unavailableListing struct{}

func (unavailableListing) ListFiles(ctx context.Context, storageKey string) FileListing {
	return FileListing{Files: []string{}}
}

type ClientSummary struct {
	ID                  int     `json:"id"`
	Nome                string  `json:"nome"`
	Grupo               string  `json:"grupo"`
	Segmento            string  `json:"segmento"`
	TotalCategorias     int     `json:"total_categorias"`
	Concluidas          int64   `json:"concluidas"`
	PercentualConcluido float64 `json:"percentual_concluido"`
}

type DocumentPresence struct {
	NomeDocumento string `json:"nome_documento"`
	StatusBucket  string `json:"status_bucket"`
	Presente      bool   `json:"presente"`
}

type CategoryDetail struct {
	NomeCategoria         string             `json:"nome_categoria"`
	StatusRecebimento     ChecklistStatus    `json:"status_recebimento"`
	TotalDocumentos       int                `json:"total_documentos"`
	DocumentosEncontrados int                `json:"documentos_encontrados"`
	DetalhesDocumentos    []DocumentPresence `json:"detalhes_documentos"`
}

type ClientDetail struct {
	ClienteId          int              `json:"cliente_id"`
	ClienteNome        string           `json:"cliente_nome"`
	Grupo              string           `json:"grupo"`
	Segmento           string           `json:"segmento"`
	ListagemDisponivel bool             `json:"listagem_disponivel"`
	Categorias         []CategoryDetail `json:"categorias"`
}

type ConfirmStatusInput struct {
	ClienteId     int    `json:"cliente_id" validate:"required,gt=0"`
	NomeCategoria string `json:"nome_categoria" validate:"required"`
	Status        string `json:"status" validate:"required"`
}

type ConfirmStatusResult struct {
	Mensagem      string          `json:"mensagem"`
	ClienteId     int             `json:"cliente_id"`
	NomeCategoria string          `json:"nome_categoria"`
	Status        ChecklistStatus `json:"status"`
	Criado        bool            `json:"criado"`
}

func (input *ConfirmStatusInput) validate(v *validator.Validate) (ChecklistStatus, error) {
	input.NomeCategoria = strings.TrimSpace(input.NomeCategoria)
	input.Status = strings.TrimSpace(input.Status)
	if err := v.Struct(input); err != nil {
		return "", utils.NewValidationError(msgIncompleteData)
	}
	return ParseCategoryStatus(input.Status)
}

// ListClients returns one summary per catalog client in catalog order. Concluidas counts
// RECEBIDO rows whose category still exists in the catalog, so it never exceeds the total.
func (c *Checklist) ListClients(ctx context.Context) ([]ClientSummary, error) {
	ctx, span := tracer.Start(ctx, "Checklist.ListClients")
	defer span.End()

	defs := c.catalog.LoadCatalog(ctx)
	summaries := make([]ClientSummary, 0, len(defs))
	if len(defs) == 0 {
		return summaries, nil
	}

	ids := make([]int, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}

	var received []CategoriaChecklist
	if err := c.db.WithContext(ctx).
		Select("cliente_id", "nome_categoria").
		Where("status_recebimento = ? AND cliente_id IN ?", StatusRecebido, utils.UniqueSlice(ids)).
		Find(&received).Error; err != nil {
		return nil, c.internalError(span, "ListClients", "loading received categories", nil, err, msgInternalRead)
	}
	receivedByClient := make(map[int]map[string]struct{})
	for _, r := range received {
		if receivedByClient[r.ClienteId] == nil {
			receivedByClient[r.ClienteId] = make(map[string]struct{})
		}
		receivedByClient[r.ClienteId][r.NomeCategoria] = struct{}{}
	}

	for _, d := range defs {
		var done int64
		counted := make(map[string]struct{}, len(d.Categorias))
		for _, cat := range d.Categorias {
			if _, dup := counted[cat.Nome]; dup {
				continue
			}
			counted[cat.Nome] = struct{}{}
			if _, ok := receivedByClient[d.ID][cat.Nome]; ok {
				done++
			}
		}
		total := len(d.Categorias)
		summaries = append(summaries, ClientSummary{
			ID:                  d.ID,
			Nome:                d.Nome,
			Grupo:               d.GroupOrDefault(),
			Segmento:            d.SegmentOrDefault(),
			TotalCategorias:     total,
			Concluidas:          done,
			PercentualConcluido: utils.PercentComplete(done, int64(total)),
		})
	}
	return summaries, nil
}

// GetClientDetail never writes: categories without a row read as PENDENTE.
func (c *Checklist) GetClientDetail(ctx context.Context, clientID int) (*ClientDetail, error) {
	ctx, span := tracer.Start(ctx, "Checklist.GetClientDetail", trace.WithAttributes(attribute.Int("cliente_id", clientID)))
	defer span.End()

	def, ok := findClientDef(c.catalog.LoadCatalog(ctx), clientID)
	if !ok {
		return nil, utils.NewNotFoundError(msgClientNotFound)
	}

	var rows []CategoriaChecklist
	if err := c.db.WithContext(ctx).
		Select("cliente_id", "nome_categoria", "status_recebimento").
		Where("cliente_id = ?", clientID).
		Find(&rows).Error; err != nil {
		return nil, c.internalError(span, "GetClientDetail", "loading category rows", clientID, err, msgInternalRead)
	}
	statusByName := make(map[string]ChecklistStatus, len(rows))
	for _, r := range rows {
		statusByName[r.NomeCategoria] = r.StatusRecebimento
	}

	listing := c.files.ListFiles(ctx, def.StorageKey())
	present := c.policy.Matcher(listing.Files)

	detail := &ClientDetail{
		ClienteId:          def.ID,
		ClienteNome:        def.Nome,
		Grupo:              def.GroupOrDefault(),
		Segmento:           def.SegmentOrDefault(),
		ListagemDisponivel: listing.Available,
		Categorias:         make([]CategoryDetail, 0, len(def.Categorias)),
	}
	for _, cat := range def.Categorias {
		status, ok := statusByName[cat.Nome]
		if !ok {
			status = StatusPendente
		}

		docs := make([]DocumentPresence, 0, len(cat.Documentos))
		found := 0
		for _, name := range cat.Documentos {
			p := present(name)
			if p {
				found++
			}
			docs = append(docs, DocumentPresence{
				NomeDocumento: name,
				StatusBucket:  bucketLabel(p),
				Presente:      p,
			})
		}

		detail.Categorias = append(detail.Categorias, CategoryDetail{
			NomeCategoria:         cat.Nome,
			StatusRecebimento:     status,
			TotalDocumentos:       len(cat.Documentos),
			DocumentosEncontrados: found,
			DetalhesDocumentos:    docs,
		})
	}
	return detail, nil
}

// ConfirmStatus upserts the status of one category. Validation and catalog lookups happen
// before any write; a failed write rolls back and surfaces a generic internal error.
func (c *Checklist) ConfirmStatus(ctx context.Context, input ConfirmStatusInput) (*ConfirmStatusResult, error) {
	ctx, span := tracer.Start(ctx, "Checklist.ConfirmStatus")
	defer span.End()

	status, err := input.validate(c.validate)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("cliente_id", input.ClienteId),
		attribute.String("nome_categoria", input.NomeCategoria),
		attribute.String("status", status.String()),
	)

	def, ok := findClientDef(c.catalog.LoadCatalog(ctx), input.ClienteId)
	if !ok {
		return nil, utils.NewNotFoundError(msgClientNotFound)
	}
	catDef, ok := def.findCategory(input.NomeCategoria)
	if !ok {
		return nil, utils.NewNotFoundError(msgCategoryMissing)
	}

	lockKey := fmt.Sprintf("lock:checklist:%d:%s", def.ID, catDef.Nome)
	release, lockErr := utils.ObtainLock(ctx, c.locker, lockKey, confirmLockTTL)
	if lockErr != nil {
		// the unique index still guards the write
		c.logger.WithFields(logrus.Fields{
			"module":   "Checklist",
			"funcName": "ConfirmStatus",
			"lock":     lockKey,
		}).Warn("proceeding without lock: " + lockErr.Error())
	}
	defer release()

	var created bool
	for attempt := 1; ; attempt++ {
		created, err = c.upsertCategoryStatus(ctx, def, catDef, status)
		if err == nil {
			break
		}
		if isRetryableWriteErr(err) && attempt < confirmAttempts {
			// the concurrent writer has committed or rolled back by the next attempt
			select {
			case <-ctx.Done():
				return nil, c.internalError(span, "ConfirmStatus", "retrying category upsert", input, ctx.Err(), msgInternalSave)
			case <-time.After(time.Duration(attempt) * confirmRetryDelay):
			}
			continue
		}
		return nil, c.internalError(span, "ConfirmStatus", "upserting category status", input, err, msgInternalSave)
	}

	c.publishEvent(ctx, StatusEvent{
		Type:          EventTypeCategoryStatus,
		ClienteId:     def.ID,
		NomeCategoria: catDef.Nome,
		Status:        status,
	})

	return &ConfirmStatusResult{
		Mensagem:      fmt.Sprintf("Status da categoria '%s' atualizado para %s.", catDef.Nome, status),
		ClienteId:     def.ID,
		NomeCategoria: catDef.Nome,
		Status:        status,
		Criado:        created,
	}, nil
}

// upsertCategoryStatus locates the row under a row lock and updates it, or creates it.
// The client row is created on first reference inside the same transaction.
func (c *Checklist) upsertCategoryStatus(ctx context.Context, def ClientDef, catDef CategoryDef, status ChecklistStatus) (bool, error) {
	docs, err := encodeDocumentNames(catDef.Documentos)
	if err != nil {
		return false, err
	}
	now := c.now()

	tx := c.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return false, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	cliente := clienteFromDef(def)
	if err := tx.Where(Cliente{ID: def.ID}).FirstOrCreate(&cliente).Error; err != nil {
		return false, err
	}

	var rows []CategoriaChecklist
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cliente_id = ? AND nome_categoria = ?", def.ID, catDef.Nome).
		Limit(1).
		Find(&rows).Error; err != nil {
		return false, err
	}

	created := false
	if len(rows) > 0 {
		if err := tx.Model(&CategoriaChecklist{}).Where("id = ?", rows[0].ID).Updates(map[string]interface{}{
			"status_recebimento":       status,
			"detalhes_documentos_json": docs,
			"data_atualizacao":         now,
		}).Error; err != nil {
			return false, err
		}
	} else {
		row := CategoriaChecklist{
			ClienteId:              def.ID,
			NomeCategoria:          catDef.Nome,
			StatusRecebimento:      status,
			DetalhesDocumentosJson: docs,
			DataAtualizacao:        now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return false, err
		}
		created = true
	}

	if err := tx.Commit().Error; err != nil {
		return false, err
	}
	return created, nil
}

func (c *Checklist) internalError(span trace.Span, funcName string, context string, data any, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	config.LogError(c.logger, "Checklist", funcName, context, data, err)
	return utils.NewInternalError(msg)
}

func bucketLabel(present bool) string {
	if present {
		return bucketFound
	}
	return bucketNotFound
}
