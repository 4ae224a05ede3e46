package models

import (
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"gorm.io/datatypes"
)

// CategoriaChecklist is the persisted status of one (client, category) pair.
// The unique index is the backstop against concurrent confirmations creating duplicates.
type CategoriaChecklist struct {
	ID                     int             `gorm:"primaryKey" json:"id"`
	ClienteId              int             `gorm:"not null;uniqueIndex:_cliente_categoria_uc" json:"cliente_id"`
	Cliente                *Cliente        `gorm:"foreignKey:ClienteId" json:"-"`
	NomeCategoria          string          `gorm:"size:200;not null;uniqueIndex:_cliente_categoria_uc" json:"nome_categoria"`
	StatusRecebimento      ChecklistStatus `gorm:"size:15;not null;default:PENDENTE" json:"status_recebimento"`
	DetalhesDocumentosJson datatypes.JSON  `gorm:"column:detalhes_documentos_json" json:"-"`
	DataAtualizacao        time.Time       `gorm:"autoUpdateTime" json:"data_atualizacao"`
}

func (CategoriaChecklist) TableName() string {
	return "categorias"
}

// encodeDocumentNames is the only place the required-document list is turned into its column form.
func encodeDocumentNames(names []string) (datatypes.JSON, error) {
	if names == nil {
		names = []string{}
	}
	b, err := utils.MarshalToJSON(names)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func decodeDocumentNames(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var names []string
	if err := utils.UnmarshalFromJSON(raw, &names); err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// DocumentNames decodes the stored document list; a corrupt column reads as empty.
func (c CategoriaChecklist) DocumentNames() []string {
	names, err := decodeDocumentNames(c.DetalhesDocumentosJson)
	if err != nil {
		return []string{}
	}
	return names
}
