package models

import (
	"time"
)

// DocumentoChecklist tracks a single required document of a client.
// DataConfirmacao and ConfirmadoPor are set only while Status is RECEBIDO.
type DocumentoChecklist struct {
	ID              int             `gorm:"primaryKey" json:"id"`
	ClienteId       int             `gorm:"not null;index" json:"cliente_id"`
	Cliente         *Cliente        `gorm:"foreignKey:ClienteId" json:"-"`
	NomeCategoria   string          `gorm:"size:200;not null" json:"nome_categoria"`
	NomeDocumento   string          `gorm:"size:255;not null" json:"nome_documento"`
	Status          ChecklistStatus `gorm:"size:15;not null;default:PENDENTE" json:"status"`
	DataConfirmacao *time.Time      `json:"data_confirmacao"`
	ConfirmadoPor   *string         `gorm:"size:100" json:"confirmado_por"`
	DataAtualizacao time.Time       `gorm:"autoUpdateTime" json:"data_atualizacao"`
}

func (DocumentoChecklist) TableName() string {
	return "documentos_checklist"
}
