package models

import (
	"time"
)

const defaultClientAttribute = "N/A"

// Cliente is master data: created by seeding or on first status confirmation, never edited afterwards.
type Cliente struct {
	ID                 int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Nome               string    `gorm:"size:150;not null" json:"nome"`
	Grupo              string    `gorm:"size:50;not null" json:"grupo"`
	Segmento           string    `gorm:"size:50;not null" json:"segmento"`
	ChaveArmazenamento string    `gorm:"size:150" json:"chave_armazenamento"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Cliente) TableName() string {
	return "clientes"
}

func clienteFromDef(def ClientDef) Cliente {
	return Cliente{
		ID:                 def.ID,
		Nome:               def.Nome,
		Grupo:              def.GroupOrDefault(),
		Segmento:           def.SegmentOrDefault(),
		ChaveArmazenamento: def.StorageKey(),
	}
}
