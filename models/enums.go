package models

import (
	"strings"

	"bitbucket.org/mmdatafocus/checklist_backend/utils"
)

type ChecklistStatus string

const (
	StatusPendente     ChecklistStatus = "PENDENTE"
	StatusRecebido     ChecklistStatus = "RECEBIDO"
	StatusNaoAplicavel ChecklistStatus = "NAO_APLICAVEL"
)

const (
	msgIncompleteData  = "Dados incompletos fornecidos."
	msgInvalidStatus   = "Status inválido."
	msgClientNotFound  = "Cliente não encontrado"
	msgCategoryMissing = "Categoria não encontrada"
	msgInternalSave    = "Erro interno ao salvar no banco de dados."
)

func (s ChecklistStatus) String() string {
	return string(s)
}

// ParseCategoryStatus accepts PENDENTE or RECEBIDO in any case.
func ParseCategoryStatus(raw string) (ChecklistStatus, error) {
	s := ChecklistStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case "":
		return "", utils.NewValidationError(msgIncompleteData)
	case StatusPendente, StatusRecebido:
		return s, nil
	}
	return "", utils.NewValidationError(msgInvalidStatus)
}

// ParseDocumentStatus also accepts NAO_APLICAVEL, which only exists at document granularity.
func ParseDocumentStatus(raw string) (ChecklistStatus, error) {
	s := ChecklistStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case "":
		return "", utils.NewValidationError(msgIncompleteData)
	case StatusPendente, StatusRecebido, StatusNaoAplicavel:
		return s, nil
	}
	return "", utils.NewValidationError(msgInvalidStatus)
}
