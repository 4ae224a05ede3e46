package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/checklist_backend/models"
	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"github.com/gin-gonic/gin"
)

const (
	msgIncompleteData = "Dados incompletos fornecidos."
	msgClientNotFound = "Cliente não encontrado"
	msgInternalRead   = "Erro interno ao consultar o banco de dados."
	msgInternalSave   = "Erro interno ao salvar no banco de dados."

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// respondError maps the error taxonomy onto status codes. Only the user message is exposed.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, utils.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"erro": utils.UserMessage(err, msgIncompleteData)})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"erro": utils.UserMessage(err, fallback)})
	case errors.Is(err, utils.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"erro": utils.UserMessage(err, fallback)})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"erro": utils.UserMessage(err, fallback)})
	}
}

// clientIDParam answers 404 itself for ids that cannot name a client.
func clientIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"erro": msgClientNotFound})
		return 0, false
	}
	return id, true
}

func (s *server) listClientsHandler(c *gin.Context) {
	clients, err := s.checklist.ListClients(c.Request.Context())
	if err != nil {
		respondError(c, err, msgInternalRead)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (s *server) clientDetailHandler(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	detail, err := s.checklist.GetClientDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, msgInternalRead)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *server) comparisonHandler(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	comparison, err := s.checklist.GetComparison(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, msgInternalRead)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

func (s *server) exportHandler(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}
	data, fileName, err := s.checklist.ExportClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, msgInternalRead)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (s *server) confirmCategoryHandler(c *gin.Context) {
	var input models.ConfirmStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"erro": msgIncompleteData})
		return
	}
	result, err := s.checklist.ConfirmStatus(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, msgInternalSave)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) bulkConfirmHandler(c *gin.Context) {
	var input models.BulkConfirmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"erro": msgIncompleteData})
		return
	}
	result, err := s.checklist.BulkConfirm(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, msgInternalSave)
		return
	}
	c.JSON(http.StatusOK, result)
}
