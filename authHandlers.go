package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/checklist_backend/models"
	"github.com/gin-gonic/gin"
)

func (s *server) loginHandler(c *gin.Context) {
	var input models.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"erro": msgIncompleteData})
		return
	}
	info, err := models.Login(c.Request.Context(), s.db, s.tokens, input.Username, input.Password)
	if err != nil {
		respondError(c, err, msgInternalRead)
		return
	}
	c.JSON(http.StatusOK, info)
}
