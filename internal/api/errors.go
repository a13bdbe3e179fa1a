package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/quizdungeon/internal/game"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is matched in order with errors.Is.
var errorMappings = []errorMapping{
	{game.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{game.ErrStaleQuestion, http.StatusConflict, "stale_question"},
	{game.ErrInvalidSessionState, http.StatusConflict, "invalid_session_state"},
	{game.ErrAlreadyActive, http.StatusConflict, "already_active"},
	{game.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{game.ErrPowerupNotOwned, http.StatusUnprocessableEntity, "powerup_not_owned"},
	{game.ErrNotEnoughQuestions, http.StatusUnprocessableEntity, "not_enough_questions"},
	{game.ErrUnknownPowerup, http.StatusNotFound, "unknown_powerup"},
	{game.ErrPoolExhausted, http.StatusNotFound, "pool_exhausted"},
	{game.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{game.ErrSaveNotFound, http.StatusNotFound, "save_not_found"},
	{game.ErrQuestionNotFound, http.StatusNotFound, "question_not_found"},
	{game.ErrPersistence, http.StatusServiceUnavailable, "persistence_failure"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (r *Router) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		r.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", code),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_argument"})
}
