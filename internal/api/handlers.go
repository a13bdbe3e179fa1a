package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/quizdungeon/internal/game"
	"github.com/abhisek/quizdungeon/internal/questions"
	"github.com/abhisek/quizdungeon/internal/session"
	"github.com/abhisek/quizdungeon/internal/stats"
)

type CreateGameRequest struct {
	PlayerID   string `json:"player_id" binding:"required"`
	MaterialID string `json:"material_id" binding:"required"`
}

type AnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

type SaveRequest struct {
	Label string `json:"label"`
}

func (r *Router) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) listPowerups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"powerups": r.manager.Catalog()})
}

func (r *Router) createGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := r.manager.Create(c.Request.Context(), req.PlayerID, req.MaterialID)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (r *Router) gameStatus(c *gin.Context) {
	s, err := r.manager.Status(c.Request.Context(), c.Param("player"), c.Param("material"))
	if err != nil {
		r.fail(c, err)
		return
	}
	if s == nil {
		r.fail(c, fmt.Errorf("no active session: %w", game.ErrSessionNotFound))
		return
	}
	c.JSON(http.StatusOK, s)
}

func (r *Router) getSession(c *gin.Context) {
	s, err := r.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (r *Router) nextQuestion(c *gin.Context) {
	q, err := r.manager.NextQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (r *Router) submitAnswer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := r.manager.SubmitAnswer(c.Request.Context(), c.Param("id"), req.QuestionID, req.Answer)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) usePowerup(c *gin.Context) {
	res, err := r.manager.UsePowerup(c.Request.Context(), c.Param("id"), c.Param("powerup"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) saveSession(c *gin.Context) {
	var req SaveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	slot, err := r.manager.Save(c.Request.Context(), c.Param("id"), req.Label)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (r *Router) abandon(c *gin.Context) {
	s, err := r.manager.Abandon(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (r *Router) listSaves(c *gin.Context) {
	slots, err := r.manager.ListSaves(c.Request.Context(), c.Param("player"), c.Param("material"))
	if err != nil {
		r.fail(c, err)
		return
	}
	if slots == nil {
		slots = []session.SaveSlot{}
	}
	c.JSON(http.StatusOK, gin.H{"saves": slots})
}

func (r *Router) loadSave(c *gin.Context) {
	s, err := r.manager.LoadSave(c.Request.Context(), c.Param("save"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (r *Router) deleteSave(c *gin.Context) {
	if err := r.manager.DeleteSave(c.Request.Context(), c.Param("save")); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) statsReport(c *gin.Context) {
	rep, err := r.manager.Report(c.Request.Context(), c.Param("player"), c.Param("material"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (r *Router) exportStats(c *gin.Context) {
	format, err := stats.ParseFormat(c.Param("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	player, material := c.Param("player"), c.Param("material")

	var buf bytes.Buffer
	if err := r.manager.ExportStats(c.Request.Context(), &buf, player, material, format); err != nil {
		r.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(player, material, format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func exportFilename(player, material string, f stats.Format) string {
	ext := string(f)
	if f == stats.FormatMarkdown {
		ext = "md"
	}
	return fmt.Sprintf("stats-%s-%s.%s", player, material, ext)
}

func (r *Router) resetStats(c *gin.Context) {
	if err := r.manager.ResetStats(c.Request.Context(), c.Param("player"), c.Param("material")); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) importQuestions(c *gin.Context) {
	material := c.Param("material")
	records, err := questions.Decode(http.MaxBytesReader(c.Writer, c.Request.Body, r.maxImport), material)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("question file exceeds %d bytes", tooLarge.Limit),
			Code:  "too_large",
		})
		return
	case err != nil:
		badRequest(c, err)
		return
	}
	n, err := r.importer.Import(c.Request.Context(), records)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.log.Info("questions imported", zap.String("material_id", material), zap.Int("count", n))
	c.JSON(http.StatusOK, gin.H{"material_id": material, "imported": n})
}
