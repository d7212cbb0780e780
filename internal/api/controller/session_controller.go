package controller

import (
	"ctchen222/tictactoe-ai/internal/api/models"
	"ctchen222/tictactoe-ai/internal/api/response"
	"ctchen222/tictactoe-ai/internal/service"
	"ctchen222/tictactoe-ai/internal/token"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionController handles session-related HTTP requests.
type SessionController struct {
	gameService service.GameService
	tokens      *token.Issuer
}

// NewSessionController creates a new SessionController.
func NewSessionController(gameService service.GameService, tokens *token.Issuer) *SessionController {
	return &SessionController{
		gameService: gameService,
		tokens:      tokens,
	}
}

// Create starts a new session and returns it with its access token.
func (sc *SessionController) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	// An empty body selects every default.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	sess, err := sc.gameService.CreateSession(c.Request.Context(), req.Size, req.Difficulty)
	if err != nil {
		response.Error(c, err)
		return
	}

	tokenString, err := sc.tokens.Issue(sess.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.CreatedResponse(c, models.SessionResponse{Session: sess, Token: tokenString})
}

// Get returns the current state of a session.
func (sc *SessionController) Get(c *gin.Context) {
	sess, err := sc.gameService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, models.SessionResponse{Session: sess})
}

// Delete ends a session.
func (sc *SessionController) Delete(c *gin.Context) {
	if err := sc.gameService.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, gin.H{"message": "Session deleted"})
}

// Move plays the human move and returns the session after the bot answered.
func (sc *SessionController) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := sc.gameService.Move(c.Request.Context(), c.Param("id"), *req.Index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, models.SessionResponse{Session: sess})
}

// Reset starts a new game in the session.
func (sc *SessionController) Reset(c *gin.Context) {
	sess, err := sc.gameService.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, models.SessionResponse{Session: sess})
}

// Resize starts a new game on a board of the requested size.
func (sc *SessionController) Resize(c *gin.Context) {
	var req models.ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := sc.gameService.Resize(c.Request.Context(), c.Param("id"), req.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, models.SessionResponse{Session: sess})
}

// SetDifficulty changes the bot difficulty.
func (sc *SessionController) SetDifficulty(c *gin.Context) {
	var req models.DifficultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := sc.gameService.SetDifficulty(c.Request.Context(), c.Param("id"), req.Difficulty)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, models.SessionResponse{Session: sess})
}
