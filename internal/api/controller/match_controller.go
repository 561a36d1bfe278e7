package controller

import (
	"errors"
	"net/http"

	"ctchen222/rally-tracker/internal/api/models"
	"ctchen222/rally-tracker/internal/api/response"
	"ctchen222/rally-tracker/internal/api/service"
	"ctchen222/rally-tracker/internal/game"
	"ctchen222/rally-tracker/internal/hub"
	"ctchen222/rally-tracker/internal/repository"
	"github.com/gin-gonic/gin"
)

// MatchController handles match-related HTTP requests.
type MatchController struct {
	matchService service.MatchService
}

// NewMatchController creates a new MatchController.
func NewMatchController(matchService service.MatchService) *MatchController {
	return &MatchController{
		matchService: matchService,
	}
}

// RegisterRoutes mounts the match endpoints on rg.
func (mc *MatchController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", mc.Create)
	rg.GET("/:id", mc.View)
	rg.POST("/:id/server", mc.ChooseServer)
	rg.POST("/:id/players", mc.SelectPlayers)
	rg.POST("/:id/zones/hit", mc.SelectHitZone)
	rg.POST("/:id/zones/receive", mc.SelectReceiveZone)
	rg.POST("/:id/shot-type", mc.SelectShotType)
	rg.POST("/:id/shots", mc.SubmitShot)
	rg.GET("/:id/shots", mc.Shots)
	rg.POST("/:id/undo", mc.Undo)
	rg.POST("/:id/reset", mc.Reset)
	rg.POST("/:id/finish", mc.Finish)
	rg.GET("/:id/result", mc.Result)
}

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, hub.ErrMatchNotFound), errors.Is(err, repository.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, hub.ErrMatchExists):
		return http.StatusConflict
	}
	switch game.CodeOf(err) {
	case game.CodeIllegalServeZone, game.CodeIllegalShotType, game.CodeIncompleteShot:
		return http.StatusUnprocessableEntity
	case game.CodeMatchFinished, game.CodeWrongPhase, game.CodeInitialServerChosen, game.CodeEmptyLedgerUndo:
		return http.StatusConflict
	case game.CodeUnknownPlayer, game.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, err error) {
	code := game.CodeOf(err)
	if code == game.CodeUnknown {
		response.ErrorResponse(c, statusOf(err), err.Error())
		return
	}
	response.ErrorCodeResponse(c, statusOf(err), string(code), err.Error())
}

// Create handles opening a match.
func (mc *MatchController) Create(c *gin.Context) {
	var req models.CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCodeResponse(c, http.StatusBadRequest, string(game.CodeInvalidInput), err.Error())
		return
	}

	view, err := mc.matchService.Create(c.Request.Context(), &req)
	if err != nil {
		abort(c, err)
		return
	}
	response.CreatedResponse(c, view)
}

// View returns the current state of a match.
func (mc *MatchController) View(c *gin.Context) {
	view, err := mc.matchService.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	response.SuccessResponse(c, view)
}

// ChooseServer picks the first server of a singles match.
func (mc *MatchController) ChooseServer(c *gin.Context) {
	var req models.ChooseServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCodeResponse(c, http.StatusBadRequest, string(game.CodeInvalidInput), err.Error())
		return
	}
	mc.respondView(c, func() (game.View, error) {
		return mc.matchService.ChooseServer(c.Request.Context(), c.Param("id"), &req)
	})
}

// SelectPlayers picks the hitter and receiver of the next doubles shot.
func (mc *MatchController) SelectPlayers(c *gin.Context) {
	var req models.SelectPlayersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCodeResponse(c, http.StatusBadRequest, string(game.CodeInvalidInput), err.Error())
		return
	}
	mc.respondView(c, func() (game.View, error) {
		return mc.matchService.SelectPlayers(c.Request.Context(), c.Param("id"), &req)
	})
}

// SelectHitZone sets where the pending shot is played from.
func (mc *MatchController) SelectHitZone(c *gin.Context) {
	var req models.ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCodeResponse(c, http.StatusBadRequest, string(game.CodeInvalidInput), err.Error())
		return
	}
	mc.respondView(c, func() (game.View, error) {
		return mc.matchService.SelectHitZone(c.Request.Context(), c.Param("id"), req.Zone)
	})
}

// SelectReceiveZone sets where the pending shot lands.
func (mc *MatchController) SelectReceiveZone(c *gin.Context) {
	var req models.ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCodeResponse(c, http.StatusBadRequest, string(game.CodeInvalidInput), err.Error())
		return
	}
	mc.respondView(c, func() (game.View, error) {
		return mc.matchService.SelectReceiveZone(c.Request.Context(), c.Param("id"), req.Zone)
	})
}

// SelectShotType sets the type of the pending shot.
func (mc *MatchController) SelectShotType(c *gin.Context) {
	var req models.ShotTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCodeResponse(c, http.StatusBadRequest, string(game.CodeInvalidInput), err.Error())
		return
	}
	mc.respondView(c, func() (game.View, error) {
		return mc.matchService.SelectShotType(c.Request.Context(), c.Param("id"), req.ShotType)
	})
}

// SubmitShot records the pending shot.
func (mc *MatchController) SubmitShot(c *gin.Context) {
	var req models.SubmitShotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCodeResponse(c, http.StatusBadRequest, string(game.CodeInvalidInput), err.Error())
		return
	}

	res, err := mc.matchService.SubmitShot(c.Request.Context(), c.Param("id"), req.Result)
	if err != nil {
		abort(c, err)
		return
	}
	response.SuccessResponse(c, res)
}

// Undo removes the last recorded shot.
func (mc *MatchController) Undo(c *gin.Context) {
	res, err := mc.matchService.Undo(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	response.SuccessResponse(c, res)
}

// Reset clears the ledger of a match.
func (mc *MatchController) Reset(c *gin.Context) {
	mc.respondView(c, func() (game.View, error) {
		return mc.matchService.Reset(c.Request.Context(), c.Param("id"))
	})
}

// Finish ends a match.
func (mc *MatchController) Finish(c *gin.Context) {
	res, err := mc.matchService.Finish(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	response.SuccessResponse(c, res)
}

// Shots lists the recorded shots of a match.
func (mc *MatchController) Shots(c *gin.Context) {
	shots, err := mc.matchService.Shots(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	response.SuccessResponseList(c, shots)
}

// Result returns a completed match.
func (mc *MatchController) Result(c *gin.Context) {
	record, err := mc.matchService.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	response.SuccessResponse(c, record)
}

func (mc *MatchController) respondView(c *gin.Context, op func() (game.View, error)) {
	view, err := op()
	if err != nil {
		abort(c, err)
		return
	}
	response.SuccessResponse(c, view)
}
