package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avelkov/task-manager/internal/repository"
)

// TeamHandler exposes team management over HTTP.
type TeamHandler struct {
	Teams *repository.TeamRepo
}

func NewTeamHandler(teams *repository.TeamRepo) *TeamHandler {
	if teams == nil {
		panic("nil repository passed to NewTeamHandler")
	}
	return &TeamHandler{Teams: teams}
}

type createTeamReq struct {
	Name string `json:"name"`
}

// Create makes a new team with the authenticated user as its owner.
func (h *TeamHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, messageResp{Message: "unauthorized"})
	}
	var req createTeamReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "name is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	team, err := h.Teams.Create(ctx, req.Name, uid)
	if err != nil {
		if errors.Is(err, repository.ErrTeamExists) {
			return c.JSON(http.StatusConflict, messageResp{Message: "team name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "create team failed"})
	}
	return c.JSON(http.StatusCreated, team)
}

// Get returns a team with its members.
func (h *TeamHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	team, err := h.Teams.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, messageResp{Message: "team not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "query failed"})
	}
	return c.JSON(http.StatusOK, team)
}
