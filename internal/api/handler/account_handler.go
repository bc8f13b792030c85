package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/api/middleware"
	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
)

// AccountHandler serves the caller's own account and the route decision.
type AccountHandler struct {
	authService ports.AuthService
	guard       ports.Authorizer
}

func NewAccountHandler(authService ports.AuthService, guard ports.Authorizer) *AccountHandler {
	return &AccountHandler{authService: authService, guard: guard}
}

// Me returns the signed-in account.
//
// @Summary      Current user
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{SignedIn: true, User: toUserResponse(p.Account)})
}

// UpdateProfile changes the caller's own email.
//
// @Summary      Update own profile
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "New email"
// @Success      200   {object}  userEnvelope
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/profile/update [post]
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	acc, err := h.authService.UpdateProfile(c.Request().Context(), p, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userEnvelope{Message: "Profile updated", User: toUserResponse(acc)})
}

// Access tells a client whether the caller may open an area, or where to
// send them instead.
//
// @Summary      Route decision
// @Tags         account
// @Produce      json
// @Param        area  query     string  true  "dashboard, admin or settings"
// @Success      200   {object}  accessResponse
// @Failure      400   {object}  map[string]string
// @Router       /api/access [get]
func (h *AccountHandler) Access(c echo.Context) error {
	area := domain.Area(c.QueryParam("area"))
	token := middleware.TokenFromRequest(c.Request())

	d, err := h.guard.Decide(c.Request().Context(), token, area)
	if err != nil {
		return err
	}

	resp := accessResponse{Decision: "allow"}
	if !d.Allow {
		resp = accessResponse{Decision: "redirect", RedirectTo: d.RedirectTo}
	}
	return c.JSON(http.StatusOK, resp)
}
