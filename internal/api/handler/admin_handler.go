package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/core/service"
)

// AdminHandler exposes user management. Every route is mounted behind
// middleware.Require(administrator-access).
type AdminHandler struct {
	admin   ports.AdminService
	history ports.HistoryService
}

func NewAdminHandler(admin ports.AdminService, history ports.HistoryService) *AdminHandler {
	return &AdminHandler{admin: admin, history: history}
}

// ListUsers returns every account in creation order.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usersResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	accounts, err := h.admin.ListUsers(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usersResponse{Users: toUserResponses(accounts)})
}

// Stats returns account counts.
//
// @Summary      User statistics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statsResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	st, err := h.admin.Stats(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStatsResponse(st))
}

// UpdateUser changes another account's email.
//
// @Summary      Update user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Account ID"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  userEnvelope
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/admin/users/{id} [put]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	acc, err := h.admin.UpdateUser(c.Request().Context(), p, c.Param("id"), ports.UpdateUserInput{Email: req.Email})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userEnvelope{Message: "User updated", User: toUserResponse(acc)})
}

// ToggleAdmin flips the admin flag and returns the new value.
//
// @Summary      Toggle admin
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  toggleAdminResponse
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/admin/users/{id}/toggle-admin [post]
func (h *AdminHandler) ToggleAdmin(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	isAdmin, err := h.admin.ToggleAdmin(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}

	msg := "Admin status revoked"
	if isAdmin {
		msg = "Admin status granted"
	}
	return c.JSON(http.StatusOK, toggleAdminResponse{Message: msg, IsAdmin: isAdmin})
}

// DeleteUser removes an account and ends its sessions.
//
// @Summary      Delete user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteUser(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "User deleted"})
}

// History lists the whole audit log, newest first.
//
// @Summary      Audit history
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        user_email  query     string  false  "Only entries by this account"
// @Param        action      query     string  false  "Only this action"
// @Param        limit       query     int     false  "Maximum entries"
// @Success      200         {object}  historyResponse
// @Failure      400         {object}  map[string]string
// @Failure      403         {object}  map[string]string
// @Router       /api/admin/history [get]
func (h *AdminHandler) History(c echo.Context) error {
	entries, err := h.queryHistory(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHistoryResponse(entries))
}

// HistoryReport is History rendered as CSV.
//
// @Summary      Audit history report
// @Tags         admin
// @Produce      text/csv
// @Security     BearerAuth
// @Param        user_email  query     string  false  "Only entries by this account"
// @Param        action      query     string  false  "Only this action"
// @Success      200         {string}  string
// @Failure      403         {object}  map[string]string
// @Router       /api/admin/history/report [get]
func (h *AdminHandler) HistoryReport(c echo.Context) error {
	entries, err := h.queryHistory(c)
	if err != nil {
		return err
	}
	return writeCSV(c, "history", entries)
}

func (h *AdminHandler) queryHistory(c echo.Context) ([]*domain.AuditEntry, error) {
	p, err := principal(c)
	if err != nil {
		return nil, err
	}
	var q historyQuery
	if err := c.Bind(&q); err != nil {
		return nil, domain.Invalid("", "invalid query")
	}
	return h.history.All(c.Request().Context(), p, ports.HistoryQuery{
		UserEmail: q.UserEmail,
		Action:    domain.Action(q.Action),
		Limit:     q.Limit,
	})
}

func writeCSV(c echo.Context, name string, entries []*domain.AuditEntry) error {
	filename := fmt.Sprintf("%s_%s.csv", name, time.Now().UTC().Format("20060102_150405"))
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	res.WriteHeader(http.StatusOK)
	return service.WriteHistoryCSV(res, entries)
}
