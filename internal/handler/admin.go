package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/middleware"
	"github.com/iliyamo/hybrid-auth/internal/service"
)

// AdminHandler serves the user-management endpoints.  Routes are mounted
// behind Authorize(admin); the self-target rule lives in the service.
type AdminHandler struct {
	Accounts *service.Accounts
}

type roleReq struct {
	Role string `json:"role" form:"role"`
}

// ListUsers returns every account without password hashes.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	users, err := h.Accounts.ListAll(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// UpdateRole changes the role of the user in the :id path parameter.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	actor, ok := middleware.PrincipalFrom(c.Request().Context())
	if !ok {
		return apperr.ErrUnauthenticated
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id := c.Param("id")
	if err := h.Accounts.UpdateRoleAs(ctx, actor, id, req.Role); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role updated", "id": id})
}

// DeleteUser removes the user in the :id path parameter.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actor, ok := middleware.PrincipalFrom(c.Request().Context())
	if !ok {
		return apperr.ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Accounts.DeleteAs(ctx, actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
