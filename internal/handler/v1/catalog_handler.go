package v1

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medrec/medrec-api/internal/service"
)

type CatalogHandler struct {
	catalogSvc   *service.CatalogService
	dashboardSvc *service.DashboardService
}

func NewCatalogHandler(catalogSvc *service.CatalogService, dashboardSvc *service.DashboardService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc, dashboardSvc: dashboardSvc}
}

// List serves the generic listing contract: GET /catalog/:entity with the
// shared page/sort/filter query parameters. ?deferred=true awaits the async
// variant instead.
func (h *CatalogHandler) List(c *gin.Context) {
	entity := strings.ToLower(c.Param("entity"))
	req := pageRequest(c)

	deferred := false
	if raw := c.Query("deferred"); raw != "" {
		deferred, _ = strconv.ParseBool(raw)
	}

	if deferred {
		res := <-h.catalogSvc.ListAnyAsync(c.Request.Context(), entity, req)
		if res.Err != nil {
			h.respondCatalogError(c, res.Err)
			return
		}
		respondOK(c, res.Page)
		return
	}

	page, err := h.catalogSvc.ListAny(c.Request.Context(), entity, req)
	if err != nil {
		h.respondCatalogError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *CatalogHandler) respondCatalogError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUnknownEntityType) {
		known := h.catalogSvc.EntityTypes()
		sort.Strings(known)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Details: map[string]string{"known": strings.Join(known, ", ")},
		})
		return
	}
	respondServiceError(c, err)
}

// Dashboard serves the role-specific landing view, discriminated by the
// kind tag in the payload.
func (h *CatalogHandler) Dashboard(c *gin.Context) {
	view, err := h.dashboardSvc.View(c.Request.Context(), claimsFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}
