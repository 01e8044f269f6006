package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tsiolis/go-bookswap-backend/internal/search"
	"github.com/tsiolis/go-bookswap-backend/internal/utils"
)

// CatalogSearcher is the book-search collaborator behind the catalog
// endpoint. *search.Index satisfies it.
type CatalogSearcher interface {
	Search(q string, limit int) ([]search.Hit, error)
}

// CatalogSearchResponse is a ranked list of book candidates for the search
// modal.
type CatalogSearchResponse struct {
	Query   string       `json:"query" example:"dune"`
	Results []search.Hit `json:"results"`
}

// SearchCatalog godoc
// @ID          searchCatalog
// @Summary     Search the book catalog
// @Description Full-text search over known book titles and authors, ranked by relevance. Backs the client's "select a book" flow.
// @Tags        Catalog
// @Produce     json
//
// @Param       q      query  string  true   "Search query"        example(dune)
// @Param       limit  query  int     false  "Maximum results"     minimum(1) maximum(50) default(10)
//
// @Success     200  {object}  handlers.CatalogSearchResponse
// @Failure     400  {object}  handlers.ErrorResponse "Missing query"
// @Failure     500  {object}  handlers.ErrorResponse "Search failed"
// @Failure     503  {object}  handlers.ErrorResponse "Catalog unavailable"
// @Router      /catalog/search [get]
func (h *Handlers) SearchCatalog(c *gin.Context) {
	if h.catalog == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeSearchFailed, "catalog unavailable")
		return
	}

	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q is required")
		return
	}

	limit := utils.AtoiDefault(c.Query("limit"), 10)
	if limit < 1 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}

	hits, err := h.catalog.Search(q, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, err.Error())
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	ok(c, http.StatusOK, CatalogSearchResponse{Query: q, Results: hits})
}
