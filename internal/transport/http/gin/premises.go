package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary  List premises
// @Tags     premises
// @Param    limit   query  int  false  "page size"
// @Param    offset  query  int  false  "offset"
// @Success  200  {array}  domain.Premise
// @Router   /premises [get]
func (h *handler) listPremises(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 0)
	offset := parseIntDefault(c.Query("offset"), 0)

	ps, err := h.svcs.Premises.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}

	// availability moves with every booking
	writeJSONWithCache(c, http.StatusOK, ps, "public, max-age=15")
}

// @Summary  Get a premise
// @Tags     premises
// @Param    id  path  int  true  "Premise ID"
// @Success  200  {object}  domain.Premise
// @Failure  404  {object}  ErrorResponse
// @Router   /premises/{id} [get]
func (h *handler) getPremise(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	p, err := h.svcs.Premises.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, p, "public, max-age=15")
}
