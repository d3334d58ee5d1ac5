package api

import (
	"net/http"

	model2 "github.com/agrion/agrion/api/model"
	"github.com/gin-gonic/gin"
)

func (a Api) RunHedgingSweep(c *gin.Context) {
	resp, err := a.agrion.RunHedgingSweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) MatchContract(c *gin.Context) {
	var payload model2.MatchContract
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := payload.ValidateMatchContract(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.agrion.MatchContract(c.Request.Context(), c.Param("id"), payload.BuyerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) FuturesDashboard(c *gin.Context) {
	resp, err := a.agrion.FuturesDashboard(c.Request.Context(), c.Param("farm_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RunSync runs one orchestrator batch inline. Task names match the CLI: waste, quarantine, hedging.
func (a Api) RunSync(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		resp interface{}
		err  error
	)
	switch c.Param("task") {
	case "waste":
		resp, err = a.agrion.CircularEconomySync(ctx)
	case "quarantine":
		resp, err = a.agrion.QuarantineScan(ctx)
	case "hedging":
		resp, err = a.agrion.FuturesHedgingSync(ctx)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sync task. use waste, quarantine or hedging"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
