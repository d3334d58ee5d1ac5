package api

import (
	"net/http"

	model2 "github.com/agrion/agrion/api/model"
	"github.com/gin-gonic/gin"
)

func (a Api) ReportOutbreak(c *gin.Context) {
	var payload model2.ReportOutbreak
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := payload.ValidateReportOutbreak(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.agrion.ReportOutbreak(c.Request.Context(), payload.ToOutbreakZone())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) AnalyzeOutbreak(c *gin.Context) {
	id := c.Param("id")

	analyzed, err := a.agrion.AnalyzeOutbreak(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone_id": id, "analyzed": analyzed})
}

func (a Api) ThreatMonitor(c *gin.Context) {
	resp, err := a.agrion.ThreatMonitor(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) ContainmentStatus(c *gin.Context) {
	resp, err := a.agrion.ContainmentStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// OverrideContainment accepts an empty body; the actor then defaults to the system operator.
func (a Api) OverrideContainment(c *gin.Context) {
	var payload model2.OverrideContainment
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
			return
		}
	}

	resp, err := a.agrion.OverrideContainment(c.Request.Context(), c.Param("id"), payload.ActorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
