package api

import (
	"net/http"

	model2 "github.com/agrion/agrion/api/model"
	"github.com/gin-gonic/gin"
)

func (a Api) ReportWaste(c *gin.Context) {
	var payload model2.ReportWaste
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := payload.ValidateReportWaste(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.agrion.ReportWaste(c.Request.Context(), payload.ToWasteInventory())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) ProcessWaste(c *gin.Context) {
	id := c.Param("id")

	energy, err := a.agrion.ProcessWaste(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"waste_id": id, "energy_kwh": energy})
}

func (a Api) SpendCredits(c *gin.Context) {
	var payload model2.SpendCredits
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := payload.ValidateSpendCredits(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.agrion.Spend(c.Request.Context(), payload.FarmID, payload.AmountDecimal())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetCredit(c *gin.Context) {
	resp, err := a.agrion.GetCredit(c.Request.Context(), c.Param("farm_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) CircularDashboard(c *gin.Context) {
	resp, err := a.agrion.CircularDashboard(c.Request.Context(), c.Param("farm_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
