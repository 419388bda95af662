package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type DataController struct{ *Srv }

func NewDataController(s *Srv) *DataController { return &DataController{Srv: s} }

// GET /api/initial-data 首屏全量数据
func (dc *DataController) InitialData(c *gin.Context) {
	snap, err := dc.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GET /api/report
func (dc *DataController) StatusReport(c *gin.Context) {
	r, err := dc.Reports.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
