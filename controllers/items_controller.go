// controllers/items_controller.go
package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"

	"lab_inventory/app"
	"lab_inventory/inventory"
	"lab_inventory/models"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// itemRow 导出用，多一列借出数量
type itemRow struct {
	ID                string `csv:"id"`
	Name              string `csv:"name"`
	Category          string `csv:"category"`
	TotalQuantity     int    `csv:"totalQuantity"`
	AvailableQuantity int    `csv:"availableQuantity"`
	BorrowedQuantity  int    `csv:"borrowedQuantity"`
}

func toRows(items []models.Item) []itemRow {
	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, itemRow{
			ID:                it.ID,
			Name:              it.Name,
			Category:          it.Category,
			TotalQuantity:     it.TotalQuantity,
			AvailableQuantity: it.AvailableQuantity,
			BorrowedQuantity:  it.BorrowedQuantity(),
		})
	}
	return rows
}

// GET /api/items
func (ic *ItemController) ListItems(c *gin.Context) {
	snap, err := ic.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": snap.Items})
}

// GET /api/items/:id
func (ic *ItemController) GetItem(c *gin.Context) {
	it, err := ic.Engine.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// POST /api/items
func (ic *ItemController) CreateItem(c *gin.Context) {
	var in inventory.NewItem
	if !bindJSON(c, &in) {
		return
	}
	it, err := ic.Engine.CreateItem(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	ic.invalidateReport(c)
	c.JSON(http.StatusCreated, it)
}

// PUT /api/items/:id
func (ic *ItemController) UpdateItem(c *gin.Context) {
	var in inventory.ItemUpdate
	if !bindJSON(c, &in) {
		return
	}
	it, err := ic.Engine.UpdateItem(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	ic.invalidateReport(c)
	c.JSON(http.StatusOK, it)
}

// PATCH /api/items/:id/capacity  {totalQuantity}
func (ic *ItemController) AdjustCapacity(c *gin.Context) {
	var in struct {
		TotalQuantity *int `json:"totalQuantity" binding:"required"`
	}
	if !bindJSON(c, &in) {
		return
	}
	it, err := ic.Engine.AdjustCapacity(c.Request.Context(), c.Param("id"), *in.TotalQuantity)
	if err != nil {
		respondError(c, err)
		return
	}
	ic.invalidateReport(c)
	c.JSON(http.StatusOK, it)
}

// DELETE /api/items/:id
func (ic *ItemController) DeleteItem(c *gin.Context) {
	if err := ic.Engine.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ic.invalidateReport(c)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /api/items/import  body: JSON 数组，或 text/csv（name,category,totalQuantity）
func (ic *ItemController) ImportItems(c *gin.Context) {
	var in []inventory.NewItem
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		if err := gocsv.Unmarshal(c.Request.Body, &in); err != nil {
			badRequest(c, "invalid csv: "+err.Error())
			return
		}
	} else if !bindJSON(c, &in) {
		return
	}
	items, err := ic.Engine.ImportItems(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	ic.invalidateReport(c)
	c.JSON(http.StatusCreated, app.H{"items": items, "count": len(items)})
}

// GET /api/items/export?format=csv|xlsx
func (ic *ItemController) ExportItems(c *gin.Context) {
	snap, err := ic.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	rows := toRows(snap.Items)

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		b, err := gocsv.MarshalBytes(&rows)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="items.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", b)
	case "xlsx":
		f := buildWorkbook(rows)
		c.Header("Content-Disposition", `attachment; filename="items.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Status(http.StatusOK)
		if err := f.Write(c.Writer); err != nil {
			_ = c.Error(err)
		}
	default:
		badRequest(c, "format must be csv or xlsx")
	}
}

var exportHeaders = []string{"ID", "Name", "Category", "Total", "Available", "Borrowed"}

func cellName(col, row int) string { return fmt.Sprintf("%c%d", 'A'+col, row) }

func buildWorkbook(rows []itemRow) *excelize.File {
	const sheet = "Sheet1"
	f := excelize.NewFile()
	for i, h := range exportHeaders {
		f.SetCellValue(sheet, cellName(i, 1), h)
	}
	for r, it := range rows {
		vals := []interface{}{it.ID, it.Name, it.Category, it.TotalQuantity, it.AvailableQuantity, it.BorrowedQuantity}
		for col, v := range vals {
			f.SetCellValue(sheet, cellName(col, r+2), v)
		}
	}
	return f
}
