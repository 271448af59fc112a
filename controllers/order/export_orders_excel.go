package orderControllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"

	"github.com/BrunoLenon/veipecas2025/store"
)

// GET /orders/export — spreadsheet download of orders for back-office
// reporting. Accepts the same filters as the order list.
func ExportOrdersToExcel(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.OrderFilter{
			UserID:   c.Query("user_id"),
			SellerID: c.Query("seller_id"),
		}
		orders, err := st.Orders().ListOrders(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Orders")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		headers := []string{
			"OrderNumber", "UserID", "SellerID", "Status",
			"Items", "Total", "CreatedAt", "CompletedAt",
		}
		headerRow := sheet.AddRow()
		for _, h := range headers {
			headerRow.AddCell().SetValue(h)
		}

		for _, o := range orders {
			row := sheet.AddRow()
			row.AddCell().SetValue(o.OrderNumber)
			row.AddCell().SetValue(o.UserID)
			if o.SellerID != nil {
				row.AddCell().SetValue(*o.SellerID)
			} else {
				row.AddCell().SetValue("")
			}
			row.AddCell().SetValue(string(o.Status))
			row.AddCell().SetValue(len(o.Items))
			row.AddCell().SetValue(o.Total)
			row.AddCell().SetValue(o.CreatedAt.Format(time.DateTime))
			if o.CompletedAt != nil {
				row.AddCell().SetValue(o.CompletedAt.Format(time.DateTime))
			} else {
				row.AddCell().SetValue("")
			}
		}

		c.Header("Content-Disposition", "attachment; filename=orders.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		if err := file.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
			return
		}
	}
}
