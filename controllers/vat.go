// controllers/vat.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LookupVat queries the external VAT registry for a tax id so the frontend
// can prefill entity details
func LookupVat(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}

	result := VatRegistry.Lookup(c.Param("taxid"))
	c.JSON(http.StatusOK, result)
}
