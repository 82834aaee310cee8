package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes tags the nrgin transaction with the authenticated rider
// and reports handler errors. It is a no-op when New Relic is off.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}
		if riderID, ok := RiderID(c); ok {
			txn.AddAttribute("rider_id", riderID)
		}
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
