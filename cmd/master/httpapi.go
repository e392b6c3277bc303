package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/rangedb/htcore/master/ops"
	"github.com/rangedb/htcore/master/processor"
)

// newRouter builds the admin/status HTTP surface (SPEC_FULL §2's
// DOMAIN STACK entry for gin+swaggo), grounded on the teacher's
// restapi/register.go route table but without its okta bearer-token
// middleware: authentication is an explicit spec Non-goal.
func newRouter(p *processor.Processor) *gin.Engine {
	r := gin.Default()

	v1 := r.Group("/api/v1")
	v1.GET("/status", func(c *gin.Context) { getStatus(c, p) })

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	return r
}

// getStatus submits a Status operation and drains the processor once,
// returning the StatusSnapshot the synchronous executeStatus transition
// filled in.
//
// @Summary List live operations and the dependency graph's ready frontier
// @Produce json
// @Success 200 {object} ops.StatusSnapshot
// @Router /status [get]
func getStatus(c *gin.Context, p *processor.Processor) {
	op := ops.NewOperation(ops.Status, &ops.StatusPayload{})
	p.Add(op)
	if _, err := p.Drain(context.Background()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	payload := op.Payload.(*ops.StatusPayload)
	c.JSON(http.StatusOK, payload.Result)
}
