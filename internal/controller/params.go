package controller

import (
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// pathID parses a positive id path parameter, answering 400 when it is not one.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParseID(name, ctx.Param(name))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return 0, false
	}
	return id, true
}

// currentUser answers 401 when the request carries no claims.
func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return claims, true
}
