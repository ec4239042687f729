package handler

import (
	"procurement/pkg/apperror"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

// fail writes the error envelope with the status that matches the error kind
func fail(c *gin.Context, err error) {
	resp := response.FromError(err)
	c.JSON(resp.StatusCode, resp)
}

func badPayload(c *gin.Context, err error) {
	fail(c, apperror.Wrap(apperror.KindValidationFailed, err, "Invalid request payload"))
}
