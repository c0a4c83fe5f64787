package envelope

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CodeContextKey is where the emitted envelope code is recorded so outer
// middleware (timing, metrics) can report the business outcome.
const CodeContextKey = "envelope_code"

// Write emits a response under the uniform contract: transport status 200,
// outcome carried in Code.
func Write(c *gin.Context, resp *Response) {
	c.Set(CodeContextKey, resp.Code)
	c.JSON(http.StatusOK, resp)
}
