package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ali123/ali123/custom_errors"
	"github.com/ali123/ali123/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type errorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []fieldDetail `json:"details,omitempty"`
}

type fieldDetail struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message})
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(kind custom_errors.Kind) int {
	switch kind {
	case custom_errors.KindValidation, custom_errors.KindUnsupportedRuleType, custom_errors.KindInvalidRuleValue:
		return http.StatusBadRequest
	case custom_errors.KindNotFound:
		return http.StatusNotFound
	case custom_errors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleError renders err as {"code","message"}. Persistence and sync
// failures hide their cause from the caller.
func handleError(c *gin.Context, err error) {
	kind := custom_errors.KindOf(err)
	status := statusFor(kind)
	message := err.Error()

	var de *custom_errors.DomainError
	if errors.As(err, &de) {
		message = de.Message
	}
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: kind.String(), Message: message})
}

// bindError reports malformed or invalid request input as a validation error.
func bindError(c *gin.Context, err error) {
	resp := errorResponse{Code: custom_errors.KindValidation.String(), Message: "invalid request"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Details = append(resp.Details, fieldDetail{Field: strings.ToLower(fe.Field()), Rule: fe.Tag()})
		}
		resp.Message = "request validation failed"
	} else if err != nil {
		resp.Message = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func parseID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		abortWithError(c, http.StatusBadRequest, custom_errors.KindValidation.String(), fmt.Sprintf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func printBanner(addr string) {
	width := 46
	fmt.Println("##############################################")
	fmt.Printf("# %-*s #\n", width-4, "")
	fmt.Printf("# %-*s #\n", width-4, "ali123 started")
	fmt.Printf("# %-*s #\n", width-4, fmt.Sprintf("API listening on %s", addr))
	fmt.Printf("# %-*s #\n", width-4, "")
	fmt.Println("##############################################")
}
