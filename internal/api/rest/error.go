package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/gen-art/marketplace-api/internal/api/shared/errors"
	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/logger"
)

// abortWithError translates an error into an HTTP status and a structured
// body. Domain errors map to client-facing codes; anything unrecognized is a
// 500 whose detail stays in the log, not the response.
func abortWithError(c *gin.Context, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(statusOf(apiErr.Code), gin.H{"error": apiErr})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidEntityID),
		errors.Is(err, domain.ErrUnknownFilterField),
		errors.Is(err, domain.ErrUnknownSortField):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error": apierrors.NewValidationError(err.Error()),
		})
	case errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrIterationNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error": apierrors.NewNotFoundError(err.Error()),
		})
	case errors.Is(err, domain.ErrSearchUnavailable):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error": apierrors.NewServiceError("search unavailable"),
		})
	default:
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": apierrors.NewInternalError("internal server error"),
		})
	}
}

// abortWithBadRequest rejects a request whose parameters could not be parsed
func abortWithBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": apierrors.NewBadRequestError(err.Error()),
	})
}

func statusOf(code apierrors.ErrorCode) int {
	switch code {
	case apierrors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case apierrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apierrors.ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case apierrors.ErrCodeServiceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
