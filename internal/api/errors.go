package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/grabnode/internal/rig"
)

// mapRigError maps rig errors to HTTP errors.
func mapRigError(err error) error {
	var rigErr *rig.Error
	if errors.As(err, &rigErr) {
		switch rigErr.Code {
		case rig.ErrCodeCameraNotFound, rig.ErrCodeSubscriptionNotFound:
			return huma.Error404NotFound(rigErr.Message, err)
		case rig.ErrCodeInvalidParams:
			return huma.Error400BadRequest(rigErr.Message, err)
		case rig.ErrCodeProviderError:
			return huma.NewError(http.StatusBadGateway, rigErr.Message, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.NewError(http.StatusGatewayTimeout, "operation timed out", err)
	}
	return huma.Error500InternalServerError("internal server error", err)
}
