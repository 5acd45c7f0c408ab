package apperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/m-mizutani/ctxlog"

	"github.com/schedops/ediscope/pkg/domain/model"
)

func Handle(ctx context.Context, err error) {
	logger := ctxlog.From(ctx)
	logger.Error("application error", "error", err)
}

// HTTPStatus maps an application error to the HTTP status code it should
// be reported with. Malformed input and bad request parameters are the
// caller's fault, everything else is ours.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrParse),
		errors.Is(err, model.ErrNoBuckets),
		errors.Is(err, model.ErrBadConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
