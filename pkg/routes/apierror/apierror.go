// Package apierror maps domain errors onto HTTP responses.
package apierror

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/sage/pkg/models"
)

// FromDomain converts known domain errors into HTTP errors. Overlap and
// ambiguity are conflicts; reference, relevance, score and empty-case errors
// are unprocessable requests. Anything unrecognized passes through for the
// error middleware to report as a 500.
func FromDomain(err error) error {
	if err == nil {
		return nil
	}

	if httperror.IsHTTPError(err) {
		return err
	}

	var overlapErr *models.OverlapError
	if errors.As(err, &overlapErr) {
		return httperror.NewHTTPError(http.StatusConflict, overlapErr.Error())
	}

	var ambiguousErr *models.AmbiguousLimitError
	if errors.As(err, &ambiguousErr) {
		return httperror.NewHTTPError(http.StatusConflict, ambiguousErr.Error())
	}

	var unknownVarErr *models.UnknownVariableError
	if errors.As(err, &unknownVarErr) {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, unknownVarErr.Error())
	}

	var scopeErr *models.UnresolvedScopeError
	if errors.As(err, &scopeErr) {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, scopeErr.Error())
	}

	var emptyCaseErr *models.EmptyCaseError
	if errors.As(err, &emptyCaseErr) {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, emptyCaseErr.Error())
	}

	var missingRefErr *models.MissingReferenceError
	if errors.As(err, &missingRefErr) {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, missingRefErr.Error())
	}

	var relevanceErr *models.InvalidRelevanceError
	if errors.As(err, &relevanceErr) {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, relevanceErr.Error())
	}

	var scoreErr *models.ScoreOutOfBoundsError
	if errors.As(err, &scoreErr) {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, scoreErr.Error())
	}

	return err
}
