package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	apierrors "github.com/DennisWilmot/land-mapping-web/internal/errors"
	"github.com/DennisWilmot/land-mapping-web/internal/services"
)

// respondServiceError maps service sentinel errors onto the error envelope.
// fallback is the 500 message for anything unrecognised.
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrDatasetNotLoaded):
		apierrors.ServiceUnavailable(c, "Parcel data is not loaded yet")
	case errors.Is(err, services.ErrInvalidCoordinates),
		errors.Is(err, services.ErrInvalidFilter),
		errors.Is(err, services.ErrInvalidPick):
		apierrors.BadRequest(c, err.Error(), nil)
	case errors.Is(err, services.ErrParcelNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalServerError(c, fallback, err)
	}
}
