package controllers

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chiayulin/pickline-backend/api/responses"
	"github.com/chiayulin/pickline-backend/api/validators"
	"github.com/chiayulin/pickline-backend/internal/catalog"
	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
)

// ListProducts refreshes and returns the catalog.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.LoadProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

type createProductRequest struct {
	Name             string          `json:"name" validate:"required"`
	Price            decimal.Decimal `json:"price"`
	Weight           decimal.Decimal `json:"weight"`
	Stock            int             `json:"stock" validate:"min=0"`
	ImageBase64      string          `json:"image_base64,omitempty"`
	ImageContentType string          `json:"image_content_type,omitempty"`
}

// CreateProduct creates a catalog product, uploading its image first when one
// is provided.
func CreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		imageData, err := decodeImage(payload.ImageBase64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			Name:             payload.Name,
			Price:            payload.Price,
			Weight:           payload.Weight,
			Stock:            payload.Stock,
			ImageData:        imageData,
			ImageContentType: payload.ImageContentType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name             *string          `json:"name,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	Weight           *decimal.Decimal `json:"weight,omitempty"`
	ImageBase64      string           `json:"image_base64,omitempty"`
	ImageContentType string           `json:"image_content_type,omitempty"`
}

// UpdateProduct edits a product's name, price, weight, or image.
func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		imageData, err := decodeImage(payload.ImageBase64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, catalog.UpdateProductInput{
			Name:             payload.Name,
			Price:            payload.Price,
			Weight:           payload.Weight,
			ImageData:        imageData,
			ImageContentType: payload.ImageContentType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// DeleteProduct removes a product and its stored image.
func DeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

func decodeImage(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image encoding")
	}
	return data, nil
}
