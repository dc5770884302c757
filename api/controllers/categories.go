package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type createCategoryRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Slug        string     `json:"slug" validate:"required,max=255"`
	Description *string    `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty" validate:"omitempty,url,max=2048"`
	SortOrder   int        `json:"sort_order"`
}

// CategoryList returns the store's active top-level categories, or the
// children of ?parent_id.
func CategoryList(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("category"))
			return
		}
		var parentID *uuid.UUID
		if raw := strings.TrimSpace(r.URL.Query().Get("parent_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "parent_id must be a uuid").
					WithDetails(map[string]any{"field": "parent_id"}))
				return
			}
			parentID = &id
		}
		result, err := svc.ListCategories(r.Context(), middleware.StoreIDFromContext(r.Context()), parentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CategoryDetail(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("category"))
			return
		}
		categoryID, err := validators.ParseURLUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.GetCategory(r.Context(), middleware.StoreIDFromContext(r.Context()), categoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CategoryCreate(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("category"))
			return
		}
		storeID, userID, err := storeAdminScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateCategory(r.Context(), userID, storeID, categories.CreateCategoryInput{
			Name:        body.Name,
			Slug:        body.Slug,
			Description: body.Description,
			ParentID:    body.ParentID,
			ImageURL:    body.ImageURL,
			SortOrder:   body.SortOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, created)
	}
}

// CategoryUpdate applies a partial update restricted to the updatable field allow-list.
func CategoryUpdate(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("category"))
			return
		}
		storeID, userID, err := storeAdminScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseURLUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var patch categories.Patch
		if r.Body == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body is required"))
			return
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxPatchBytes)).Decode(&patch); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
				WithDetails(map[string]any{"updatable_fields": categories.UpdatableFields()}))
			return
		}

		updated, err := svc.UpdateCategory(r.Context(), userID, storeID, categoryID, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func CategoryDelete(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("category"))
			return
		}
		storeID, userID, err := storeAdminScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseURLUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCategory(r.Context(), userID, storeID, categoryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
