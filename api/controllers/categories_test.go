package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/categories"
)

type stubCategoryService struct {
	categories.Service
	listParent *uuid.UUID
	listCalls  int
	created    []categories.CreateCategoryInput
	patches    []categories.Patch
	deleted    []uuid.UUID
	deleteErr  error
}

func (s *stubCategoryService) ListCategories(_ context.Context, _ uuid.UUID, parentID *uuid.UUID) ([]categories.CategoryDTO, error) {
	s.listCalls++
	s.listParent = parentID
	return []categories.CategoryDTO{}, nil
}

func (s *stubCategoryService) CreateCategory(_ context.Context, _, storeID uuid.UUID, input categories.CreateCategoryInput) (*categories.CategoryDTO, error) {
	s.created = append(s.created, input)
	return &categories.CategoryDTO{ID: uuid.New(), StoreID: storeID, Name: input.Name}, nil
}

func (s *stubCategoryService) UpdateCategory(_ context.Context, _, storeID, categoryID uuid.UUID, patch categories.Patch) (*categories.CategoryDTO, error) {
	s.patches = append(s.patches, patch)
	return &categories.CategoryDTO{ID: categoryID, StoreID: storeID}, nil
}

func (s *stubCategoryService) DeleteCategory(_ context.Context, _, _, categoryID uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, categoryID)
	return nil
}

func TestCategoryListParentFilter(t *testing.T) {
	svc := &stubCategoryService{}
	resp := httptest.NewRecorder()
	CategoryList(svc, nil)(resp, scoped(httptest.NewRequest(http.MethodGet, "/categories", nil), nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Nil(t, svc.listParent)

	parent := uuid.New()
	resp = httptest.NewRecorder()
	CategoryList(svc, nil)(resp, scoped(httptest.NewRequest(http.MethodGet, "/categories?parent_id="+parent.String(), nil), nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.listParent)
	require.Equal(t, parent, *svc.listParent)

	resp = httptest.NewRecorder()
	CategoryList(svc, nil)(resp, scoped(httptest.NewRequest(http.MethodGet, "/categories?parent_id=nope", nil), nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, 2, svc.listCalls)
}

func TestCategoryCreateValidatesBody(t *testing.T) {
	svc := &stubCategoryService{}
	body := `{"name":"Lighting","slug":"lighting","sort_order":3}`

	resp := httptest.NewRecorder()
	CategoryCreate(svc, nil)(resp, adminRequest(httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(body)), uuid.New()))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Len(t, svc.created, 1)
	require.Equal(t, 3, svc.created[0].SortOrder)

	resp = httptest.NewRecorder()
	CategoryCreate(svc, nil)(resp, adminRequest(httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"slug":"x"}`)), uuid.New()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Len(t, svc.created, 1)

	resp = httptest.NewRecorder()
	CategoryCreate(svc, nil)(resp, scoped(httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(body)), nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCategoryUpdatePassesRawPatch(t *testing.T) {
	svc := &stubCategoryService{}
	categoryID := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/categories/"+categoryID.String(), strings.NewReader(`{"parent_id":null,"is_active":false}`))
	req = withURLParam(adminRequest(req, uuid.New()), "categoryId", categoryID.String())

	resp := httptest.NewRecorder()
	CategoryUpdate(svc, nil)(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Len(t, svc.patches, 1)
	require.JSONEq(t, `null`, string(svc.patches[0]["parent_id"]))
	require.JSONEq(t, `false`, string(svc.patches[0]["is_active"]))
}

func TestCategoryDeleteInUseConflicts(t *testing.T) {
	categoryID := uuid.New()
	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodDelete, "/categories/"+categoryID.String(), nil)
		return withURLParam(adminRequest(req, uuid.New()), "categoryId", categoryID.String())
	}

	svc := &stubCategoryService{deleteErr: categories.ErrHasProducts}
	resp := httptest.NewRecorder()
	CategoryDelete(svc, nil)(resp, newReq())
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Empty(t, svc.deleted)

	svc.deleteErr = nil
	resp = httptest.NewRecorder()
	CategoryDelete(svc, nil)(resp, newReq())
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, []uuid.UUID{categoryID}, svc.deleted)
}
