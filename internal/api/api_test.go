package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/forkful/forkful-backend/internal/api"
	"github.com/forkful/forkful-backend/internal/router"
	"github.com/forkful/forkful-backend/internal/service"
	"github.com/forkful/forkful-backend/internal/testdb"
)

// memoryImageStore keeps uploads in-process so handler tests never touch S3.
type memoryImageStore struct {
	uploads map[string][]byte
}

func newMemoryImageStore() *memoryImageStore {
	return &memoryImageStore{uploads: map[string][]byte{}}
}

func (s *memoryImageStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.uploads[key] = data
	return "https://images.test/" + key, nil
}

func (s *memoryImageStore) Delete(_ context.Context, key string) error {
	delete(s.uploads, key)
	return nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	images *memoryImageStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.Open(t)
	images := newMemoryImageStore()

	authSvc := service.NewAuthService(db, "test-secret", time.Hour)
	userSvc := service.NewUserService(db, images, 6)
	recipeSvc := service.NewRecipeService(db, 6)
	shoppingSvc := service.NewShoppingListService(db)
	catalogSvc := service.NewCatalogService(db, nil, zap.NewNop())

	engine := router.Setup(
		zap.NewNop(),
		api.NewAuthHandler(authSvc),
		api.NewUserHandler(userSvc, authSvc, 6),
		api.NewRecipeHandler(recipeSvc, shoppingSvc, images, authSvc, 6),
		api.NewCatalogHandler(catalogSvc),
	)
	return &testServer{engine: engine, db: db, images: images}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

// signup registers a user through the API and returns an auth token.
func (ts *testServer) signup(t *testing.T, username string) string {
	t.Helper()
	email := username + "@example.com"
	rec := ts.request(t, http.MethodPost, "/api/users", "", gin.H{
		"email":      email,
		"username":   username,
		"first_name": "Test",
		"last_name":  "User",
		"password":   "letmein123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.request(t, http.MethodPost, "/api/auth/token/login", "", gin.H{
		"email":    email,
		"password": "letmein123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AuthToken string `json:"auth_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AuthToken)
	return resp.AuthToken
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

// userID extracts the id claim by fetching /users/me.
func (ts *testServer) userID(t *testing.T, token string) string {
	t.Helper()
	rec := ts.request(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &resp)
	return resp.ID
}

func jsonPath(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	decodeJSON(t, rec, &m)
	return m
}
