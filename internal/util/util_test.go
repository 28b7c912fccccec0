package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"placeprep_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "a@example.com", Role: model.RoleModerator}
	user.ID = 7

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, model.RoleModerator, claims.Role)
	assert.Equal(t, "a@example.com", claims.Email)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load contest: %w", ErrNotFound), http.StatusNotFound},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrEmailNotVerified, http.StatusForbidden},
		{ErrInvalidContestCode, http.StatusForbidden},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrContestEnded, http.StatusBadRequest},
		{fmt.Errorf("%w: row 3: missing category", ErrValidation), http.StatusBadRequest},
		{ErrAlreadySubmitted, http.StatusBadRequest},
		{ErrQuestionInUse, http.StatusBadRequest},
		{fmt.Errorf("dial tcp: refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestHandleErrorHidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/results", nil)

	HandleError(c, fmt.Errorf("select participations: connection reset"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Message)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestHandleErrorKnown(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/testseries/1/join", nil)

	HandleError(c, ErrContestNotStarted)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Equal(t, ErrContestNotStarted.Error(), body.Message)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", DefaultPage, DefaultLimit},
		{"page=3&limit=5", 3, 5},
		{"page=-1&limit=abc", DefaultPage, DefaultLimit},
		{"limit=1000", DefaultPage, MaxLimit},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		page, limit := Pagination(c)
		assert.Equal(t, tt.wantPage, page, tt.query)
		assert.Equal(t, tt.wantLimit, limit, tt.query)
	}
}

func TestParamUint(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: "42"}, {Key: "bad", Value: "x"}}

	id, ok := ParamUint(c, "id")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = ParamUint(c, "bad")
	assert.False(t, ok)
}

func TestDetectImportKind(t *testing.T) {
	kind, err := DetectImportKind("bank.json", strings.NewReader(`[{"category":"Aptitude"}]`))
	require.NoError(t, err)
	assert.Equal(t, ImportJSON, kind)

	kind, err = DetectImportKind("Bank.XLSX", strings.NewReader("PK\x03\x04\x14\x00\x06\x00"))
	require.NoError(t, err)
	assert.Equal(t, ImportXLSX, kind)

	_, err = DetectImportKind("bank.xlsx", strings.NewReader(`{"not":"a zip"}`))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = DetectImportKind("bank.csv", strings.NewReader("a,b,c"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}
