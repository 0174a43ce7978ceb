package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/service"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/middleware/requestid"
)

type resolverStub struct {
	principal   *models.Principal
	validateErr error
	resolveErr  error
	tokens      []string
}

func (r *resolverStub) ValidateToken(token string) (*models.JWTClaims, error) {
	r.tokens = append(r.tokens, token)
	if r.validateErr != nil {
		return nil, r.validateErr
	}
	claims := &models.JWTClaims{}
	claims.Subject = r.principal.UserID
	return claims, nil
}

func (r *resolverStub) ResolvePrincipal(_ context.Context, claims *models.JWTClaims) (*models.Principal, error) {
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	return r.principal, nil
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func protectedRouter(resolver PrincipalResolver, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(resolver)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, principal.UserID)
	})
	r.GET("/protected", handlers...)
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTStoresResolvedPrincipal(t *testing.T) {
	resolver := &resolverStub{principal: &models.Principal{UserID: "u-1", OrganizationID: "org-1"}}
	rec := serve(protectedRouter(resolver), "Bearer  token-abc ")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", rec.Body.String())
	assert.Equal(t, []string{"token-abc"}, resolver.tokens)
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	resolver := &resolverStub{principal: &models.Principal{UserID: "u-1"}}
	r := protectedRouter(resolver)

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer   "} {
		rec := serve(r, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, rec), header)
	}
	assert.Empty(t, resolver.tokens)
}

func TestJWTPropagatesValidationAndResolutionErrors(t *testing.T) {
	invalid := &resolverStub{validateErr: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")}
	rec := serve(protectedRouter(invalid), "Bearer x")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	failing := &resolverStub{principal: &models.Principal{UserID: "u-1"}, resolveErr: appErrors.Internal(assert.AnError, "failed to load user")}
	rec = serve(protectedRouter(failing), "Bearer x")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, appErrors.ErrInternal.Code, errorCode(t, rec))
}

func TestRequireCapability(t *testing.T) {
	member := &resolverStub{principal: &models.Principal{UserID: "u-2", OrganizationID: "org-1"}}
	rec := serve(protectedRouter(member, RequireCapability(models.CapabilityManageRoles)), "Bearer x")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, rec))

	manager := &resolverStub{principal: &models.Principal{
		UserID:         "u-1",
		OrganizationID: "org-1",
		Capabilities:   models.Capabilities{ManageRoles: true},
	}}
	rec = serve(protectedRouter(manager, RequireCapability(models.CapabilityManageRoles)), "Bearer x")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireCapabilityWithoutPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", RequireCapability(models.CapabilityManageUsers), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireOrganization(t *testing.T) {
	newcomer := &resolverStub{principal: &models.Principal{UserID: "u-3"}}
	rec := serve(protectedRouter(newcomer, RequireOrganization()), "Bearer x")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	member := &resolverStub{principal: &models.Principal{UserID: "u-2", OrganizationID: "org-1"}}
	rec = serve(protectedRouter(member, RequireOrganization()), "Bearer x")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/documents/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/documents/doc-2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/no/such/route", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `folio_http_requests_total{method="GET",path="/documents/:id",status="204"} 2`)
	assert.Contains(t, body, `folio_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
	assert.NotContains(t, body, `path="/metrics"`)
}

func TestResponseMetaTracksCacheHitAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	r := gin.New()
	r.Use(requestid.Middleware(), WithResponseMeta())
	r.GET("/stats", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, meta)
	assert.Equal(t, true, meta[MetaCacheHit])
	assert.Equal(t, "req-42", meta[MetaRequestID])
	assert.Contains(t, meta, MetaProcessingTime)
}

func TestSetMetaWithoutResponseMetaMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	SetMeta(c, MetaProcessingTime, int64(3))

	assert.Equal(t, int64(3), ExtractMeta(c)[MetaProcessingTime])
}
