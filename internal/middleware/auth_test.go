package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"finlink/internal/logger"
	"finlink/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/test", func(c *gin.Context) {
		userID, _ := c.Get("userID")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return r
}

func doAuthRequest(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	user := &models.User{Email: "auth@test.com"}
	user.ID = 42
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{
			name:       "valid_token",
			header:     "Bearer " + token,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing_header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong_scheme",
			header:     "Basic " + token,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed_header",
			header:     "Bearer",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage_token",
			header:     "Bearer not-a-jwt",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupAuthRouter()
			rec := doAuthRequest(router, tt.header)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestGenerateTokenCarriesClaims(t *testing.T) {
	user := &models.User{Email: "claims@test.com"}
	user.ID = 7
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	router := setupAuthRouter()
	rec := doAuthRequest(router, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"user_id":7}` {
		t.Errorf("unexpected body: %s", body)
	}
}
