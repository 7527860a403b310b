package integration

import (
	"net/http"
	"testing"
)

func TestAuthFlow_RegisterLoginProfile(t *testing.T) {
	app := setupApp(t)

	token, userID := app.registerUser(t, "auth@test.com", "password123")
	if token == "" {
		t.Fatal("expected non-empty token from registration")
	}
	if userID == 0 {
		t.Fatal("expected non-zero user ID")
	}

	rec := app.request("POST", "/api/v1/auth/login",
		`{"email":"auth@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	loginToken := parseJSON(t, rec)["token"].(string)

	rec = app.request("GET", "/api/v1/profile", "", loginToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["email"] != "auth@test.com" {
		t.Errorf("expected email auth@test.com, got %v", user["email"])
	}
}

func TestAuthFlow_RegisterDuplicateEmail(t *testing.T) {
	app := setupApp(t)

	app.registerUser(t, "dup@test.com", "password123")

	rec := app.request("POST", "/api/v1/auth/register",
		`{"email":"dup@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "DUPLICATE_EMAIL" {
		t.Errorf("expected DUPLICATE_EMAIL, got %v", errObj["code"])
	}
}

func TestAuthFlow_LoginWrongPassword(t *testing.T) {
	app := setupApp(t)

	app.registerUser(t, "wrong@test.com", "password123")

	rec := app.request("POST", "/api/v1/auth/login",
		`{"email":"wrong@test.com","password":"wrongpassword"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %v", errObj["code"])
	}
}

func TestAuthFlow_ProtectedRouteRequiresToken(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/v1/transactions", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = app.request("GET", "/api/v1/transactions", "", "not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}
