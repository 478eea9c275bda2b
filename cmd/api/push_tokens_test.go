package main

import (
	"net/http"
	"testing"
)

func TestPushTokens(t *testing.T) {
	env := newTestEnv(t)
	user := env.token(t, "u1", "u1@campus.edu")
	token := "ExponentPushToken[abc]"

	rr := env.do(t, http.MethodPost, "/v1/users/me/push-tokens", user, SavePushTokenRequest{Token: token})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("save status = %d (body %s)", rr.Code, rr.Body.String())
	}
	if !env.tokens.tokens["u1"][token] {
		t.Fatal("token was not stored")
	}

	if rr := env.do(t, http.MethodPost, "/v1/users/me/push-tokens", user, SavePushTokenRequest{}); rr.Code != http.StatusBadRequest {
		t.Errorf("empty token status = %d, want 400", rr.Code)
	}

	bulk := BulkRemoveTokensRequest{Tokens: []string{token}}
	if rr := env.do(t, http.MethodPost, "/v1/admin/push-tokens/bulk-remove", user, bulk); rr.Code != http.StatusForbidden {
		t.Errorf("non-admin bulk remove status = %d, want 403", rr.Code)
	}
	admin := env.token(t, "admin", adminEmail)
	if rr := env.do(t, http.MethodPost, "/v1/admin/push-tokens/bulk-remove", admin, bulk); rr.Code != http.StatusNoContent {
		t.Fatalf("admin bulk remove status = %d", rr.Code)
	}
	if env.tokens.tokens["u1"][token] {
		t.Error("token still stored after bulk remove")
	}
}
