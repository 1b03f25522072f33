package server

import "testing"

func TestShouldSkipJWT(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		skip bool
	}{
		{"/ping", true},
		{"/health", true},
		{"/auth/login", true},
		{"/whatsapp/webhook", true},
		{"/instagram/webhook", true},
		{"/email/mailgun/webhook", true},
		{"/api/messages/process", true},
		{"/api/send/reply", true},
		{"/api/admin/sessions", false},
		{"/api/admin/sessions/whatsapp/628111", false},
		{"/", false},
	}
	for _, tc := range tests {
		if got := shouldSkipJWT(tc.path); got != tc.skip {
			t.Errorf("shouldSkipJWT(%q) = %v, want %v", tc.path, got, tc.skip)
		}
	}
}
