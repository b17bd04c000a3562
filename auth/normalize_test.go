package auth

import (
	"encoding/json"
	"testing"
)

func TestNormalizeLogin_Shapes(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantPending bool
		wantUserID  string
		wantToken   string
		wantUser    bool
		wantMessage string
	}{
		{
			name:      "flat accessToken",
			body:      `{"accessToken":"t1","user":{"id":1,"email":"a@b.com"}}`,
			wantToken: "t1",
			wantUser:  true,
		},
		{
			name:      "flat token",
			body:      `{"token":"t2","user":{"id":2}}`,
			wantToken: "t2",
			wantUser:  true,
		},
		{
			name:      "data envelope",
			body:      `{"success":true,"data":{"accessToken":"t3","user":{"id":3}}}`,
			wantToken: "t3",
			wantUser:  true,
		},
		{
			name:      "envelope wins over top level",
			body:      `{"token":"outer","data":{"token":"inner","user":{"id":4}}}`,
			wantToken: "inner",
			wantUser:  true,
		},
		{
			name:        "requires2FA flag",
			body:        `{"requires2FA":true,"userId":"a@b.com"}`,
			wantPending: true,
			wantUserID:  "a@b.com",
		},
		{
			name:        "requiresTwoFactor with numeric user_id",
			body:        `{"requiresTwoFactor":true,"user_id":42}`,
			wantPending: true,
			wantUserID:  "42",
		},
		{
			name:        "requiresTwoFactor with string user_id",
			body:        `{"requiresTwoFactor":true,"user_id":"42"}`,
			wantPending: true,
			wantUserID:  "42",
		},
		{
			name:        "message heuristic",
			body:        `{"message":"A Verification Code has been sent to your email"}`,
			wantPending: true,
			wantMessage: "A Verification Code has been sent to your email",
		},
		{
			name:        "msg alias inside envelope",
			body:        `{"data":{"msg":"enter the verification code"}}`,
			wantPending: true,
			wantMessage: "enter the verification code",
		},
		{
			name:        "detail alias",
			body:        `{"detail":"logged in","token":"t5","user":{"id":5}}`,
			wantToken:   "t5",
			wantUser:    true,
			wantMessage: "logged in",
		},
		{
			name:        "explicit false flag with heuristic message",
			body:        `{"requires2FA":false,"message":"verification code sent"}`,
			wantPending: true,
			wantMessage: "verification code sent",
		},
		{
			name: "nothing useful",
			body: `{"ok":true}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var raw rawLoginResponse
			if err := json.Unmarshal([]byte(tc.body), &raw); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			n := normalizeLogin(raw)

			if n.pending() != tc.wantPending {
				t.Errorf("pending: expected %v got %v", tc.wantPending, n.pending())
			}
			if n.userID != tc.wantUserID {
				t.Errorf("userID: expected %q got %q", tc.wantUserID, n.userID)
			}
			if n.accessToken != tc.wantToken {
				t.Errorf("token: expected %q got %q", tc.wantToken, n.accessToken)
			}
			if (n.user != nil) != tc.wantUser {
				t.Errorf("user present: expected %v got %v", tc.wantUser, n.user != nil)
			}
			if n.message != tc.wantMessage {
				t.Errorf("message: expected %q got %q", tc.wantMessage, n.message)
			}
		})
	}
}

func TestUser_UnmarshalTimestampsAndRoles(t *testing.T) {
	body := `{
		"id": 7,
		"email": "ops@example.com",
		"first_name": "Olive",
		"last_name": "Ops",
		"userType": "ADMIN",
		"roles": [{"id": 1, "name": "admin"}],
		"created_at": "2024-10-31T15:04:05Z",
		"updatedAt": "not a timestamp"
	}`

	var u User
	if err := json.Unmarshal([]byte(body), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.ID != 7 || u.Email != "ops@example.com" || u.UserType != "ADMIN" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.CreatedAt.IsZero() || u.CreatedAt.Year() != 2024 {
		t.Fatalf("expected created_at to be parsed, got %v", u.CreatedAt)
	}
	if !u.UpdatedAt.IsZero() {
		t.Fatalf("expected unparseable updatedAt to stay zero, got %v", u.UpdatedAt)
	}
	if !u.HasRole("admin") || u.HasRole("owner") {
		t.Fatalf("unexpected roles: %+v", u.Roles)
	}
	if u.DisplayName() != "Olive Ops" {
		t.Fatalf("unexpected display name %q", u.DisplayName())
	}
}
