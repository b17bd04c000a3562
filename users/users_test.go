package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"propdesk/apiclient"
)

func TestCreateInput_Validate(t *testing.T) {
	valid := func() CreateInput {
		return CreateInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "secret1"}
	}

	cases := []struct {
		name    string
		mutate  func(*CreateInput)
		wantErr string
	}{
		{name: "valid defaults to client", mutate: func(*CreateInput) {}},
		{name: "missing first name", mutate: func(in *CreateInput) { in.FirstName = " " }, wantErr: "first name is required"},
		{name: "missing last name", mutate: func(in *CreateInput) { in.LastName = "" }, wantErr: "last name is required"},
		{name: "bad email", mutate: func(in *CreateInput) { in.Email = "ada-at-example" }, wantErr: "invalid email address"},
		{name: "display name email", mutate: func(in *CreateInput) { in.Email = "Ada <ada@example.com>" }, wantErr: "invalid email address"},
		{name: "missing password", mutate: func(in *CreateInput) { in.Password = "" }, wantErr: "password is required"},
		{name: "short password", mutate: func(in *CreateInput) { in.Password = "12345" }, wantErr: "at least 6 characters"},
		{name: "unknown type", mutate: func(in *CreateInput) { in.UserType = "owner" }, wantErr: `unknown user type "OWNER"`},
		{name: "lower case type", mutate: func(in *CreateInput) { in.UserType = "staff" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid()
			tc.mutate(&in)
			err := in.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if in.UserType == "" {
					t.Fatal("expected user type to be defaulted")
				}
				return
			}
			if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q, got %v", tc.wantErr, err)
			}
		})
	}

	in := valid()
	_ = in.Validate()
	if in.UserType != DefaultType {
		t.Fatalf("expected %s got %s", DefaultType, in.UserType)
	}
}

func TestUpdateInput_PasswordOptional(t *testing.T) {
	in := UpdateInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", UserType: TypeAdmin}
	if err := in.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in.Password = "abc"
	if err := in.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected short password to fail, got %v", err)
	}
}

func TestService_Endpoints(t *testing.T) {
	type call struct {
		method, path string
		body         map[string]any
	}
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path}
		_ = json.NewDecoder(r.Body).Decode(&c.body)
		calls = append(calls, c)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.URL.Path == basePath && r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`[{"id":1,"email":"ada@example.com","userType":"ADMIN","roles":[{"id":1,"name":"admin"}]}]`))
			return
		}
		_, _ = w.Write([]byte(`{"id":2,"email":"bob@example.com","first_name":"Bob","userType":"CLIENT"}`))
	}))
	defer srv.Close()

	svc := NewService(apiclient.New(srv.URL))
	ctx := context.Background()

	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 || !list[0].HasRole("admin") {
		t.Fatalf("list: %+v %v", list, err)
	}
	created, err := svc.Create(ctx, CreateInput{FirstName: "Bob", LastName: "B", Email: "bob@example.com", Password: "hunter22"})
	if err != nil || created.ID != 2 || created.FirstName != "Bob" {
		t.Fatalf("create: %+v %v", created, err)
	}
	if _, err := svc.Get(ctx, 2); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.Update(ctx, 2, UpdateInput{FirstName: "Bob", LastName: "B", Email: "bob@example.com"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []struct{ method, path string }{
		{http.MethodGet, "/users"},
		{http.MethodPost, "/users/register"},
		{http.MethodGet, "/users/2"},
		{http.MethodPatch, "/users/2"},
		{http.MethodDelete, "/users/2"},
	}
	for i, w := range want {
		if calls[i].method != w.method || calls[i].path != w.path {
			t.Fatalf("call %d: expected %s %s got %s %s", i, w.method, w.path, calls[i].method, calls[i].path)
		}
	}
	if calls[1].body["userType"] != TypeClient || calls[1].body["password"] != "hunter22" {
		t.Fatalf("unexpected register body %v", calls[1].body)
	}
	if _, ok := calls[3].body["password"]; ok {
		t.Fatalf("expected empty password to be omitted on update, got %v", calls[3].body)
	}
}

func TestService_RejectsInvalidIDs(t *testing.T) {
	svc := NewService(apiclient.New("http://127.0.0.1:0"))
	if _, err := svc.Get(context.Background(), 0); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := svc.Update(context.Background(), -4, UpdateInput{}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if err := svc.Delete(context.Background(), 0); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
