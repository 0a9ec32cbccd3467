package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/expense-api/pkg/routes"
)

func TestRegister_NestedGroups(t *testing.T) {
	mux := http.NewServeMux()

	ok := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body + ":" + r.PathValue("id")))
		}
	}

	routes.Register(mux, "", routes.Group{
		Prefix: "/expense",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/all", Handler: ok("all")},
			{Method: "DELETE", Pattern: "/delete/{id}", Handler: ok("delete")},
		},
		Children: []routes.Group{
			{
				Prefix: "/attachment",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{id}", Handler: ok("download")},
				},
			},
		},
	})

	tests := []struct {
		method string
		path   string
		want   string
		status int
	}{
		{"GET", "/expense/all", "all:", http.StatusOK},
		{"DELETE", "/expense/delete/42", "delete:42", http.StatusOK},
		{"GET", "/expense/attachment/abc", "download:abc", http.StatusOK},
		{"POST", "/expense/all", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.want != "" && w.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.want)
			}
		})
	}
}
