package internal

import (
	"net/http"
	"strings"
)

// Names of the method override parameters.
const (
	MethodOverrideField = "_method"
	MethodOverrideQuery = "__METHOD__"
)

// MethodOverride lets HTML forms reach DELETE, PUT and PATCH routes by
// posting a _method form field or a __METHOD__ query parameter.
// Only POST requests are rewritten.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			m := r.URL.Query().Get(MethodOverrideQuery)
			if m == "" {
				m = r.PostFormValue(MethodOverrideField)
			}
			switch m = strings.ToUpper(m); m {
			case http.MethodDelete, http.MethodPut, http.MethodPatch:
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}
