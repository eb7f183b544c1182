package main

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// basicAuthMiddleware protects log dumps. All other paths are passed
// as is.
type basicAuthMiddleware struct {
	handler   http.Handler
	user      []byte
	password  []byte
	protected []string
}

func (b *basicAuthMiddleware) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !b.isProtected(req.URL.Path) {
		b.handler.ServeHTTP(w, req)

		return
	}

	user, pass, _ := req.BasicAuth()

	if subtle.ConstantTimeCompare(b.user, []byte(user))+subtle.ConstantTimeCompare(b.password, []byte(pass)) == 2 {
		b.handler.ServeHTTP(w, req)

		return
	}

	w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
	http.Error(w, "Authentication is required", http.StatusUnauthorized)
}

func (b *basicAuthMiddleware) isProtected(path string) bool {
	path = strings.TrimRight(path, "/")

	for _, v := range b.protected {
		if path == v {
			return true
		}
	}

	return false
}
