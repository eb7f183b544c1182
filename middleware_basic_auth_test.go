package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

type BasicAuthMiddlewareTestSuite struct {
	suite.Suite

	handler http.Handler
}

func (suite *BasicAuthMiddlewareTestSuite) SetupTest() {
	suite.handler = &basicAuthMiddleware{
		handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		user:      []byte("user"),
		password:  []byte("password"),
		protected: []string{"/visitors", "/robots_log"},
	}
}

func (suite *BasicAuthMiddlewareTestSuite) serve(path, user, password string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.SetBasicAuth(user, password)
	}

	rec := httptest.NewRecorder()

	suite.handler.ServeHTTP(rec, req)

	return rec.Code
}

func (suite *BasicAuthMiddlewareTestSuite) TestUnprotectedPath() {
	suite.Equal(http.StatusTeapot, suite.serve("/accuracy", "", ""))
}

func (suite *BasicAuthMiddlewareTestSuite) TestNoCredentials() {
	suite.Equal(http.StatusUnauthorized, suite.serve("/visitors", "", ""))
	suite.Equal(http.StatusUnauthorized, suite.serve("/robots_log/", "", ""))
}

func (suite *BasicAuthMiddlewareTestSuite) TestIncorrectCredentials() {
	suite.Equal(http.StatusUnauthorized, suite.serve("/visitors", "user", "wrong"))
	suite.Equal(http.StatusUnauthorized, suite.serve("/visitors", "admin", "password"))
}

func (suite *BasicAuthMiddlewareTestSuite) TestCorrectCredentials() {
	suite.Equal(http.StatusTeapot, suite.serve("/visitors", "user", "password"))
}

func TestBasicAuthMiddleware(t *testing.T) {
	suite.Run(t, &BasicAuthMiddlewareTestSuite{})
}
