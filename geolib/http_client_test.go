package geolib_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/9seconds/whereabouts/geolib"
	"github.com/mccutchen/go-httpbin/v2/httpbin"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/suite"
)

type HTTPClientTestSuite struct {
	suite.Suite

	httpbinEndpoint *httptest.Server
	c               geolib.HTTPClient
}

func (suite *HTTPClientTestSuite) SetupSuite() {
	suite.httpbinEndpoint = httptest.NewServer(httpbin.New().Handler())
}

func (suite *HTTPClientTestSuite) TearDownSuite() {
	suite.httpbinEndpoint.Close()
}

func (suite *HTTPClientTestSuite) SetupTest() {
	suite.c = geolib.NewHTTPClient(suite.httpbinEndpoint.Client(),
		"test",
		100*time.Millisecond,
		1,
		2,
		time.Minute,
		time.Minute)
}

func (suite *HTTPClientTestSuite) TestRateLimiter() {
	now := time.Now()
	wg := &sync.WaitGroup{}

	wg.Add(10)

	for i := 0; i < 10; i++ {
		go func() {
			defer wg.Done()

			req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/get", nil)
			resp, err := suite.c.Do(req)

			suite.NoError(err)
			suite.Equal(http.StatusOK, resp.StatusCode)

			resp.Body.Close()
		}()
	}

	wg.Wait()

	suite.True(time.Since(now) > 700*time.Millisecond)
	suite.WithinDuration(now, time.Now(), 12*100*time.Millisecond)
}

func (suite *HTTPClientTestSuite) TestUserAgent() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/user-agent", nil)
	resp, err := suite.c.Do(req)

	suite.NoError(err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	suite.NoError(err)
	suite.Contains(string(body), `"test"`)
}

func (suite *HTTPClientTestSuite) TestBadStatus() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/status/500", nil)
	_, err := suite.c.Do(req)

	suite.Error(err)
}

func (suite *HTTPClientTestSuite) TestCannotDial() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"1"+"/status/500", nil)
	_, err := suite.c.Do(req)

	suite.Error(err)
}

func (suite *HTTPClientTestSuite) TestCircuitBreakerOpens() {
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/status/503", nil)
		_, err := suite.c.Do(req)

		suite.Error(err)
	}

	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/get", nil)
	_, err := suite.c.Do(req)

	suite.ErrorIs(err, gobreaker.ErrOpenState)
}

func TestHTTPClient(t *testing.T) {
	suite.Run(t, &HTTPClientTestSuite{})
}
