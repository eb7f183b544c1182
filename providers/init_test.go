package providers_test

import (
	"net/http"
	"time"

	"github.com/9seconds/whereabouts/geolib"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/suite"
)

type ProviderTestSuite struct {
	suite.Suite

	http geolib.HTTPClient
}

func (suite *ProviderTestSuite) SetupTest() {
	suite.http = geolib.NewHTTPClient(&http.Client{},
		"test-agent",
		time.Millisecond,
		100,
		100,
		time.Second,
		time.Second)
}

type MockedProviderTestSuite struct {
	ProviderTestSuite
}

func (suite *MockedProviderTestSuite) SetupSuite() {
	httpmock.Activate()
}

func (suite *MockedProviderTestSuite) TearDownSuite() {
	httpmock.DeactivateAndReset()
}

func (suite *MockedProviderTestSuite) TearDownTest() {
	httpmock.Reset()
}
