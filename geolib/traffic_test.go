package geolib_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/9seconds/whereabouts/geolib"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	robotUserAgent   = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

type IsRobotUserAgentTestSuite struct {
	suite.Suite
}

func (suite *IsRobotUserAgentTestSuite) TestRobots() {
	suite.True(geolib.IsRobotUserAgent("", false))
	suite.True(geolib.IsRobotUserAgent(robotUserAgent, true))
	suite.True(geolib.IsRobotUserAgent("Yahoo! Slurp", true))
	suite.True(geolib.IsRobotUserAgent("curl/8.0.1", true))
	suite.True(geolib.IsRobotUserAgent("some-crawler 1.0 (mozilla compatible)", true))
}

func (suite *IsRobotUserAgentTestSuite) TestBrowsers() {
	suite.False(geolib.IsRobotUserAgent(browserUserAgent, true))
	suite.False(geolib.IsRobotUserAgent("Mozilla/5.0 (Windows NT 10.0; rv:109.0) Gecko/20100101 Firefox/115.0", true))
}

func (suite *IsRobotUserAgentTestSuite) TestBrowserTokensWithoutRobotTokens() {
	testData := []string{
		"Mozilla/5.0 (compatible; MSIE 9.0; Windows NT 6.1; Trident/5.0; +http://example.com/info)",
		"Mozilla/5.0 (Windows; U; Windows NT 5.1) Gecko/20070309 Firefox/2.0.0.3 http://example.com",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) HeadlessChrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0) facebookexternalhit/1.1",
	}

	for _, v := range testData {
		suite.False(geolib.IsRobotUserAgent(v, true), v)
	}
}

type TrafficClassifierTestSuite struct {
	suite.Suite

	ctx     context.Context
	now     time.Time
	logMock *geolib.LoggerMock
	ledger  *geolib.RobotLedger
}

func (suite *TrafficClassifierTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.now = time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC)
	suite.logMock = &geolib.LoggerMock{}
	suite.ledger = geolib.NewRobotLedger(geolib.NewMemoryStore(), 10, time.Hour, suite.logMock)
}

func (suite *TrafficClassifierTestSuite) TearDownTest() {
	suite.logMock.AssertExpectations(suite.T())
}

func (suite *TrafficClassifierTestSuite) Classifier(ledger *geolib.RobotLedger, dev bool) *geolib.TrafficClassifier {
	rv := geolib.NewTrafficClassifier(ledger, suite.logMock, dev)

	geolib.SetClassifierClock(rv, func() time.Time {
		return suite.now
	})

	return rv
}

func (suite *TrafficClassifierTestSuite) TestHeuristicWithoutLedger() {
	disabled := geolib.NewRobotLedger(geolib.NewMemoryStore(), 0, time.Hour, suite.logMock)
	classifier := suite.Classifier(disabled, false)

	suite.True(classifier.IsRobot(suite.ctx, geolib.TrafficRequest{
		Path:         "/",
		RemoteIP:     net.ParseIP("1.1.1.1"),
		UserAgent:    robotUserAgent,
		HasUserAgent: true,
	}))
	suite.False(classifier.IsRobot(suite.ctx, geolib.TrafficRequest{
		Path:         "/",
		RemoteIP:     net.ParseIP("1.1.1.1"),
		UserAgent:    browserUserAgent,
		HasUserAgent: true,
	}))
}

func (suite *TrafficClassifierTestSuite) TestRobotsPolicyIsRecorded() {
	classifier := suite.Classifier(suite.ledger, false)
	ip := net.ParseIP("1.1.1.1")

	suite.logMock.On("RobotDetected", ip, geolib.NoUserAgent).Twice()

	suite.True(classifier.IsRobot(suite.ctx, geolib.TrafficRequest{
		Path:     "/robots.txt",
		RemoteIP: ip,
	}))

	record, ok := suite.ledger.Get(suite.ctx, "1.1.1.1")

	suite.True(ok)
	suite.Equal(geolib.NoUserAgent, record.UserAgent)
	suite.True(suite.now.Equal(record.LastVisit))

	// known robot is detected on any path
	suite.True(classifier.IsRobot(suite.ctx, geolib.TrafficRequest{
		Path:     "/",
		RemoteIP: ip,
	}))
}

func (suite *TrafficClassifierTestSuite) TestLedgerDisablesHeuristic() {
	classifier := suite.Classifier(suite.ledger, false)

	suite.False(classifier.IsRobot(suite.ctx, geolib.TrafficRequest{
		Path:         "/",
		RemoteIP:     net.ParseIP("2.2.2.2"),
		UserAgent:    robotUserAgent,
		HasUserAgent: true,
	}))
	suite.False(suite.ledger.Contains(suite.ctx, "2.2.2.2"))
}

func (suite *TrafficClassifierTestSuite) TestIsServer() {
	req := geolib.TrafficRequest{
		RemoteIP: net.ParseIP("10.0.0.1"),
		ServerIP: net.ParseIP("10.0.0.1"),
	}

	suite.True(suite.Classifier(suite.ledger, false).IsServer(req))
	suite.False(suite.Classifier(suite.ledger, true).IsServer(req))

	req.ServerIP = net.ParseIP("10.0.0.2")

	suite.False(suite.Classifier(suite.ledger, false).IsServer(req))
	suite.False(suite.Classifier(suite.ledger, false).IsServer(geolib.TrafficRequest{}))
}

func (suite *TrafficClassifierTestSuite) TestNewTrafficRequest() {
	req := httptest.NewRequest(http.MethodGet, "/robots.txt", nil)
	req.RemoteAddr = "1.2.3.4:5678"

	traffic := geolib.NewTrafficRequest(req)

	suite.Equal("/robots.txt", traffic.Path)
	suite.Equal("1.2.3.4", traffic.RemoteIP.String())
	suite.False(traffic.HasUserAgent)

	req.Header.Set("User-Agent", browserUserAgent)

	traffic = geolib.NewTrafficRequest(req)

	suite.True(traffic.HasUserAgent)
	suite.Equal(browserUserAgent, traffic.UserAgent)
	suite.logMock.AssertNotCalled(suite.T(), "RobotDetected", mock.Anything, mock.Anything)
}

func TestIsRobotUserAgent(t *testing.T) {
	suite.Run(t, &IsRobotUserAgentTestSuite{})
}

func TestTrafficClassifier(t *testing.T) {
	suite.Run(t, &TrafficClassifierTestSuite{})
}
