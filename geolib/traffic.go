package geolib

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// RobotsPathPrefix is a prefix of well-known robots policy paths like
// /robots.txt.
const RobotsPathPrefix = "/robots."

var (
	robotTokenRegexp   = regexp.MustCompile(`(?i)(\b[\w-]+bot\b|crawl|spider|slurp|jeeves)`)
	browserTokenRegexp = regexp.MustCompile(`(?i)(mozilla|msie|opera|gecko|webkit|khtml)`)
)

// TrafficClassifier tells robots and the server itself apart from real
// visitors.
type TrafficClassifier struct {
	ledger      *RobotLedger
	logger      Logger
	devInstance bool
	now         func() time.Time
}

// IsRobot classifies a request. If robot ledger is enabled, only known
// robots and robots policy visitors are reported; otherwise User-Agent
// heuristic is applied. Detected robots are recorded into the ledger.
func (t *TrafficClassifier) IsRobot(ctx context.Context, req TrafficRequest) bool {
	ip := ipString(req.RemoteIP)
	isRobot := false

	switch {
	case strings.HasPrefix(req.Path, RobotsPathPrefix):
		isRobot = true
	case t.ledger.Enabled():
		isRobot = ip != "" && t.ledger.Contains(ctx, ip)
	default:
		isRobot = IsRobotUserAgent(req.UserAgent, req.HasUserAgent)
	}

	if isRobot && t.ledger.Enabled() && ip != "" {
		userAgent := req.UserAgent
		if !req.HasUserAgent {
			userAgent = NoUserAgent
		}

		t.logger.RobotDetected(req.RemoteIP, userAgent)
		t.ledger.Touch(ctx, ip, userAgent, t.now()) // nolint: errcheck
	}

	return isRobot
}

// IsServer reports if request came from the server itself. Development
// instances are never treated this way.
func (t *TrafficClassifier) IsServer(req TrafficRequest) bool {
	if t.devInstance || req.RemoteIP == nil || req.ServerIP == nil {
		return false
	}

	return req.RemoteIP.Equal(req.ServerIP)
}

// IsRobotUserAgent applies User-Agent heuristic. Missing User-Agent
// means robot.
func IsRobotUserAgent(userAgent string, present bool) bool {
	switch {
	case !present:
		return true
	case robotTokenRegexp.MatchString(userAgent):
		return true
	case !browserTokenRegexp.MatchString(userAgent):
		return true
	}

	return false
}

// NewTrafficRequest extracts classification attributes from HTTP
// request. Server address is taken from a local address of the
// connection.
func NewTrafficRequest(req *http.Request) TrafficRequest {
	userAgent, hasUserAgent := "", false

	if values, ok := req.Header["User-Agent"]; ok && len(values) > 0 {
		userAgent, hasUserAgent = values[0], true
	}

	rv := TrafficRequest{
		Path:         req.URL.Path,
		RemoteIP:     remoteIP(req),
		UserAgent:    userAgent,
		HasUserAgent: hasUserAgent,
	}

	if addr, ok := req.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		if host, _, err := net.SplitHostPort(addr.String()); err == nil {
			rv.ServerIP = net.ParseIP(host)
		}
	}

	return rv
}

func NewTrafficClassifier(ledger *RobotLedger, logger Logger, devInstance bool) *TrafficClassifier {
	return &TrafficClassifier{
		ledger:      ledger,
		logger:      logger,
		devInstance: devInstance,
		now:         time.Now,
	}
}

func remoteIP(req *http.Request) net.IP {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}

	return net.ParseIP(host)
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}

	return ip.String()
}
