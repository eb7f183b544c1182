package geolib

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const auditLogTimeFormat = "2006-01-02 15:04:05"

// AuditLog records each call to IP geolocation service, one line per
// call.
type AuditLog struct {
	mutex  sync.Mutex
	writer io.Writer
	now    func() time.Time
}

func (a *AuditLog) Record(ip string, loc IPLocation, err error) {
	line := a.now().Format(auditLogTimeFormat) + " " + ip + " : "

	if err != nil {
		line += "ERROR\n"
	} else {
		line += fmt.Sprintf("%s, %s, %s, %s, %s, %s\n",
			loc.City, loc.State, loc.Zip, loc.CountryCode, loc.Longitude, loc.Latitude)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	io.WriteString(a.writer, line) // nolint: errcheck
}

func NewAuditLog(writer io.Writer) *AuditLog {
	if writer == nil {
		writer = io.Discard
	}

	return &AuditLog{
		writer: writer,
		now:    time.Now,
	}
}
