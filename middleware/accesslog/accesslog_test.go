package accesslog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opelnic/dockerdns/config"
	"github.com/opelnic/dockerdns/middleware"
	"github.com/opelnic/dockerdns/mock"
)

type responder struct{}

func (r *responder) Name() string { return "responder" }

func (r *responder) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	m := new(dns.Msg)
	m.SetReply(ch.Request)
	m.Authoritative = true

	_ = ch.Writer.WriteMsg(m)

	ch.Cancel()
}

func Test_AccessLogDisabled(t *testing.T) {
	a := New(new(config.Config))
	assert.Equal(t, "accesslog", a.Name())
	assert.Nil(t, a.logFile)

	req := new(dns.Msg)
	req.SetQuestion("test.demo.com.", dns.TypeA)

	w := mock.NewWriter("udp", "127.0.0.1:0")
	ch := middleware.NewChain([]middleware.Handler{a, &responder{}})
	ch.Reset(w, req)

	ch.Next(context.Background())

	assert.True(t, w.Written())
}

func Test_AccessLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "access.log")

	cfg := new(config.Config)
	cfg.AccessLog = logPath

	a := New(cfg)
	require.NotNil(t, a.logFile)

	req := new(dns.Msg)
	req.SetQuestion("test.demo.com.", dns.TypeA)

	w := mock.NewWriter("udp", "127.0.0.1:0")
	ch := middleware.NewChain([]middleware.Handler{a, &responder{}})
	ch.Reset(w, req)

	ch.Next(context.Background())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	record := string(data)
	assert.True(t, strings.HasPrefix(record, "127.0.0.1 -"))
	assert.Contains(t, record, "test.demo.com. IN A")
	assert.Contains(t, record, "NOERROR")
}

type formerrResponder struct{}

func (r *formerrResponder) Name() string { return "formerrResponder" }

func (r *formerrResponder) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	ch.CancelWithRcode(dns.RcodeFormatError, false)
}

func Test_AccessLogEmptyQuestion(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "access.log")

	cfg := new(config.Config)
	cfg.AccessLog = logPath

	a := New(cfg)
	require.NotNil(t, a.logFile)

	req := new(dns.Msg)

	w := mock.NewWriter("udp", "127.0.0.1:0")
	ch := middleware.NewChain([]middleware.Handler{a, &formerrResponder{}})
	ch.Reset(w, req)

	assert.NotPanics(t, func() { ch.Next(context.Background()) })

	assert.True(t, w.Written())
	assert.Equal(t, dns.RcodeFormatError, w.Rcode())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}
