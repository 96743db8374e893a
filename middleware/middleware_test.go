package middleware

import (
	"context"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opelnic/dockerdns/config"
	"github.com/opelnic/dockerdns/mock"
)

type dummy struct {
	called bool
}

func (d *dummy) Name() string { return "dummy" }

func (d *dummy) ServeDNS(ctx context.Context, ch *Chain) {
	d.called = true
	ch.Next(ctx)
}

type closer struct{}

func (c *closer) Name() string { return "closer" }

func (c *closer) ServeDNS(ctx context.Context, ch *Chain) {
	m := new(dns.Msg)
	m.SetReply(ch.Request)
	m.Authoritative = true

	_ = ch.Writer.WriteMsg(m)

	ch.Cancel()
}

func Test_Middleware(t *testing.T) {
	assert.Error(t, Setup(nil))

	d := &dummy{}

	Register("dummy", func(cfg *config.Config) Handler { return d })
	Register("closer", func(cfg *config.Config) Handler { return &closer{} })

	assert.Equal(t, []string{"dummy", "closer"}, List())

	cfg := new(config.Config)
	require.NoError(t, Setup(cfg))
	assert.Error(t, Setup(cfg))

	assert.Len(t, Handlers(), 2)
	assert.Equal(t, d, Get("dummy"))
	assert.Nil(t, Get("unknown"))

	req := new(dns.Msg)
	req.SetQuestion("test.demo.com.", dns.TypeA)

	w := mock.NewWriter("udp", "127.0.0.1:0")
	ch := NewChain(Handlers())
	ch.Reset(w, req)

	ch.Next(context.Background())

	assert.True(t, d.called)
	assert.True(t, w.Written())
	assert.True(t, w.Msg().Authoritative)
}

func Test_ChainCancelWithRcode(t *testing.T) {
	req := new(dns.Msg)
	req.SetQuestion("test.demo.com.", dns.TypeA)

	w := mock.NewWriter("udp", "127.0.0.1:0")
	ch := NewChain([]Handler{&dummy{}})
	ch.Reset(w, req)

	ch.CancelWithRcode(dns.RcodeServerFailure, false)

	require.True(t, w.Written())
	assert.Equal(t, dns.RcodeServerFailure, w.Msg().Rcode)
	assert.True(t, w.Msg().Authoritative)
	assert.False(t, w.Msg().RecursionAvailable)

	// the chain is spent
	ch.Next(context.Background())
}

func Test_ResponseWriter(t *testing.T) {
	req := new(dns.Msg)
	req.SetQuestion("test.demo.com.", dns.TypeA)

	w := mock.NewWriter("tcp", "127.0.0.1:0")
	ch := NewChain([]Handler{})
	ch.Reset(w, req)

	assert.Equal(t, "tcp", ch.Writer.Proto())
	assert.False(t, ch.Writer.Written())
	assert.Equal(t, dns.RcodeSuccess, ch.Writer.Rcode())

	m := new(dns.Msg)
	m.SetRcode(req, dns.RcodeNameError)

	require.NoError(t, ch.Writer.WriteMsg(m))
	assert.True(t, ch.Writer.Written())
	assert.Equal(t, dns.RcodeNameError, ch.Writer.Rcode())

	// double writes are refused
	assert.Error(t, ch.Writer.WriteMsg(m))
}

func Test_ResponseWriterInternal(t *testing.T) {
	req := new(dns.Msg)
	req.SetQuestion("test.demo.com.", dns.TypeA)

	w := mock.NewWriter("udp", "127.0.0.255:0")
	ch := NewChain([]Handler{})
	ch.Reset(w, req)

	assert.True(t, ch.Writer.Internal())
}
