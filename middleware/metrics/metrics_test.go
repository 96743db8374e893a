package metrics

import (
	"context"
	"testing"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/opelnic/dockerdns/config"
	"github.com/opelnic/dockerdns/middleware"
	"github.com/opelnic/dockerdns/mock"
)

type responder struct{}

func (r *responder) Name() string { return "responder" }

func (r *responder) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	m := new(dns.Msg)
	m.SetRcode(ch.Request, dns.RcodeNameError)

	_ = ch.Writer.WriteMsg(m)

	ch.Cancel()
}

func Test_Metrics(t *testing.T) {
	m := New(new(config.Config))
	assert.Equal(t, "metrics", m.Name())

	req := new(dns.Msg)
	req.SetQuestion("test.demo.com.", dns.TypeA)

	w := mock.NewWriter("udp", "127.0.0.1:0")
	ch := middleware.NewChain([]middleware.Handler{m, &responder{}})
	ch.Reset(w, req)

	ch.Next(context.Background())

	count := testutil.ToFloat64(m.queries.With(map[string]string{"qtype": "A", "rcode": "NXDOMAIN"}))
	assert.Equal(t, float64(1), count)
}

func Test_MetricsUnwritten(t *testing.T) {
	m := New(new(config.Config))

	req := new(dns.Msg)
	req.SetQuestion("test.demo.com.", dns.TypeAAAA)

	w := mock.NewWriter("udp", "127.0.0.1:0")
	ch := middleware.NewChain([]middleware.Handler{m})
	ch.Reset(w, req)

	ch.Next(context.Background())

	count := testutil.ToFloat64(m.queries.With(map[string]string{"qtype": "AAAA", "rcode": "NOERROR"}))
	assert.Equal(t, float64(0), count)
}
