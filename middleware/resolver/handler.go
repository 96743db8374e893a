package resolver

import (
	"context"
	"errors"
	"net"

	"github.com/miekg/dns"
	"github.com/semihalev/zlog/v2"

	"github.com/opelnic/dockerdns/config"
	"github.com/opelnic/dockerdns/middleware"
	"github.com/opelnic/dockerdns/util"
)

// DNSHandler type
type DNSHandler struct {
	resolver *Resolver
	cfg      *config.Config
}

// New returns a new Handler
func New(cfg *config.Config) *DNSHandler {
	store, err := NewStore(cfg)
	if err != nil {
		// bad dsn, every query that needs the store answers SERVFAIL
		zlog.Error("Backing store open failed", "error", err.Error())
	}

	var lookuper Lookuper
	if store != nil {
		lookuper = store
	}

	return &DNSHandler{
		resolver: NewResolver(cfg, lookuper),
		cfg:      cfg,
	}
}

// Name return middleware name
func (h *DNSHandler) Name() string { return name }

// ServeDNS implements the Handle interface.
func (h *DNSHandler) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	w, req := ch.Writer, ch.Request

	if len(req.Question) == 0 {
		ch.CancelWithRcode(dns.RcodeFormatError, false)
		return
	}

	q := req.Question[0]

	do := false
	if opt := req.IsEdns0(); opt != nil {
		do = opt.Do()
	}

	// only address queries reach the lookup chain, everything else gets an
	// authoritative empty answer
	family := addressFamily(q.Qtype)
	if family == 0 {
		_ = w.WriteMsg(h.nodata(req))
		ch.Cancel()
		return
	}

	ips, err := h.resolver.Resolve(ctx, q.Name, family)

	switch {
	case err == nil:
		_ = w.WriteMsg(h.answer(req, q, ips))

	case errors.Is(err, errNoData):
		_ = w.WriteMsg(h.nodata(req))

	case errors.Is(err, errNotFound), errors.Is(err, errNotAuthoritative):
		_ = w.WriteMsg(util.SetRcode(req, dns.RcodeNameError, do))

	default:
		var re *ResolveError
		if errors.As(err, &re) {
			zlog.Warn("Resolution failed", "query", q.Name, "error", re.Error())
			_ = w.WriteMsg(util.SetRcodeWithEDE(req, dns.RcodeServerFailure, do, re.EDECode(), re.Message))
		} else {
			zlog.Warn("Resolution failed", "query", q.Name, "error", err.Error())
			_ = w.WriteMsg(util.SetRcode(req, dns.RcodeServerFailure, do))
		}
	}

	ch.Cancel()
}

// Stop releases the handler resources.
func (h *DNSHandler) Stop() {
	h.resolver.Stop()
}

func (h *DNSHandler) answer(req *dns.Msg, q dns.Question, ips []net.IP) *dns.Msg {
	m := new(dns.Msg)
	m.SetReply(req)
	m.Authoritative = true

	for _, ip := range ips {
		hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: h.cfg.TTL}

		switch q.Qtype {
		case dns.TypeA:
			m.Answer = append(m.Answer, &dns.A{Hdr: hdr, A: ip.To4()})
		case dns.TypeAAAA:
			m.Answer = append(m.Answer, &dns.AAAA{Hdr: hdr, AAAA: ip.To16()})
		}
	}

	return m
}

func (h *DNSHandler) nodata(req *dns.Msg) *dns.Msg {
	m := new(dns.Msg)
	m.SetReply(req)
	m.Authoritative = true
	return m
}

// addressFamily maps a question type to an ip family, 0 for types the
// server does not serve. A6 is obsolete (RFC 6563) and has no rdata support
// in the wire library, it short-circuits to an empty answer like any other
// unsupported type. That gate runs before the authority check, so an
// unsupported query for a foreign name gets NOERROR where A/AAAA would
// get NXDOMAIN.
func addressFamily(qtype uint16) int {
	switch qtype {
	case dns.TypeA:
		return 4
	case dns.TypeAAAA:
		return 6
	}
	return 0
}

const name = "resolver"
