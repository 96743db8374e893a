// Package server binds the middleware chain to the network.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/semihalev/zlog/v2"

	"github.com/opelnic/dockerdns/config"
	"github.com/opelnic/dockerdns/middleware"
)

// Server type
type Server struct {
	addr           string
	tlsAddr        string
	metricsAddr    string
	tlsCertificate string
	tlsPrivateKey  string

	chainPool sync.Pool
}

// New return new server
func New(cfg *config.Config) *Server {
	if cfg.Bind == "" {
		cfg.Bind = ":53"
	}

	server := &Server{
		addr:           cfg.Bind,
		tlsAddr:        cfg.BindTLS,
		metricsAddr:    cfg.Metrics,
		tlsCertificate: cfg.TLSCertificate,
		tlsPrivateKey:  cfg.TLSPrivateKey,
	}

	server.chainPool.New = func() any {
		return middleware.NewChain(middleware.Handlers())
	}

	return server
}

// ServeDNS implements the Handle interface. One chain per inbound message,
// one resolution attempt, no retries.
func (s *Server) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	ch := s.chainPool.Get().(*middleware.Chain)

	ch.Reset(w, r)

	ch.Next(context.Background())

	s.chainPool.Put(ch)
}

// Run listen the services
func (s *Server) Run() {
	go s.ListenAndServeDNS("udp")
	go s.ListenAndServeDNS("tcp")
	go s.ListenAndServeDNSTLS()
	go s.ListenAndServeMetrics()
}

// ListenAndServeDNS starts a server on address and network specified,
// invoking the chain for incoming queries.
func (s *Server) ListenAndServeDNS(network string) {
	zlog.Info("DNS server listening...", "net", network, "addr", s.addr)

	server := &dns.Server{
		Addr:          s.addr,
		Net:           network,
		Handler:       s,
		MaxTCPQueries: 2048,
		ReusePort:     true,
	}

	if err := server.ListenAndServe(); err != nil {
		zlog.Error("DNS listener failed", "net", network, "addr", s.addr, "error", err.Error())
	}
}

// ListenAndServeDNSTLS starts the DNS-over-TLS listener with hot
// certificate reload.
func (s *Server) ListenAndServeDNSTLS() {
	if s.tlsAddr == "" {
		return
	}

	cm, err := NewCertManager(s.tlsCertificate, s.tlsPrivateKey)
	if err != nil {
		zlog.Error("Certificate manager failed", "net", "tcp-tls", "addr", s.tlsAddr, "error", err.Error())
		return
	}

	zlog.Info("DNS server listening...", "net", "tcp-tls", "addr", s.tlsAddr)

	server := &dns.Server{
		Addr:      s.tlsAddr,
		Net:       "tcp-tls",
		Handler:   s,
		TLSConfig: cm.GetTLSConfig(),
	}

	if err := server.ListenAndServe(); err != nil {
		zlog.Error("DNS listener failed", "net", "tcp-tls", "addr", s.tlsAddr, "error", err.Error())
	}
}

// ListenAndServeMetrics exposes the Prometheus metrics endpoint.
func (s *Server) ListenAndServeMetrics() {
	if s.metricsAddr == "" {
		return
	}

	zlog.Info("Metrics server listening...", "addr", s.metricsAddr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         s.metricsAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil {
		zlog.Error("Metrics listener failed", "addr", s.metricsAddr, "error", err.Error())
	}
}
