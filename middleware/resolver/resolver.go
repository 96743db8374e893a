// Package resolver implements the query resolution engine. It answers
// address queries for the authoritative domains from an ordered chain of
// lookups, hosts file first, then the backing store. A stored value that is
// not an address literal is an alias target and triggers a further lookup,
// bounded by a cycle guard and a maximum chain depth.
package resolver

import (
	"context"
	"net"
	"strings"

	"github.com/miekg/dns"

	"github.com/opelnic/dockerdns/authority"
	"github.com/opelnic/dockerdns/config"
	"github.com/opelnic/dockerdns/hosts"
)

// Resolver type
type Resolver struct {
	auth  *authority.Set
	hosts *hosts.File
	store Lookuper

	maxdepth int
}

// NewResolver return a resolver for the configured domains.
func NewResolver(cfg *config.Config, store Lookuper) *Resolver {
	return &Resolver{
		auth:     authority.NewSet(cfg.Domains),
		hosts:    hosts.New(cfg.HostsFile),
		store:    store,
		maxdepth: cfg.MaxDepth,
	}
}

// Resolve resolves qname to address literals of the given ip family (4 or
// 6). It returns errNotAuthoritative for names outside the served domains,
// errNotFound when no record exists, errNoData when a record exists in the
// wrong family, and a ResolveError for store failures and broken alias
// chains.
func (r *Resolver) Resolve(ctx context.Context, qname string, family int) ([]net.IP, error) {
	name := absName(qname)

	if !r.auth.Match(name) {
		return nil, errNotAuthoritative
	}

	// the alias chain, the query name is hop zero
	seen := map[string]struct{}{name: {}}

	for depth := 0; ; {
		// hosts file entries shadow the store at every hop
		if r.hosts != nil {
			if ips := r.hosts.LookupHost(name, family); len(ips) > 0 {
				return ips, nil
			}
		}

		if r.store == nil {
			return nil, NewStoreError(errNoStore)
		}

		value, err := r.store.Lookup(ctx, strings.TrimSuffix(name, "."))
		if err != nil {
			if err == errNotFound {
				return nil, errNotFound
			}
			return nil, NewStoreError(err)
		}

		// The literal parse decides the branch, a value that fails it is an
		// alias target. Hostnames that look like addresses are not supported.
		if ip := net.ParseIP(value); ip != nil {
			if !familyMatch(ip, family) {
				return nil, errNoData
			}
			return []net.IP{ip}, nil
		}

		target := absName(value)

		if _, ok := seen[target]; ok {
			return nil, errLoopDetected
		}

		if depth == r.maxdepth {
			return nil, errMaxDepth
		}

		seen[target] = struct{}{}
		depth++
		name = target
	}
}

// Hosts return the hosts file handle, nil when disabled.
func (r *Resolver) Hosts() *hosts.File { return r.hosts }

// Stop releases the resolver resources.
func (r *Resolver) Stop() {
	if r.hosts != nil {
		r.hosts.Stop()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}

func familyMatch(ip net.IP, family int) bool {
	switch family {
	case 4:
		return ip.To4() != nil
	case 6:
		return ip.To4() == nil && ip.To16() != nil
	}
	return false
}

func absName(name string) string {
	return strings.ToLower(dns.Fqdn(name))
}
