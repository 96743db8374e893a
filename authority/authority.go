// Package authority decides whether the server should answer for a name.
package authority

import (
	"strings"

	"github.com/miekg/dns"
)

// Set holds the authoritative domain suffixes.
type Set struct {
	domains []string
}

// NewSet return a set for the given domains. Domains are stored lower case
// without a trailing dot, emptied entries are ignored.
func NewSet(domains []string) *Set {
	s := new(Set)

	for _, domain := range domains {
		domain = strings.ToLower(strings.Trim(strings.TrimSpace(domain), "."))
		if domain == "" {
			continue
		}
		s.domains = append(s.domains, domain)
	}

	return s
}

// Len return the number of configured domains.
func (s *Set) Len() int { return len(s.domains) }

// Match reports whether name falls under one of the authoritative domains.
// A name matches a domain when it equals the domain or ends with ".<domain>",
// compared case-insensitively.
func (s *Set) Match(name string) bool {
	name = strings.ToLower(strings.TrimSuffix(dns.Fqdn(name), "."))

	for _, domain := range s.domains {
		if name == domain {
			return true
		}

		if strings.HasSuffix(name, "."+domain) {
			return true
		}
	}

	return false
}
