/*
Package main implements dockerdns - an authoritative DNS server backed by a
relational lookup table.

dockerdns answers address queries for a configured set of domains:

  - Authoritative-only, address records (A/AAAA) with a configured TTL
  - Backing store lookups through a single parameterized SQL query
  - Hosts file fast path with atomic reload, shadowing the store
  - Alias records, a stored value that is itself a hostname is chased
    recursively with cycle detection and a bounded chain depth
  - IP-based access control and per-client rate limiting
  - Metrics and monitoring via Prometheus

Architecture:

dockerdns uses a middleware-based architecture where each component
processes DNS queries in a chain. The middleware order is important and
defined as:

 1. Recovery - Panic recovery and error handling
 2. Metrics - Prometheus metrics collection
 3. AccessLog - Query logging
 4. AccessList - IP-based access control
 5. RateLimit - Query rate limiting per client
 6. Resolver - The resolution engine, authority filter, hosts file and
    backing store lookups, alias chasing

Queries outside the authoritative domains are answered with an
authoritative NXDOMAIN, backing store failures with SERVFAIL. The server
never recurses into foreign zones, the only recursion is the internal
alias chase.
*/
package main
