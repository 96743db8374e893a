// Package accesslist drops queries from clients outside the allowed ranges.
package accesslist

import (
	"context"
	"net"

	"github.com/semihalev/zlog/v2"
	"github.com/yl2chen/cidranger"

	"github.com/opelnic/dockerdns/config"
	"github.com/opelnic/dockerdns/middleware"
)

// AccessList type
type AccessList struct {
	ranger cidranger.Ranger
}

// New return accesslist
func New(cfg *config.Config) *AccessList {
	a := new(AccessList)
	a.ranger = cidranger.NewPCTrieRanger()

	for _, cidr := range cfg.AccessList {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			zlog.Error("Access list parse cidr failed", "cidr", cidr, "error", err.Error())
			continue
		}

		_ = a.ranger.Insert(cidranger.NewBasicRangerEntry(*ipnet))
	}

	return a
}

// Name return middleware name
func (a *AccessList) Name() string { return name }

// ServeDNS implements the Handle interface.
func (a *AccessList) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	if ch.Writer.Internal() {
		ch.Next(ctx)
		return
	}

	allowed, _ := a.ranger.Contains(ch.Writer.RemoteIP())

	if !allowed {
		// no reply to the client
		ch.Cancel()
		return
	}

	ch.Next(ctx)
}

const name = "accesslist"
