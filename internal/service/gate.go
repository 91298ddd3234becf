package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

// InstanceBlocks is the storage-side block lookup.
type InstanceBlocks interface {
	IsBlocked(ctx context.Context, host string) (bool, error)
}

// InstanceGate is the host-block predicate consulted before any remote
// fetch or inbound processing. Blocks come from the static config list and
// the instance table; table verdicts are cached briefly.
type InstanceGate struct {
	static    map[string]bool
	instances InstanceBlocks
	verdicts  *cache.Cache
}

func NewInstanceGate(config *domain.Config, instances InstanceBlocks) *InstanceGate {
	static := make(map[string]bool, len(config.Federation.BlockedHosts))
	for _, host := range config.Federation.BlockedHosts {
		static[kagari.ToPuny(host)] = true
	}
	return &InstanceGate{
		static:    static,
		instances: instances,
		verdicts:  cache.New(5*time.Minute, 10*time.Minute),
	}
}

// IsBlocked reports whether the host is administratively blocked. Storage
// failures fail open; blocking is a policy, not a safety boundary.
func (g *InstanceGate) IsBlocked(ctx context.Context, host string) bool {
	host = kagari.ToPuny(host)
	if g.static[host] {
		return true
	}

	if verdict, ok := g.verdicts.Get(host); ok {
		return verdict.(bool)
	}

	blocked, err := g.instances.IsBlocked(ctx, host)
	if err != nil {
		slog.Error("instance block lookup failed",
			slog.String("host", host),
			slog.String("error", err.Error()),
		)
		return false
	}
	g.verdicts.Set(host, blocked, cache.DefaultExpiration)
	return blocked
}
