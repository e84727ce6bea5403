package dataset

import (
	"context"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// PeerRefresh is an announcement received from another replica.
type PeerRefresh struct {
	Source   string
	Resource feature.Resource
	Digest   string
}

// Peer actions.
const (
	PeerActionRefresh = "refresh"
	PeerActionIgnored = "ignored"
)

// HandlePeer refetches a resource when a peer announced a revision this
// replica has not applied.  Own announcements and known digests are ignored.
func (r *Refresher) HandlePeer(ctx context.Context, ev PeerRefresh) (string, error) {
	switch ev.Resource {
	case feature.ResourceFeatures, feature.ResourceProvince, feature.ResourceCommunes:
	default:
		r.metrics.IncPeerRefresh(PeerActionIgnored)
		return PeerActionIgnored, apperrors.InvalidParam("unknown resource").WithDetail("resource=" + string(ev.Resource))
	}
	if ev.Source != "" && ev.Source == r.cfg.ReplicaID {
		r.metrics.IncPeerRefresh(PeerActionIgnored)
		return PeerActionIgnored, nil
	}
	if ev.Digest != "" && ev.Digest == r.LastDigest(ev.Resource) {
		r.metrics.IncPeerRefresh(PeerActionIgnored)
		return PeerActionIgnored, nil
	}

	r.metrics.IncPeerRefresh(PeerActionRefresh)
	r.logger.Info("peer announced a new revision",
		logging.String("peer", ev.Source),
		logging.String("resource", string(ev.Resource)))

	var out Outcome
	if ev.Resource == feature.ResourceFeatures {
		out = r.RefreshFeatures(ctx)
	} else {
		out = r.refresh(ctx, ev.Resource)
	}
	return PeerActionRefresh, out.Err
}
