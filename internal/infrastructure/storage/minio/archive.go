package minio

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	"github.com/sigtopo/coop-driouch/pkg/errors"
)

const (
	archivePrefix = "snapshots/"
	keyTimeLayout = "20060102T150405Z"
	contentType   = "application/geo+json"
)

// ArchivedObject describes one archived payload.
type ArchivedObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Archive stores every applied payload under
// snapshots/<resource>/<timestamp>-<digest>.geojson and keeps the newest
// Retain objects per resource.
type Archive struct {
	client *Client
	retain int
	logger logging.Logger
}

// NewArchive returns an Archive.  retain <= 0 keeps everything.
func NewArchive(client *Client, retain int, log logging.Logger) *Archive {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Archive{client: client, retain: retain, logger: log.Named("archive")}
}

func resourcePrefix(r feature.Resource) string {
	return archivePrefix + string(r) + "/"
}

// ObjectKey builds the key of a payload archived at `at`.
func ObjectKey(r feature.Resource, at time.Time, digest string) string {
	if len(digest) > 12 {
		digest = digest[:12]
	}
	return resourcePrefix(r) + at.UTC().Format(keyTimeLayout) + "-" + digest + ".geojson"
}

// Put uploads payload and prunes old objects.  Pruning failures are logged
// only.
func (a *Archive) Put(ctx context.Context, r feature.Resource, payload []byte, digest string, at time.Time) (string, error) {
	key := ObjectKey(r, at, digest)
	_, err := a.client.api.PutObject(ctx, a.client.config.Bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: map[string]string{"resource": string(r), "digest": digest},
		})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to archive payload").WithDetail("key=" + key)
	}
	a.logger.Info("payload archived", logging.String("key", key), logging.Int("bytes", len(payload)))

	if a.retain > 0 {
		if removed, err := a.Prune(ctx, r, a.retain); err != nil {
			a.logger.Warn("archive prune failed", logging.String("resource", string(r)), logging.Err(err))
		} else if removed > 0 {
			a.logger.Debug("archive pruned", logging.String("resource", string(r)), logging.Int("removed", removed))
		}
	}
	return key, nil
}

// List returns the archived objects of r, newest first.
func (a *Archive) List(ctx context.Context, r feature.Resource) ([]ArchivedObject, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []ArchivedObject
	for obj := range a.client.api.ListObjects(ctx, a.client.config.Bucket, minio.ListObjectsOptions{
		Prefix:    resourcePrefix(r),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list archive")
		}
		if !strings.HasSuffix(obj.Key, ".geojson") {
			continue
		}
		out = append(out, ArchivedObject{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	// Keys embed a sortable UTC timestamp.
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	if out == nil {
		out = []ArchivedObject{}
	}
	return out, nil
}

// Prune removes all but the newest keep objects of r.
func (a *Archive) Prune(ctx context.Context, r feature.Resource, keep int) (int, error) {
	objs, err := a.List(ctx, r)
	if err != nil {
		return 0, err
	}
	if len(objs) <= keep {
		return 0, nil
	}
	removed := 0
	for _, o := range objs[keep:] {
		if err := a.client.api.RemoveObject(ctx, a.client.config.Bucket, o.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, errors.Wrap(err, errors.ErrCodeStorageError, "failed to remove archived object").WithDetail("key=" + o.Key)
		}
		removed++
	}
	return removed, nil
}
