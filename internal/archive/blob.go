// Package archive copies terminal flow records to object storage for
// long-term audit. The store copy remains authoritative; the archive is a
// secondary, append-mostly record
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/drover-io/drover/pkg/api"
)

type (
	// Archiver stores copies of terminal flow records
	Archiver interface {
		Put(ctx context.Context, flow *api.Flow) error
	}

	// BlobArchiver implements Archiver using gocloud.dev/blob, supporting
	// S3, GCS, Azure Blob Storage, and S3-compatible stores
	BlobArchiver struct {
		bucket *blob.Bucket
		prefix string
	}
)

var _ Archiver = (*BlobArchiver)(nil)

// ErrArchiveNotFound is returned when no archived record exists for a flow
var ErrArchiveNotFound = errors.New("archived flow not found")

// NewBlobArchiver opens the bucket at the given URL (e.g. s3://..., gs://...,
// azblob://..., mem://)
func NewBlobArchiver(
	ctx context.Context, bucketURL, prefix string,
) (*BlobArchiver, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobArchiver{bucket: bucket, prefix: prefix}, nil
}

func (a *BlobArchiver) Put(ctx context.Context, flow *api.Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	return a.bucket.WriteAll(ctx, a.keyFor(flow.AgentID, flow.ID), data, nil)
}

// Get retrieves an archived flow record
func (a *BlobArchiver) Get(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
) (*api.Flow, error) {
	data, err := a.bucket.ReadAll(ctx, a.keyFor(agentID, flowID))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrArchiveNotFound
		}
		return nil, err
	}

	var flow api.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

// Delete removes an archived flow record. Deleting a record that was never
// archived is not an error
func (a *BlobArchiver) Delete(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
) error {
	err := a.bucket.Delete(ctx, a.keyFor(agentID, flowID))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

func (a *BlobArchiver) Close() error {
	return a.bucket.Close()
}

func (a *BlobArchiver) keyFor(
	agentID api.AgentID, flowID api.FlowID,
) string {
	return fmt.Sprintf("%s%s/%s.json", a.prefix, agentID, flowID)
}
