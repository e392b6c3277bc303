package fsbroker

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"

	"github.com/rangedb/htcore/corelib"
)

// S3Broker implements Broker on top of a single S3 (or S3-compatible, e.g.
// minio) bucket: one *s3.Client per broker, objects keyed by their broker
// path with the leading slash trimmed. S3 has no native append, so an
// open-for-write Handle buffers in memory and Flush/Close upload the whole
// accumulated object.
type S3Broker struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewS3Broker wires a Broker against bucket using an already-connected client
// (see cmd/rangeserver for constructing one via aws-sdk-go-v2's config loader).
func NewS3Broker(client *s3.Client, bucket string) *S3Broker {
	return &S3Broker{client: client, uploader: manager.NewUploader(client), bucket: bucket}
}

func key(path string) string {
	return strings.TrimPrefix(path, "/")
}

type s3WriteHandle struct {
	broker *S3Broker
	path   string
	buf    bytes.Buffer
	closed bool
}

func (h *s3WriteHandle) Read(p []byte) (int, error) {
	return 0, corelib.New(corelib.InvalidOperation, "handle opened for write is not readable")
}

func (h *s3WriteHandle) Append(p []byte) (int, error) {
	return h.buf.Write(p)
}

func (h *s3WriteHandle) Flush(ctx context.Context) error {
	if h.closed {
		return nil
	}
	_, err := h.broker.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(h.broker.bucket),
		Key:    aws.String(key(h.path)),
		Body:   bytes.NewReader(h.buf.Bytes()),
	})
	if err != nil {
		return corelib.Wrap(corelib.External, "s3 upload "+h.path, err)
	}
	return nil
}

func (h *s3WriteHandle) Close(ctx context.Context) error {
	if h.closed {
		return nil
	}
	err := h.Flush(ctx)
	h.closed = true
	return err
}

type s3ReadHandle struct {
	body io.ReadCloser
}

func (h *s3ReadHandle) Read(p []byte) (int, error) { return h.body.Read(p) }
func (h *s3ReadHandle) Append(p []byte) (int, error) {
	return 0, corelib.New(corelib.InvalidOperation, "handle opened for read is not writable")
}
func (h *s3ReadHandle) Flush(ctx context.Context) error { return nil }
func (h *s3ReadHandle) Close(ctx context.Context) error { return h.body.Close() }

func (b *S3Broker) Create(ctx context.Context, path string, overwrite bool) (Handle, error) {
	if !overwrite {
		if _, err := b.Length(ctx, path); err == nil {
			return nil, corelib.New(corelib.InvalidOperation, path+" already exists")
		}
	}
	return &s3WriteHandle{broker: b, path: path}, nil
}

func (b *S3Broker) Open(ctx context.Context, path string) (Handle, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key(path)),
	})
	if err != nil {
		return nil, corelib.Wrap(corelib.External, "s3 get "+path, err)
	}
	return &s3ReadHandle{body: out.Body}, nil
}

// Mkdirs is a no-op: S3 has no real directory objects, and the object key
// prefix under which Create/Readdir operate already behaves like one.
func (b *S3Broker) Mkdirs(ctx context.Context, path string) error {
	return nil
}

func (b *S3Broker) Remove(ctx context.Context, path string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key(path)),
	})
	if err != nil {
		return corelib.Wrap(corelib.External, "s3 delete "+path, err)
	}
	return nil
}

func (b *S3Broker) Rmdir(ctx context.Context, path string) error {
	prefix := key(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	var objects []types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return corelib.Wrap(corelib.External, "s3 list "+path, err)
		}
		for _, o := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: o.Key})
		}
	}
	if len(objects) == 0 {
		return nil
	}
	_, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucket),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		return corelib.Wrap(corelib.External, "s3 delete-objects "+path, err)
	}
	return nil
}

func (b *S3Broker) Readdir(ctx context.Context, path string) ([]string, error) {
	prefix := key(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, corelib.Wrap(corelib.External, "s3 list "+path, err)
	}
	names := make([]string, 0, len(out.Contents)+len(out.CommonPrefixes))
	for _, o := range out.Contents {
		names = append(names, strings.TrimPrefix(aws.ToString(o.Key), prefix))
	}
	for _, p := range out.CommonPrefixes {
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), prefix), "/"))
	}
	return names, nil
}

func (b *S3Broker) Length(ctx context.Context, path string) (int64, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key(path)),
	})
	if err != nil {
		return 0, corelib.Wrap(corelib.External, "s3 head "+path, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}
