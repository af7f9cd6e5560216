package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/minio/minio-go/v7/pkg/sse"
	"github.com/sofmeright/imagefreight/src/artifact"
)

// hashMetaKey is the user metadata key holding an object's BLAKE3 digest.
const hashMetaKey = "Blake3"

// Settings are the lifecycle values the storage stack declares.
type Settings struct {
	AbortMultipartDays int
	NoncurrentDays     int
}

// Bucket is one bucket on a client. It implements artifact.ObjectStore.
type Bucket struct {
	client *minio.Client
	name   string
}

var _ artifact.ObjectStore = (*Bucket)(nil)

// NewBucket binds client to bucket name.
func NewBucket(client *minio.Client, name string) (*Bucket, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if name == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Bucket{client: client, name: name}, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Stat implements artifact.ObjectStore.
func (b *Bucket) Stat(ctx context.Context, key string) (artifact.ObjectInfo, error) {
	info, err := b.client.StatObject(ctx, b.name, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return artifact.ObjectInfo{}, fmt.Errorf("%s: %w", key, artifact.ErrNotFound)
		}
		return artifact.ObjectInfo{}, err
	}
	return artifact.ObjectInfo{
		Key:  info.Key,
		Size: info.Size,
		Hash: metaValue(info.UserMetadata, hashMetaKey),
	}, nil
}

// Put implements artifact.ObjectStore.
func (b *Bucket) Put(ctx context.Context, key, localPath string, _ int64, hash string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType(key),
		UserMetadata: map[string]string{hashMetaKey: hash},
	}
	_, err := b.client.FPutObject(ctx, b.name, key, localPath, opts)
	return err
}

// List implements artifact.ObjectStore.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range b.client.ListObjects(ctx, b.name, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			if errorCode(obj.Err) == "NoSuchBucket" {
				return nil, fmt.Errorf("%s: %w", b.name, artifact.ErrNotFound)
			}
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Delete implements artifact.ObjectStore.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	return b.client.RemoveObject(ctx, b.name, key, minio.RemoveObjectOptions{})
}

// Verify reads the bucket settings back and returns one line per place
// they differ from what the storage stack declares. It never writes; the
// stack owns them.
func (b *Bucket) Verify(ctx context.Context, want Settings) ([]string, error) {
	var drift []string

	versioning, err := b.client.GetBucketVersioning(ctx, b.name)
	if err != nil {
		return nil, fmt.Errorf("versioning: %w", err)
	}
	if !versioning.Enabled() {
		drift = append(drift, "versioning is not enabled")
	}

	enc, err := b.client.GetBucketEncryption(ctx, b.name)
	switch {
	case errorCode(err) == "ServerSideEncryptionConfigurationNotFoundError":
		drift = append(drift, "default encryption is not configured")
	case err != nil:
		return nil, fmt.Errorf("encryption: %w", err)
	case !encrypted(enc):
		drift = append(drift, "default encryption has no SSE algorithm")
	}

	lc, err := b.client.GetBucketLifecycle(ctx, b.name)
	switch {
	case errorCode(err) == "NoSuchLifecycleConfiguration":
		drift = append(drift, "lifecycle configuration is missing")
	case err != nil:
		return nil, fmt.Errorf("lifecycle: %w", err)
	default:
		drift = append(drift, lifecycleDrift(lc, want)...)
	}

	policy, err := b.client.GetBucketPolicy(ctx, b.name)
	if err != nil && errorCode(err) != "NoSuchBucketPolicy" {
		return nil, fmt.Errorf("policy: %w", err)
	}
	if !tlsOnly(policy) {
		drift = append(drift, "bucket policy does not deny insecure transport")
	}
	return drift, nil
}

func encrypted(cfg *sse.Configuration) bool {
	if cfg == nil {
		return false
	}
	for _, r := range cfg.Rules {
		if r.Apply.SSEAlgorithm != "" {
			return true
		}
	}
	return false
}

func lifecycleDrift(lc *lifecycle.Configuration, want Settings) []string {
	abort, noncurrent := false, false
	if lc != nil {
		for _, r := range lc.Rules {
			if r.Status != "Enabled" {
				continue
			}
			if int(r.AbortIncompleteMultipartUpload.DaysAfterInitiation) == want.AbortMultipartDays {
				abort = true
			}
			if int(r.NoncurrentVersionExpiration.NoncurrentDays) == want.NoncurrentDays {
				noncurrent = true
			}
		}
	}
	var out []string
	if !abort {
		out = append(out, fmt.Sprintf("no enabled rule aborts multipart uploads after %d days", want.AbortMultipartDays))
	}
	if !noncurrent {
		out = append(out, fmt.Sprintf("no enabled rule expires noncurrent versions after %d days", want.NoncurrentDays))
	}
	return out
}

// tlsOnly reports whether policy carries a Deny statement conditioned on
// aws:SecureTransport being false.
func tlsOnly(policy string) bool {
	if policy == "" {
		return false
	}
	var doc struct {
		Statement []struct {
			Effect    string
			Condition map[string]map[string]any
		}
	}
	if err := json.Unmarshal([]byte(policy), &doc); err != nil {
		return false
	}
	for _, st := range doc.Statement {
		if st.Effect != "Deny" {
			continue
		}
		if v, ok := st.Condition["Bool"]["aws:SecureTransport"]; ok && fmt.Sprint(v) == "false" {
			return true
		}
	}
	return false
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return minio.ToErrorResponse(err).Code
}

func isNotFound(err error) bool {
	switch errorCode(err) {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return true
	}
	return false
}

// metaValue looks up user metadata case-insensitively; servers differ in
// how they canonicalize the header name.
func metaValue(m map[string]string, key string) string {
	for k, v := range m {
		if strings.EqualFold(k, key) || strings.EqualFold(k, "X-Amz-Meta-"+key) {
			return v
		}
	}
	return ""
}

func contentType(key string) string {
	switch ext := strings.ToLower(path.Ext(key)); ext {
	case ".yml", ".yaml":
		return "application/x-yaml"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return "application/octet-stream"
}
