package todos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/server/cursor"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
)

// maxConditionalRetries bounds the read-modify-write loop of UpdateFields.
const maxConditionalRetries = 3

// S3API is the subset of *s3.Client used by S3Repository.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Repository keeps each todo as a JSON object "<prefix><id>.json".
// Conditional writes use ETag preconditions (If-Match).
type S3Repository struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Repository(client S3API, bucket, prefix string) *S3Repository {
	return &S3Repository{client: client, bucket: bucket, prefix: prefix}
}

func (r *S3Repository) key(id string) string {
	return r.prefix + id + ".json"
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}

// load returns the todo and the ETag of the object it was read from.
func (r *S3Repository) load(ctx context.Context, id string) (*models.Todo, string, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, "", common.ErrorNotFound
		}
		return nil, "", fmt.Errorf("s3 get: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("s3 read: %w", err)
	}
	var t models.Todo
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, "", fmt.Errorf("unmarshal todo: %w", err)
	}
	return &t, aws.ToString(out.ETag), nil
}

func (r *S3Repository) store(ctx context.Context, t *models.Todo, ifMatch string) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal todo: %w", err)
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key(t.ID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}
	if ifMatch != "" {
		in.IfMatch = aws.String(ifMatch)
	}
	_, err = r.client.PutObject(ctx, in)
	return err
}

func (r *S3Repository) Get(ctx context.Context, id string) (*models.Todo, error) {
	t, _, err := r.load(ctx, id)
	return t, err
}

// List walks keys in lexical order; the cursor carries the last key seen.
func (r *S3Repository) List(ctx context.Context, limit int, after cursor.Key) ([]*models.Todo, cursor.Key, error) {
	if limit < 1 {
		limit = 1
	}
	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(r.bucket),
		Prefix:  aws.String(r.prefix),
		MaxKeys: aws.Int32(int32(limit)),
	}
	if after != nil {
		k, ok := after.String("key")
		if !ok || !strings.HasPrefix(k, r.prefix) {
			return nil, nil, fmt.Errorf("%w: bad object key", common.ErrorDecode)
		}
		in.StartAfter = aws.String(k)
	}

	out, err := r.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, nil, fmt.Errorf("s3 list: %w", err)
	}

	items := make([]*models.Todo, 0, len(out.Contents))
	var lastKey string
	for _, obj := range out.Contents {
		k := aws.ToString(obj.Key)
		lastKey = k
		id, ok := strings.CutSuffix(strings.TrimPrefix(k, r.prefix), ".json")
		if !ok {
			continue
		}
		t, _, err := r.load(ctx, id)
		if errors.Is(err, common.ErrorNotFound) {
			// deleted between list and read
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		items = append(items, t)
	}

	if !aws.ToBool(out.IsTruncated) || lastKey == "" {
		return items, nil, nil
	}
	return items, cursor.Key{"key": lastKey}, nil
}

func (r *S3Repository) Put(ctx context.Context, t *models.Todo) error {
	if err := r.store(ctx, t, ""); err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}

// UpdateFields reads the object and writes it back only if its ETag is
// unchanged, retrying a bounded number of times on a lost race.
func (r *S3Repository) UpdateFields(ctx context.Context, id string, patch models.Patch, updatedAt time.Time) (*models.Todo, error) {
	for attempt := 0; attempt < maxConditionalRetries; attempt++ {
		t, etag, err := r.load(ctx, id)
		if err != nil {
			return nil, err
		}
		patch.Apply(t, updatedAt)

		err = r.store(ctx, t, etag)
		if err == nil {
			return t, nil
		}
		if isS3NotFound(err) {
			return nil, common.ErrorNotFound
		}
		if !isPreconditionFailed(err) {
			return nil, fmt.Errorf("s3 put: %w", err)
		}
	}
	return nil, fmt.Errorf("s3 update %s: concurrent modification after %d attempts", id, maxConditionalRetries)
}

// Delete removes the object only if it is unchanged since the existence
// check, repeating the check when a concurrent write wins.
func (r *S3Repository) Delete(ctx context.Context, id string) error {
	for attempt := 0; attempt < maxConditionalRetries; attempt++ {
		head, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(r.key(id)),
		})
		if err != nil {
			if isS3NotFound(err) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("s3 head: %w", err)
		}

		_, err = r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket:  aws.String(r.bucket),
			Key:     aws.String(r.key(id)),
			IfMatch: head.ETag,
		})
		if err == nil {
			return nil
		}
		if isS3NotFound(err) {
			return common.ErrorNotFound
		}
		if !isPreconditionFailed(err) {
			return fmt.Errorf("s3 delete: %w", err)
		}
	}
	return fmt.Errorf("s3 delete %s: concurrent modification after %d attempts", id, maxConditionalRetries)
}
