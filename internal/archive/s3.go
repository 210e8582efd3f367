package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"
)

const s3FetchConcurrency = 8

// S3 stores each record as its own JSON object under a key prefix.
type S3 struct {
	Client *s3.Client

	bucket string
	prefix string
}

// NewS3 loads the default AWS configuration (environment variables, then the
// shared config and credentials files) and checks the bucket is reachable.
func NewS3(ctx context.Context, bucket, prefix string) (*S3, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("archive.s3.bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	a := &S3{
		Client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
	if _, err := a.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}); err != nil {
		return nil, fmt.Errorf("head bucket %s: %w", bucket, err)
	}
	return a, nil
}

func (a *S3) objectKey(id string) string {
	return path.Join(a.prefix, id+".json")
}

func (a *S3) Append(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	_, err = a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.objectKey(rec.ID)),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", a.objectKey(rec.ID), err)
	}
	return nil
}

func (a *S3) fetch(ctx context.Context, key string) (Record, error) {
	resp, err := a.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Record{}, fmt.Errorf("read %s: %w", key, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec, nil
}

func (a *S3) Get(ctx context.Context, id string) (Record, error) {
	return a.fetch(ctx, a.objectKey(id))
}

func (a *S3) keys(ctx context.Context) ([]string, error) {
	prefix := a.prefix
	if prefix != "" {
		prefix += "/"
	}
	var keys []string
	p := s3.NewListObjectsV2Paginator(a.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", a.bucket, a.prefix, err)
		}
		for _, obj := range page.Contents {
			if k := aws.ToString(obj.Key); strings.HasSuffix(k, ".json") {
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}

// Query lists the prefix and downloads the objects in parallel.
func (a *S3) Query(ctx context.Context, match func(Record) bool) ([]Record, error) {
	keys, err := a.keys(ctx)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s3FetchConcurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			rec, err := a.fetch(gctx, key)
			if err != nil {
				return err
			}
			recs[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].DateTime < recs[j].DateTime })
	out := recs[:0]
	for _, rec := range recs {
		if accept(match, rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (a *S3) Count(ctx context.Context) (int, error) {
	keys, err := a.keys(ctx)
	return len(keys), err
}

func (a *S3) Close() error { return nil }
