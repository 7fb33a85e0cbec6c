// Package s3store implements a Backend on S3-compatible object storage.
//
// Records are stored one object per record under
//
//	<prefix>/<kind>/<kind>_<id64>
//
// and a missing key is a miss, not an error.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/codec"
)

// Options configures a session-backed store.
type Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // non-empty for S3-compatible servers (path-style addressing)
}

// Store is an S3-backed Backend.
type Store struct {
	Bucket   string
	Prefix   string
	S3Client s3iface.S3API
}

// New wraps an existing client.
func New(client s3iface.S3API, bucket, prefix string) *Store {
	return &Store{
		Bucket:   bucket,
		Prefix:   strings.Trim(prefix, "/"),
		S3Client: client,
	}
}

// Open creates a client from the shared AWS configuration plus opts.
func Open(opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3store: bucket is required")
	}

	cfg := aws.Config{}
	if opts.Region != "" {
		cfg.Region = aws.String(opts.Region)
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: create session: %w", err)
	}
	return New(s3.New(sess), opts.Bucket, opts.Prefix), nil
}

// Name implements backend.Backend.
func (s *Store) Name() string { return "s3" }

// Key returns the object key of (kind, id).
func (s *Store) Key(kind string, id int64) string {
	return path.Join(s.Prefix, kind, codec.RecordName(kind, id))
}

func (s *Store) kindPrefix(kind string) string {
	return path.Join(s.Prefix, kind) + "/"
}

// Load implements backend.Backend.
func (s *Store) Load(ctx context.Context, kind string, id int64) ([]byte, bool, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key(kind, id)),
	}

	output, err := s.S3Client.GetObjectWithContext(ctx, input)
	if isNoSuchKey(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cannot get object(%s) from S3(%s): %w", *input.Key, s.Bucket, err)
	}
	defer output.Body.Close()

	payload, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, false, fmt.Errorf("cannot read object(%s) from S3(%s): %w", *input.Key, s.Bucket, err)
	}
	return payload, true, nil
}

// Save implements backend.Backend.
func (s *Store) Save(ctx context.Context, kind string, id int64, payload []byte) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key(kind, id)),
		Body:   aws.ReadSeekCloser(bytes.NewReader(payload)),
	}

	if _, err := s.S3Client.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("cannot put object(%s) to S3(%s): %w", *input.Key, s.Bucket, err)
	}
	return nil
}

// Delete implements backend.Backend.
func (s *Store) Delete(ctx context.Context, kind string, id int64) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key(kind, id)),
	}

	if _, err := s.S3Client.DeleteObjectWithContext(ctx, input); err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("cannot delete object(%s) from S3(%s): %w", *input.Key, s.Bucket, err)
	}
	return nil
}

// List implements backend.Backend. Every page is fetched before the first
// id is yielded so ids come out sorted numerically rather than by key.
func (s *Store) List(ctx context.Context, kind string) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		prefix := s.kindPrefix(kind)
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(s.Bucket),
			Prefix: aws.String(prefix),
		}

		var ids []int64
		err := s.S3Client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
			for _, obj := range page.Contents {
				name := strings.TrimPrefix(aws.StringValue(obj.Key), prefix)
				if id, ok := codec.ParseRecordName(kind, name); ok {
					ids = append(ids, id)
				}
			}
			return true
		})
		if err != nil {
			yield(0, fmt.Errorf("cannot list objects(%s) in S3(%s): %w", prefix, s.Bucket, err))
			return
		}

		slices.Sort(ids)
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

// Close implements backend.Backend.
func (s *Store) Close() error { return nil }

func isNoSuchKey(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
}

var _ backend.Backend = (*Store)(nil)
