package lakestore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	defaultMaxKeys = 1000
	nullVersion    = "null"
)

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

type bucketRecord struct {
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	Region     string    `json:"region"`
	Versioning string    `json:"versioning,omitempty"`
	Created    time.Time `json:"created"`
}

func (b bucketRecord) versioned() bool {
	return b.Versioning == string(s3types.BucketVersioningStatusEnabled)
}

type objectVersion struct {
	Key          string    `json:"key"`
	VersionID    string    `json:"versionId"`
	Seq          uint64    `json:"seq"`
	DeleteMarker bool      `json:"deleteMarker,omitempty"`
	Data         []byte    `json:"data,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

func bucketKey(bucket string) []byte {
	return joinKey(bucketPrefix, bucket)
}

// objectKey sorts versions of a key newest first.
func objectKey(bucket, key string, seq uint64) []byte {
	return append(append(joinKey(objectPrefix, bucket, key), keySeparator), encodeSeq(seq)...)
}

func (s *Store) loadBucket(txn *badger.Txn, bucket string, expectedOwner *string) (bucketRecord, error) {
	var b bucketRecord
	found, err := getJSON(txn, bucketKey(bucket), &b)
	if err != nil {
		return b, err
	}
	if !found {
		return b, noSuchBucket(bucket)
	}
	if expectedOwner != nil && *expectedOwner != b.Owner {
		return b, accessDenied()
	}
	return b, nil
}

// versionsOf returns every stored version of key, newest first.
func versionsOf(txn *badger.Txn, bucket, key string) ([]objectVersion, error) {
	prefix := append(joinKey(objectPrefix, bucket, key), keySeparator)
	var out []objectVersion
	err := scanJSON(txn, prefix, func(_ []byte, v objectVersion) (bool, error) {
		out = append(out, v)
		return true, nil
	})
	return out, err
}

// newVersionID returns an opaque version ID that still encodes the write
// sequence, so a version marker keeps its position after the version is gone.
func newVersionID(seq uint64) string {
	u := uuid.New()
	return fmt.Sprintf("%016x%s", seq, hex.EncodeToString(u[:8]))
}

// validVersionID reports whether id is "null" or has the shape newVersionID produces.
func validVersionID(id string) bool {
	if id == nullVersion {
		return true
	}
	if len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// versionPosition resolves a version ID to its write sequence.
func versionPosition(txn *badger.Txn, bucket, key, versionID string) (uint64, bool) {
	if versionID != nullVersion {
		if len(versionID) < 16 {
			return 0, false
		}
		seq, err := strconv.ParseUint(versionID[:16], 16, 64)
		return seq, err == nil
	}
	versions, err := versionsOf(txn, bucket, key)
	if err != nil {
		return 0, false
	}
	for _, v := range versions {
		if v.VersionID == nullVersion {
			return v.Seq, true
		}
	}
	return 0, false
}

func validateObjectKey(key *string) error {
	if key == nil || *key == "" {
		return invalidArgument("object key is required")
	}
	if strings.IndexByte(*key, keySeparator) >= 0 {
		return invalidArgument("object key contains a NUL byte")
	}
	return nil
}

func (s *Store) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if params == nil || params.Bucket == nil {
		return nil, fmt.Errorf("bucket is required")
	}
	name := *params.Bucket
	if !bucketNamePattern.MatchString(name) {
		return nil, apiError("InvalidBucketName", "The specified bucket is not valid: %s", name)
	}
	region := s.region
	if params.CreateBucketConfiguration != nil && params.CreateBucketConfiguration.LocationConstraint != "" {
		region = string(params.CreateBucketConfiguration.LocationConstraint)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var existing bucketRecord
		found, err := getJSON(txn, bucketKey(name), &existing)
		if err != nil {
			return err
		}
		if found {
			if existing.Owner == s.account {
				return &s3types.BucketAlreadyOwnedByYou{Message: aws.String("Your previous request to create the named bucket succeeded and you already own it.")}
			}
			return &s3types.BucketAlreadyExists{Message: aws.String("The requested bucket name is not available.")}
		}
		return setJSON(txn, bucketKey(name), bucketRecord{
			Name:    name,
			Owner:   s.account,
			Region:  region,
			Created: time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &s3.CreateBucketOutput{Location: aws.String("/" + name)}, nil
}

func (s *Store) PutBucketVersioning(ctx context.Context, params *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error) {
	if params == nil || params.Bucket == nil || params.VersioningConfiguration == nil {
		return nil, fmt.Errorf("bucket and versioning configuration are required")
	}
	status := params.VersioningConfiguration.Status
	if status != s3types.BucketVersioningStatusEnabled && status != s3types.BucketVersioningStatusSuspended {
		return nil, apiError("MalformedXML", "unsupported versioning status %q", status)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		b, err := s.loadBucket(txn, *params.Bucket, params.ExpectedBucketOwner)
		if err != nil {
			return err
		}
		b.Versioning = string(status)
		return setJSON(txn, bucketKey(b.Name), b)
	})
	if err != nil {
		return nil, err
	}
	return &s3.PutBucketVersioningOutput{}, nil
}

func (s *Store) DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	if params == nil || params.Bucket == nil {
		return nil, fmt.Errorf("bucket is required")
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		b, err := s.loadBucket(txn, *params.Bucket, params.ExpectedBucketOwner)
		if err != nil {
			return err
		}
		if b.Owner != s.account {
			return accessDenied()
		}
		empty := true
		err = scanJSON(txn, childPrefix(objectPrefix, b.Name), func(_ []byte, _ objectVersion) (bool, error) {
			empty = false
			return false, nil
		})
		if err != nil {
			return err
		}
		if !empty {
			return bucketNotEmpty(b.Name)
		}
		return txn.Delete(bucketKey(b.Name))
	})
	if err != nil {
		return nil, err
	}
	return &s3.DeleteBucketOutput{}, nil
}

func (s *Store) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if params == nil || params.Bucket == nil {
		return nil, fmt.Errorf("bucket is required")
	}
	if err := validateObjectKey(params.Key); err != nil {
		return nil, err
	}
	var data []byte
	if params.Body != nil {
		var err error
		if data, err = io.ReadAll(params.Body); err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	}
	sum := md5.Sum(data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	seq, err := s.nextSeq()
	if err != nil {
		return nil, err
	}
	v := objectVersion{
		Key:          *params.Key,
		VersionID:    nullVersion,
		Seq:          seq,
		Data:         data,
		ETag:         etag,
		ContentType:  aws.ToString(params.ContentType),
		LastModified: time.Now().UTC(),
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		b, err := s.loadBucket(txn, *params.Bucket, params.ExpectedBucketOwner)
		if err != nil {
			return err
		}
		if b.versioned() {
			v.VersionID = newVersionID(v.Seq)
		} else if err := dropNullVersion(txn, b.Name, v.Key); err != nil {
			return err
		}
		return setJSON(txn, objectKey(b.Name, v.Key, v.Seq), v)
	})
	if err != nil {
		return nil, err
	}

	out := &s3.PutObjectOutput{ETag: aws.String(etag)}
	if v.VersionID != nullVersion {
		out.VersionId = aws.String(v.VersionID)
	}
	return out, nil
}

// dropNullVersion removes the "null" version of key, which unversioned
// writes and deletes replace in place.
func dropNullVersion(txn *badger.Txn, bucket, key string) error {
	versions, err := versionsOf(txn, bucket, key)
	if err != nil {
		return err
	}
	for _, old := range versions {
		if old.VersionID == nullVersion {
			if err := txn.Delete(objectKey(bucket, key, old.Seq)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if params == nil || params.Bucket == nil {
		return nil, fmt.Errorf("bucket is required")
	}
	if err := validateObjectKey(params.Key); err != nil {
		return nil, err
	}
	var found *objectVersion
	err := s.db.View(func(txn *badger.Txn) error {
		b, err := s.loadBucket(txn, *params.Bucket, params.ExpectedBucketOwner)
		if err != nil {
			return err
		}
		versions, err := versionsOf(txn, b.Name, *params.Key)
		if err != nil {
			return err
		}
		for i := range versions {
			if params.VersionId == nil || versions[i].VersionID == *params.VersionId {
				found = &versions[i]
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil || found.DeleteMarker {
		return nil, noSuchKey(*params.Key)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(found.Data)),
		ContentLength: aws.Int64(int64(len(found.Data))),
		ContentType:   nilIfEmpty(found.ContentType),
		ETag:          aws.String(found.ETag),
		LastModified:  aws.Time(found.LastModified),
		VersionId:     aws.String(found.VersionID),
	}, nil
}

// DeleteObject removes a specific version when VersionId is set. Otherwise it
// removes the object in an unversioned bucket, or stacks a delete marker on
// top of it in a versioned one.
func (s *Store) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if params == nil || params.Bucket == nil {
		return nil, fmt.Errorf("bucket is required")
	}
	if err := validateObjectKey(params.Key); err != nil {
		return nil, err
	}
	if params.VersionId != nil && !validVersionID(*params.VersionId) {
		return nil, invalidArgument("Invalid version id specified")
	}
	key := *params.Key
	out := &s3.DeleteObjectOutput{}

	var markerSeq uint64
	if params.VersionId == nil {
		seq, err := s.nextSeq()
		if err != nil {
			return nil, err
		}
		markerSeq = seq
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		b, err := s.loadBucket(txn, *params.Bucket, params.ExpectedBucketOwner)
		if err != nil {
			return err
		}
		if params.VersionId != nil {
			versions, err := versionsOf(txn, b.Name, key)
			if err != nil {
				return err
			}
			for _, v := range versions {
				if v.VersionID == *params.VersionId {
					out.VersionId = aws.String(v.VersionID)
					out.DeleteMarker = aws.Bool(v.DeleteMarker)
					return txn.Delete(objectKey(b.Name, key, v.Seq))
				}
			}
			return nil
		}
		if !b.versioned() {
			return dropNullVersion(txn, b.Name, key)
		}
		marker := objectVersion{
			Key:          key,
			VersionID:    newVersionID(markerSeq),
			Seq:          markerSeq,
			DeleteMarker: true,
			LastModified: time.Now().UTC(),
		}
		out.VersionId = aws.String(marker.VersionID)
		out.DeleteMarker = aws.Bool(true)
		return setJSON(txn, objectKey(b.Name, key, marker.Seq), marker)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if params == nil || params.Bucket == nil {
		return nil, fmt.Errorf("bucket is required")
	}
	maxKeys := limit(params.MaxKeys)
	after := aws.ToString(params.StartAfter)
	if params.ContinuationToken != nil {
		decoded, err := base64.RawURLEncoding.DecodeString(*params.ContinuationToken)
		if err != nil {
			return nil, invalidArgument("The continuation token provided is incorrect")
		}
		after = string(decoded)
	}
	prefix := aws.ToString(params.Prefix)

	out := &s3.ListObjectsV2Output{
		Name:              params.Bucket,
		Prefix:            params.Prefix,
		MaxKeys:           aws.Int32(maxKeys),
		ContinuationToken: params.ContinuationToken,
		StartAfter:        params.StartAfter,
		IsTruncated:       aws.Bool(false),
	}
	err := s.db.View(func(txn *badger.Txn) error {
		b, err := s.loadBucket(txn, *params.Bucket, params.ExpectedBucketOwner)
		if err != nil {
			return err
		}
		lastKey := ""
		return scanJSON(txn, childPrefix(objectPrefix, b.Name), func(_ []byte, v objectVersion) (bool, error) {
			if v.Key == lastKey {
				// Only the newest version of a key is current.
				return true, nil
			}
			lastKey = v.Key
			if v.Key <= after || !strings.HasPrefix(v.Key, prefix) || v.DeleteMarker {
				return true, nil
			}
			if int32(len(out.Contents)) == maxKeys {
				out.IsTruncated = aws.Bool(true)
				last := aws.ToString(out.Contents[len(out.Contents)-1].Key)
				out.NextContinuationToken = aws.String(base64.RawURLEncoding.EncodeToString([]byte(last)))
				return false, nil
			}
			out.Contents = append(out.Contents, s3types.Object{
				Key:          aws.String(v.Key),
				Size:         aws.Int64(int64(len(v.Data))),
				ETag:         aws.String(v.ETag),
				LastModified: aws.Time(v.LastModified),
				StorageClass: s3types.ObjectStorageClassStandard,
			})
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))
	return out, nil
}

func (s *Store) ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	if params == nil || params.Bucket == nil {
		return nil, fmt.Errorf("bucket is required")
	}
	if params.VersionIdMarker != nil && params.KeyMarker == nil {
		return nil, invalidArgument("A version-id marker cannot be specified without a key marker.")
	}
	maxKeys := limit(params.MaxKeys)
	keyMarker := aws.ToString(params.KeyMarker)
	versionMarker := aws.ToString(params.VersionIdMarker)
	prefix := aws.ToString(params.Prefix)

	out := &s3.ListObjectVersionsOutput{
		Name:            params.Bucket,
		Prefix:          params.Prefix,
		KeyMarker:       params.KeyMarker,
		VersionIdMarker: params.VersionIdMarker,
		MaxKeys:         aws.Int32(maxKeys),
		IsTruncated:     aws.Bool(false),
	}
	err := s.db.View(func(txn *badger.Txn) error {
		b, err := s.loadBucket(txn, *params.Bucket, params.ExpectedBucketOwner)
		if err != nil {
			return err
		}
		var markerSeq uint64
		var hasMarkerSeq bool
		if versionMarker != "" {
			markerSeq, hasMarkerSeq = versionPosition(txn, b.Name, keyMarker, versionMarker)
		}
		var (
			count   int32
			lastKey string
			prev    objectVersion
		)
		return scanJSON(txn, childPrefix(objectPrefix, b.Name), func(_ []byte, v objectVersion) (bool, error) {
			latest := v.Key != lastKey
			lastKey = v.Key
			if keyMarker != "" {
				if v.Key < keyMarker {
					return true, nil
				}
				// Versions are newest first, so everything at or above the
				// marker's sequence was listed on an earlier page.
				if v.Key == keyMarker && (versionMarker == "" || hasMarkerSeq && v.Seq >= markerSeq) {
					return true, nil
				}
			}
			if !strings.HasPrefix(v.Key, prefix) {
				return true, nil
			}
			if count == maxKeys {
				out.IsTruncated = aws.Bool(true)
				out.NextKeyMarker = aws.String(prev.Key)
				out.NextVersionIdMarker = aws.String(prev.VersionID)
				return false, nil
			}
			count++
			prev = v
			if v.DeleteMarker {
				out.DeleteMarkers = append(out.DeleteMarkers, s3types.DeleteMarkerEntry{
					Key:          aws.String(v.Key),
					VersionId:    aws.String(v.VersionID),
					IsLatest:     aws.Bool(latest),
					LastModified: aws.Time(v.LastModified),
				})
				return true, nil
			}
			out.Versions = append(out.Versions, s3types.ObjectVersion{
				Key:          aws.String(v.Key),
				VersionId:    aws.String(v.VersionID),
				IsLatest:     aws.Bool(latest),
				Size:         aws.Int64(int64(len(v.Data))),
				ETag:         aws.String(v.ETag),
				LastModified: aws.Time(v.LastModified),
			})
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func limit(maxKeys *int32) int32 {
	if maxKeys == nil || *maxKeys <= 0 || *maxKeys > defaultMaxKeys {
		return defaultMaxKeys
	}
	return *maxKeys
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
