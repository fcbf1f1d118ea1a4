package corfs

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/mattetti/filebuffer"
)

// defaultChunkSize is the size of each ranged GET issued by an s3Reader
const defaultChunkSize = 8 * 1024 * 1024

// S3FileSystem reads and writes objects addressed as s3://bucket/key.
type S3FileSystem struct {
	client    *s3.S3
	chunkSize int64
}

type s3Address struct {
	bucket string
	key    string
}

func parseS3URI(uri string) (s3Address, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return s3Address{}, err
	}
	if parsed.Scheme != "s3" {
		return s3Address{}, fmt.Errorf("%s is not an s3 uri", uri)
	}
	return s3Address{
		bucket: parsed.Host,
		key:    strings.TrimPrefix(parsed.Path, "/"),
	}, nil
}

func (a s3Address) String() string {
	return fmt.Sprintf("s3://%s/%s", a.bucket, a.key)
}

func isNotFound(err error) bool {
	var aErr awserr.Error
	if errors.As(err, &aErr) {
		switch aErr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return false
}

// ListFiles lists the objects whose keys match pathGlob.
func (s *S3FileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	addr, err := parseS3URI(pathGlob)
	if err != nil {
		return nil, err
	}

	prefix := addr.key
	if idx := strings.IndexAny(prefix, "*?["); idx >= 0 {
		prefix = prefix[:idx]
	}

	files := make([]FileInfo, 0)
	params := &s3.ListObjectsV2Input{
		Bucket: aws.String(addr.bucket),
		Prefix: aws.String(prefix),
	}
	var matchErr error
	err = s.client.ListObjectsV2Pages(params,
		func(page *s3.ListObjectsV2Output, _ bool) bool {
			for _, object := range page.Contents {
				matched := strings.HasPrefix(*object.Key, addr.key)
				if !matched {
					matched, matchErr = path.Match(addr.key, *object.Key)
					if matchErr != nil {
						return false
					}
				}
				if !matched {
					continue
				}
				files = append(files, FileInfo{
					Name: s3Address{bucket: addr.bucket, key: *object.Key}.String(),
					Size: *object.Size,
				})
			}
			return true
		})
	if err == nil {
		err = matchErr
	}

	return files, err
}

// OpenReader opens an object for reading, starting startAt bytes in.
// A missing object yields an error satisfying errors.Is(err, os.ErrNotExist).
func (s *S3FileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	fInfo, err := s.Stat(filePath)
	if err != nil {
		return nil, err
	}
	addr, _ := parseS3URI(filePath)

	reader := &s3Reader{
		client:    s.client,
		bucket:    addr.bucket,
		key:       addr.key,
		offset:    startAt,
		chunkSize: s.chunkSize,
		totalSize: fInfo.Size,
	}
	if startAt >= fInfo.Size {
		reader.chunk = io.NopCloser(strings.NewReader(""))
		return reader, nil
	}
	return reader, reader.loadNextChunk()
}

// OpenWriter buffers the object in memory and uploads it on Close.
func (s *S3FileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	addr, err := parseS3URI(filePath)
	if err != nil {
		return nil, err
	}
	return &s3Writer{
		client: s.client,
		bucket: addr.bucket,
		key:    addr.key,
		buf:    filebuffer.New(nil),
	}, nil
}

func (s *S3FileSystem) Stat(filePath string) (FileInfo, error) {
	addr, err := parseS3URI(filePath)
	if err != nil {
		return FileInfo{}, err
	}

	head, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(addr.bucket),
		Key:    aws.String(addr.key),
	})
	if err != nil {
		if isNotFound(err) {
			return FileInfo{}, fmt.Errorf("%s: %w", filePath, os.ErrNotExist)
		}
		return FileInfo{}, err
	}

	return FileInfo{
		Name: filePath,
		Size: aws.Int64Value(head.ContentLength),
	}, nil
}

func (s *S3FileSystem) Delete(filePath string) error {
	addr, err := parseS3URI(filePath)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(addr.bucket),
		Key:    aws.String(addr.key),
	})
	return err
}

// Join joins s3 path elements. The scheme of the first element is kept intact.
func (s *S3FileSystem) Join(elem ...string) string {
	if len(elem) == 0 {
		return ""
	}
	base := strings.TrimSuffix(elem[0], "/")
	rest := path.Join(elem[1:]...)
	if rest == "" {
		return base
	}
	return base + "/" + strings.TrimPrefix(rest, "/")
}

func (s *S3FileSystem) Init() error {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return err
	}
	s.client = s3.New(sess)
	s.chunkSize = defaultChunkSize
	return nil
}
