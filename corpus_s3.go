package nmt_runner

import (
	"bytes"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

const S3_SCHEME = "s3://"

// S3Client is the subset of the S3 API used to fetch corpora.
type S3Client interface {
	GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error)
}

// NewS3Client creates a client from the shared AWS configuration.
func NewS3Client() (S3Client, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}
	return s3.New(sess), nil
}

func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, S3_SCHEME)
}

// ParseS3URI splits s3://bucket/key into its bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", errors.Errorf("%s is not an s3:// URI", uri)
	}
	rest := strings.TrimPrefix(uri, S3_SCHEME)
	slash := strings.Index(rest, "/")
	if slash <= 0 || slash == len(rest)-1 {
		return "", "", errors.Errorf("%s must name a bucket and a key", uri)
	}
	return rest[:slash], rest[slash+1:], nil
}

// WriteCounter counts the bytes written to it and, every 10 seconds,
// logs how much of the download has completed.
type WriteCounter struct {
	Total    uint64
	Last     time.Time
	Reported bool
	Path     string
	Size     uint64
}

func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Total += uint64(n)
	if time.Since(wc.Last).Seconds() > 10 {
		wc.Reported = true
		wc.Last = time.Now()
		log.Printf("Downloading %s... %s / %s completed.", wc.Path,
			humanize.Bytes(wc.Total), humanize.Bytes(wc.Size))
	}
	return n, nil
}

// FetchS3Object
// Downloads an object fully into memory and returns a reader over it.
func FetchS3Object(svc S3Client, bucket, key string) (io.ReadCloser,
	error) {
	result, err := svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching s3://%s/%s", bucket, key)
	}
	defer result.Body.Close()

	counter := &WriteCounter{
		Path: S3_SCHEME + bucket + "/" + key,
		Last: time.Now(),
		Size: uint64(aws.Int64Value(result.ContentLength)),
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.TeeReader(result.Body, counter)); err != nil {
		return nil, errors.Wrapf(err, "reading s3://%s/%s", bucket, key)
	}
	if counter.Reported {
		log.Printf("Downloaded %s (%s)", counter.Path,
			humanize.Bytes(counter.Total))
	}
	return io.NopCloser(&buf), nil
}
