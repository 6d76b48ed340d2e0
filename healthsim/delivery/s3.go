package delivery

import (
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials/stscreds"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"
)

// S3Saver uploads export files under an s3://bucket/prefix URI.
type S3Saver struct {
	Logger        logrus.FieldLogger
	URI           string
	Endpoint      string
	AssumeRoleArn string
}

func (s *S3Saver) Save(name string, data io.Reader) (string, error) {
	bucket, prefix := ParseS3URI(s.URI)
	key := path.Join(prefix, name)

	sess, err := s.createSession()
	if err != nil {
		s.Logger.Errorf("Failed to create S3 session: %s", err)
		return "", err
	}

	uploader := s3manager.NewUploader(sess)
	result, err := uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		s.Logger.Errorf("Failed to upload to bucket %s, key %s: %s", bucket, key, err)
		return "", err
	}

	s.Logger.Infof("Uploaded file to %s", result.Location)
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

func (s *S3Saver) createSession() (*session.Session, error) {
	sess := session.Must(session.NewSession())

	config := aws.Config{
		Region: aws.String("us-east-1"),
	}

	if s.Endpoint != "" {
		config.S3ForcePathStyle = aws.Bool(true)
		config.Endpoint = &s.Endpoint
	}

	if s.AssumeRoleArn != "" {
		config.Credentials = stscreds.NewCredentials(sess, s.AssumeRoleArn)
	}

	return session.NewSessionWithOptions(session.Options{
		Config: config,
	})
}
