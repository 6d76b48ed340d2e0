package delivery

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSaverSave(t *testing.T) {
	dir := t.TempDir()
	s := &LocalSaver{Logger: logrus.New(), Dir: dir}

	location, err := s.Save("job-1/patients.ndjson", strings.NewReader(`{"resourceType":"Patient"}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "job-1", "patients.ndjson"), location)

	content, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, `{"resourceType":"Patient"}`, string(content))
}

func TestNewSaver(t *testing.T) {
	logger := logrus.New()

	local := NewSaver("/tmp/payload", logger)
	_, ok := local.(*LocalSaver)
	assert.True(t, ok)

	remote := NewSaver("s3://bucket/prefix", logger)
	s3, ok := remote.(*S3Saver)
	require.True(t, ok)
	assert.Equal(t, "s3://bucket/prefix", s3.URI)
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri    string
		bucket string
		key    string
	}{
		{"s3://my-bucket/path/to/file", "my-bucket", "path/to/file"},
		{"s3://my-bucket", "my-bucket", ""},
		{"my-bucket/key", "my-bucket", "key"},
	}

	for _, tt := range tests {
		bucket, key := ParseS3URI(tt.uri)
		assert.Equal(t, tt.bucket, bucket)
		assert.Equal(t, tt.key, key)
	}
}
