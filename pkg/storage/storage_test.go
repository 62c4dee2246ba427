package storage_test

import (
	"testing"

	"github.com/haierkeys/fast-note-image-uploader/pkg/storage"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/aliyun_oss"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/aws_s3"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/local_fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Local(t *testing.T) {
	cfg := &storage.Config{
		Type:          storage.LOCAL,
		SavePath:      t.TempDir(),
		PublicBaseURL: "http://127.0.0.1:9100",
	}

	client, err := storage.NewClient(cfg, nil)
	require.NoError(t, err)

	lfs, ok := client.(*local_fs.LocalFS)
	require.True(t, ok, "client is not *local_fs.LocalFS")
	assert.Equal(t, cfg.SavePath, lfs.Config.SavePath)
}

func TestNewClient_OSS(t *testing.T) {
	cfg := &storage.Config{
		Type:            storage.OSS,
		Region:          "oss-cn-hangzhou",
		BucketName:      "notes",
		AccessKeyID:     "ak",
		AccessKeySecret: "sk",
	}

	client, err := storage.NewClient(cfg, nil)
	require.NoError(t, err)
	_, ok := client.(*aliyun_oss.OSS)
	assert.True(t, ok)
}

func TestNewClient_R2UsesS3Driver(t *testing.T) {
	cfg := &storage.Config{
		Type:            storage.R2,
		AccountID:       "acc",
		BucketName:      "notes",
		AccessKeyID:     "ak",
		AccessKeySecret: "sk",
	}

	client, err := storage.NewClient(cfg, nil)
	require.NoError(t, err)
	s3c, ok := client.(*aws_s3.S3)
	require.True(t, ok)
	assert.Equal(t, "https://acc.r2.cloudflarestorage.com", s3c.Config.Endpoint)
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &storage.Config{Type: storage.OSS, BucketName: "notes"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessKeyID")
	assert.Contains(t, err.Error(), "Region")
}

func TestNewClient_Invalid(t *testing.T) {
	_, err := storage.NewClient(&storage.Config{Type: "invalid"}, nil)
	assert.Error(t, err)

	_, err = storage.NewClient(nil, nil)
	assert.Error(t, err)
}
