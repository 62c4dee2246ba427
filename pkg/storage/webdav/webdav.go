// Package webdav WebDAV storage driver
// Package webdav WebDAV 存储驱动
package webdav

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/pkg/errors"
	"github.com/studio-b12/gowebdav"
)

// Config WebDAV 连接信息
type Config struct {
	// Endpoint server url, objects are addressed as Endpoint/Path/key
	// Endpoint 服务地址
	Endpoint string
	Path     string
	User     string
	Password string
	// PublicBaseURL url used for links, defaults to Endpoint
	// PublicBaseURL 生成链接使用的地址，默认同 Endpoint
	PublicBaseURL string
}

// WebDAV WebDAV 客户端
type WebDAV struct {
	Client *gowebdav.Client
	Config *Config
}

// NewClient 创建 WebDAV 客户端实例
func NewClient(conf *Config) (*WebDAV, error) {
	if conf.Endpoint == "" {
		return nil, errors.New("webdav: endpoint is empty")
	}
	return &WebDAV{
		Client: gowebdav.NewClient(conf.Endpoint, conf.User, conf.Password),
		Config: conf,
	}, nil
}

func (w *WebDAV) remotePath(key string) string {
	return path.Join("/", w.Config.Path, key)
}

// PutObject 写入对象，按需创建父目录
func (w *WebDAV) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	p := w.remotePath(key)
	if err := w.Client.MkdirAll(path.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "webdav")
	}
	if err := w.Client.WriteStream(p, body, 0o644); err != nil {
		return errors.Wrap(err, "webdav")
	}
	return nil
}

// SignedURL WebDAV has no signing, the public url is returned as is
// SignedURL WebDAV 不支持签名，直接返回公开地址
func (w *WebDAV) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	base := w.Config.PublicBaseURL
	if base == "" {
		base = w.Config.Endpoint
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "webdav")
	}
	u.Path = path.Join("/", u.Path, w.Config.Path, key)
	return u.String(), nil
}

// ListObjects lists the files directly under prefix, marker is the last key of the previous page
// ListObjects 列出 prefix 目录下的文件，marker 为上一页最后一个 key
func (w *WebDAV) ListObjects(ctx context.Context, prefix, marker string, maxKeys int) (*domain.ListResult, error) {
	dir := prefix
	if !strings.HasSuffix(dir, "/") {
		dir = path.Dir(dir)
	}
	dir = strings.TrimPrefix(path.Clean("/"+dir), "/")

	infos, err := w.Client.ReadDir(w.remotePath(dir))
	if err != nil {
		if os.IsNotExist(err) || gowebdav.IsErrNotFound(err) {
			return &domain.ListResult{}, nil
		}
		return nil, errors.Wrap(err, "webdav")
	}

	var items []domain.ObjectItem
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		key := path.Join(dir, fi.Name())
		if !strings.HasPrefix(key, prefix) || key <= marker {
			continue
		}
		item := domain.ObjectItem{Key: key, Size: fi.Size(), LastModified: fi.ModTime()}
		if f, ok := fi.(gowebdav.File); ok {
			item.ETag = strings.Trim(f.ETag(), `"`)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })

	res := &domain.ListResult{Items: items}
	if maxKeys > 0 && len(items) > maxKeys {
		res.Items = items[:maxKeys]
		res.IsTruncated = true
		res.NextMarker = items[maxKeys-1].Key
	}
	return res, nil
}

// DeleteObject 删除对象
func (w *WebDAV) DeleteObject(ctx context.Context, key string) error {
	if err := w.Client.Remove(w.remotePath(key)); err != nil {
		return errors.Wrap(err, "webdav")
	}
	return nil
}

// DeleteObjects 逐个删除对象
func (w *WebDAV) DeleteObjects(ctx context.Context, keys []string) (*domain.DeleteResult, error) {
	res := &domain.DeleteResult{}
	for _, k := range keys {
		if err := w.DeleteObject(ctx, k); err != nil {
			res.Errors = append(res.Errors, domain.DeleteError{Key: k, Message: err.Error()})
			continue
		}
		res.Deleted = append(res.Deleted, k)
	}
	return res, nil
}
