// Package local_fs stores objects on the local disk, served by the daemon at /files/
// Package local_fs 将对象保存到本地磁盘，由服务在 /files/ 下提供访问
package local_fs

import (
	"context"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/goutil/fsutil"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/pkg/errors"
)

type Config struct {
	SavePath string
	// PublicBaseURL daemon address, e.g. http://127.0.0.1:9100
	// PublicBaseURL 服务访问地址
	PublicBaseURL string
}

type LocalFS struct {
	Config *Config
}

func NewClient(conf *Config) (*LocalFS, error) {
	if conf.SavePath == "" {
		return nil, errors.New("local_fs: save path is empty")
	}
	return &LocalFS{Config: conf}, nil
}

// FilePath 对象 key 对应的磁盘路径，拒绝越出 SavePath 的 key
func (p *LocalFS) FilePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", errors.New("local_fs: empty key")
	}
	return filepath.Join(p.Config.SavePath, filepath.FromSlash(clean)), nil
}

// PutObject 写入对象
func (p *LocalFS) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	dst, err := p.FilePath(key)
	if err != nil {
		return err
	}
	if err := fsutil.MkParentDir(dst); err != nil {
		return errors.Wrap(err, "local_fs")
	}

	tmp := dst + ".tmp-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "local_fs")
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "local_fs")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "local_fs")
	}
	return errors.Wrap(os.Rename(tmp, dst), "local_fs")
}

// SignedURL 本地存储返回服务地址下的 /files/ 链接，过期时间作为提示参数附带
func (p *LocalFS) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if _, err := p.FilePath(key); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(p.Config.PublicBaseURL, "/")
	escaped := (&url.URL{Path: strings.TrimPrefix(key, "/")}).EscapedPath()
	u := base + "/files/" + escaped
	if expires > 0 {
		u += "?Expires=" + strconv.FormatInt(time.Now().Add(expires).Unix(), 10)
	}
	return u, nil
}

// ListObjects 按 key 排序列出对象
func (p *LocalFS) ListObjects(ctx context.Context, prefix, marker string, maxKeys int) (*domain.ListResult, error) {
	var items []domain.ObjectItem
	root := p.Config.SavePath

	err := filepath.WalkDir(root, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, fp)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.Contains(path.Base(key), ".tmp-") || !strings.HasPrefix(key, prefix) || key <= marker {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		items = append(items, domain.ObjectItem{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "local_fs")
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

// DeleteObject 删除对象，不存在时视为成功
func (p *LocalFS) DeleteObject(ctx context.Context, key string) error {
	dst, err := p.FilePath(key)
	if err != nil {
		return err
	}
	if fsutil.PathExists(dst) {
		return errors.Wrap(os.Remove(dst), "local_fs")
	}
	return nil
}

// DeleteObjects 批量删除对象
func (p *LocalFS) DeleteObjects(ctx context.Context, keys []string) (*domain.DeleteResult, error) {
	res := &domain.DeleteResult{}
	for _, k := range keys {
		if err := p.DeleteObject(ctx, k); err != nil {
			res.Errors = append(res.Errors, domain.DeleteError{Key: k, Message: err.Error()})
			continue
		}
		res.Deleted = append(res.Deleted, k)
	}
	return res, nil
}
