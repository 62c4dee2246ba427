// Package vault implements the note vault on a local directory
// Package vault 基于本地目录实现笔记仓库
package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gookit/goutil/fsutil"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/pkg/errors"
)

// TrashDir folder under the vault root receiving trashed files
// TrashDir 回收站目录
const TrashDir = ".trash"

// LocalVault directory backed vault, paths are vault relative with "/" separators
// LocalVault 基于目录的 vault，路径为使用 "/" 分隔的相对路径
type LocalVault struct {
	root string
}

// NewLocalVault 创建本地 vault，root 必须是已存在的目录
func NewLocalVault(root string) (*LocalVault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "vault root")
	}
	if !fsutil.IsDir(abs) {
		return nil, errors.Errorf("vault root %s is not a directory", abs)
	}
	return &LocalVault{root: abs}, nil
}

func (v *LocalVault) Root() string {
	return v.root
}

// Clean normalizes a vault path, "" means the vault root
// Clean 规范化 vault 路径
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (v *LocalVault) abs(p string) string {
	return filepath.Join(v.root, filepath.FromSlash(Clean(p)))
}

// Rel converts an absolute filesystem path below the root into a vault path
// Rel 将 root 下的绝对路径转换为 vault 路径
func (v *LocalVault) Rel(absPath string) (string, bool) {
	rel, err := filepath.Rel(v.root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func toFile(p string, info fs.FileInfo) domain.File {
	return domain.File{
		Path:    p,
		Name:    path.Base(p),
		Ext:     path.Ext(p),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

func (v *LocalVault) Stat(ctx context.Context, p string) (domain.File, error) {
	clean := Clean(p)
	if clean == "" {
		return domain.File{}, domain.ErrFileNotFound
	}
	info, err := os.Stat(v.abs(clean))
	if err != nil || info.IsDir() {
		return domain.File{}, domain.ErrFileNotFound
	}
	return toFile(clean, info), nil
}

func (v *LocalVault) ReadText(ctx context.Context, p string) (string, error) {
	data, err := v.ReadBinary(ctx, p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (v *LocalVault) ReadBinary(ctx context.Context, p string) ([]byte, error) {
	data, err := os.ReadFile(v.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "read "+p)
	}
	return data, nil
}

// WriteText replaces the note through a temp file and rename
// WriteText 通过临时文件加重命名替换笔记内容
func (v *LocalVault) WriteText(ctx context.Context, p string, text string) error {
	dst := v.abs(p)
	if err := fsutil.MkParentDir(dst); err != nil {
		return errors.Wrap(err, "write "+p)
	}
	return errors.Wrap(writeFileAtomic(dst, []byte(text), 0o644), "write "+p)
}

func (v *LocalVault) CreateBinary(ctx context.Context, p string, data []byte) error {
	dst := v.abs(p)
	if err := fsutil.MkParentDir(dst); err != nil {
		return errors.Wrap(err, "create "+p)
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return domain.ErrAlreadyExists
		}
		return errors.Wrap(err, "create "+p)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(dst)
		return errors.Wrap(err, "create "+p)
	}
	return errors.Wrap(f.Close(), "create "+p)
}

func (v *LocalVault) CreateFolder(ctx context.Context, p string) error {
	dst := v.abs(p)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, "mkdir "+p)
	}
	if err := os.Mkdir(dst, 0o755); err != nil {
		if os.IsExist(err) {
			return domain.ErrAlreadyExists
		}
		return errors.Wrap(err, "mkdir "+p)
	}
	return nil
}

// ListFiles walks the vault skipping hidden folders such as .trash and .obsidian
// ListFiles 遍历 vault，跳过 .trash、.obsidian 等隐藏目录
func (v *LocalVault) ListFiles(ctx context.Context) ([]domain.File, error) {
	var files []domain.File
	err := filepath.WalkDir(v.root, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := d.Name()
		if d.IsDir() {
			if fp != v.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isTempName(name) {
			return nil
		}
		rel, ok := v.Rel(fp)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, toFile(rel, info))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list vault")
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (v *LocalVault) ListFolder(ctx context.Context, p string) ([]domain.File, error) {
	entries, err := os.ReadDir(v.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "list "+p)
	}
	dir := Clean(p)
	var files []domain.File
	for _, e := range entries {
		if e.IsDir() || isTempName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, toFile(path.Join(dir, e.Name()), info))
	}
	return files, nil
}

// Trash moves the file into .trash, keeping its name when free
// Trash 将文件移入 .trash，重名时追加序号
func (v *LocalVault) Trash(ctx context.Context, p string) error {
	src := v.abs(p)
	if !fsutil.IsFile(src) {
		return domain.ErrFileNotFound
	}
	trash := filepath.Join(v.root, TrashDir)
	if err := os.MkdirAll(trash, 0o755); err != nil {
		return errors.Wrap(err, "trash "+p)
	}

	name := filepath.Base(src)
	ext := filepath.Ext(name)
	dst := filepath.Join(trash, name)
	for i := 1; fsutil.PathExists(dst); i++ {
		dst = filepath.Join(trash, fmt.Sprintf("%s %d%s", strings.TrimSuffix(name, ext), i, ext))
	}
	return errors.Wrap(os.Rename(src, dst), "trash "+p)
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".tmp.")
}

func writeFileAtomic(dst string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dst)
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp.%s.%d", filepath.Base(dst), os.Getpid()))

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
