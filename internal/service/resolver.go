package service

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/haierkeys/fast-note-image-uploader/internal/metrics"
	"github.com/haierkeys/fast-note-image-uploader/internal/vault"
	apperrors "github.com/haierkeys/fast-note-image-uploader/pkg/errors"
	"github.com/haierkeys/fast-note-image-uploader/pkg/fileurl"
	"github.com/haierkeys/fast-note-image-uploader/pkg/logger"
	"github.com/haierkeys/fast-note-image-uploader/pkg/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNotResolved the reference matched no vault image
var ErrNotResolved = errors.New("reference not resolved")

// ResolveRequest one lookup; the vault listing is fetched at most once and shared by the scanning strategies
// ResolveRequest 一次查找请求，vault 文件列表最多获取一次，由扫描类策略共享
type ResolveRequest struct {
	Ctx      context.Context
	Vault    domain.Vault
	Ref      string
	NotePath string

	once    sync.Once
	files   []domain.File
	listErr error
}

// Files 懒加载 vault 文件列表
func (r *ResolveRequest) Files() ([]domain.File, error) {
	r.once.Do(func() {
		r.files, r.listErr = r.Vault.ListFiles(r.Ctx)
	})
	return r.files, r.listErr
}

// candidates the reference as written plus its percent-decoded form
func (r *ResolveRequest) candidates() []string {
	ref := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(r.Ref, "<"), ">"))
	out := []string{ref}
	if unescaped, err := url.PathUnescape(ref); err == nil && unescaped != ref {
		out = append(out, unescaped)
	}
	return out
}

// stat returns the file at p when it exists and is an image
func (r *ResolveRequest) stat(p string) (domain.File, bool) {
	if p == "" || !util.IsImageFile(p) {
		return domain.File{}, false
	}
	f, err := r.Vault.Stat(r.Ctx, p)
	if err != nil {
		return domain.File{}, false
	}
	return f, true
}

// ResolveStrategy one step of the lookup chain
// ResolveStrategy 查找链中的一步
type ResolveStrategy interface {
	Name() string
	TryResolve(req *ResolveRequest) (domain.File, bool)
}

// exactPath the reference is a vault path as given
type exactPath struct{}

func (exactPath) Name() string { return "exactPath" }

func (exactPath) TryResolve(req *ResolveRequest) (domain.File, bool) {
	for _, c := range req.candidates() {
		if strings.HasPrefix(c, "/") || strings.HasPrefix(c, "./") || strings.HasPrefix(c, "../") {
			continue
		}
		if f, ok := req.stat(c); ok {
			return f, true
		}
	}
	return domain.File{}, false
}

// noteRelative the reference is relative to the note's folder
type noteRelative struct{}

func (noteRelative) Name() string { return "noteRelative" }

func (noteRelative) TryResolve(req *ResolveRequest) (domain.File, bool) {
	dir := path.Dir(vault.Clean(req.NotePath))
	for _, c := range req.candidates() {
		if f, ok := req.stat(vault.Clean(path.Join(dir, c))); ok {
			return f, true
		}
	}
	return domain.File{}, false
}

// vaultRoot the reference is rooted at the vault with an explicit leading separator
type vaultRoot struct{}

func (vaultRoot) Name() string { return "vaultRoot" }

func (vaultRoot) TryResolve(req *ResolveRequest) (domain.File, bool) {
	for _, c := range req.candidates() {
		if f, ok := req.stat(vault.Clean("/" + c)); ok {
			return f, true
		}
	}
	return domain.File{}, false
}

// basenameScan first vault image whose name equals the reference's base name
type basenameScan struct{}

func (basenameScan) Name() string { return "basenameScan" }

func (basenameScan) TryResolve(req *ResolveRequest) (domain.File, bool) {
	files, err := req.Files()
	if err != nil {
		return domain.File{}, false
	}
	for _, c := range req.candidates() {
		base := fileurl.NormalizeName(path.Base(strings.ReplaceAll(c, "\\", "/")))
		for _, f := range files {
			if util.IsImageFile(f.Name) && fileurl.NormalizeName(f.Name) == base {
				return f, true
			}
		}
	}
	return domain.File{}, false
}

// rawScan compares the unstripped reference against whole paths
type rawScan struct{}

func (rawScan) Name() string { return "rawScan" }

func (rawScan) TryResolve(req *ResolveRequest) (domain.File, bool) {
	files, err := req.Files()
	if err != nil {
		return domain.File{}, false
	}
	for _, c := range req.candidates() {
		raw := fileurl.NormalizeName(c)
		for _, f := range files {
			if !util.IsImageFile(f.Name) {
				continue
			}
			p := fileurl.NormalizeName(f.Path)
			if p == raw || strings.HasSuffix(p, "/"+raw) || fileurl.NormalizeName(f.Name) == raw {
				return f, true
			}
		}
	}
	return domain.File{}, false
}

// DefaultStrategies cheapest and most specific first
// DefaultStrategies 由快到慢、由精确到模糊
func DefaultStrategies() []ResolveStrategy {
	return []ResolveStrategy{exactPath{}, noteRelative{}, vaultRoot{}, basenameScan{}, rawScan{}}
}

// Resolver maps reference strings to vault images
// Resolver 将引用字符串映射到 vault 中的图片
type Resolver struct {
	vault      domain.Vault
	strategies []ResolveStrategy
	logger     *zap.Logger
	metrics    metrics.Metrics
}

func NewResolver(v domain.Vault, lg *zap.Logger, m metrics.Metrics, strategies ...ResolveStrategy) *Resolver {
	if lg == nil {
		lg = zap.NewNop()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Resolver{vault: v, strategies: strategies, logger: lg, metrics: m}
}

// ResolvePath runs the strategy chain for one reference string, never mutating the vault
// ResolvePath 对一个引用执行查找链，不修改 vault
func (r *Resolver) ResolvePath(ctx context.Context, ref, notePath string) (domain.File, string, error) {
	req := &ResolveRequest{Ctx: ctx, Vault: r.vault, Ref: ref, NotePath: notePath}
	for _, s := range r.strategies {
		if f, ok := s.TryResolve(req); ok {
			r.metrics.IncResolution(s.Name())
			r.logger.Debug("reference resolved",
				zap.String(logger.FieldNote, notePath),
				zap.String(logger.FieldPath, f.Path),
				zap.String(logger.FieldStrategy, s.Name()))
			return f, s.Name(), nil
		}
	}
	r.metrics.IncResolution("none")
	return domain.File{}, "", apperrors.Resolution("resolve", ref, ErrNotResolved)
}

// Resolve 解析图片引用
func (r *Resolver) Resolve(ctx context.Context, ref domain.ImageReference, notePath string) (*domain.ResolvedImage, error) {
	f, _, err := r.ResolvePath(ctx, ref.PathOrURL, notePath)
	if err != nil {
		return nil, err
	}
	return &domain.ResolvedImage{Reference: ref, File: f, FileName: f.Name}, nil
}
