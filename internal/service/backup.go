package service

import (
	"context"
	"path"
	"regexp"
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
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultBackupFolderName folder created next to the note when no backup root is configured
// DefaultBackupFolderName 未配置备份根目录时在笔记旁创建的目录名
const DefaultBackupFolderName = "备份"

const (
	shadowSuffix  = "-backup.md"
	maxDedupTries = 1000
)

// BackupConfig 备份配置
type BackupConfig struct {
	// Root vault path holding every note's backup folder, empty means "{noteDir}/{FolderName}"
	// Root 备份根目录（vault 路径），为空时使用笔记所在目录下的 FolderName
	Root string
	// FolderName 默认备份目录名
	FolderName string
	// SweepCron 5-field cron spec for the periodic shadow refresh, empty disables it
	// SweepCron 定期刷新影子笔记的 cron 表达式，为空时不启用
	SweepCron string
}

// BackupManager keeps a per-note mirror of original images plus a shadow note with local links
// BackupManager 为每篇笔记维护原图备份与使用本地链接的影子笔记
type BackupManager struct {
	vault   domain.Vault
	ledger  domain.UploadRecordRepository
	cfg     BackupConfig
	logger  *zap.Logger
	metrics metrics.Metrics

	mu   sync.Mutex
	cron *cron.Cron
}

// NewBackupManager ledger may be nil
// NewBackupManager ledger 可以为 nil
func NewBackupManager(v domain.Vault, ledger domain.UploadRecordRepository, cfg BackupConfig, lg *zap.Logger, m metrics.Metrics) *BackupManager {
	if lg == nil {
		lg = zap.NewNop()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	if cfg.FolderName == "" {
		cfg.FolderName = DefaultBackupFolderName
	}
	cfg.Root = vault.Clean(cfg.Root)
	return &BackupManager{vault: v, ledger: ledger, cfg: cfg, logger: lg, metrics: m}
}

func noteBase(notePath string) string {
	base := path.Base(vault.Clean(notePath))
	return strings.TrimSuffix(base, path.Ext(base))
}

// FolderFor is a pure function of the note path and the current settings
// FolderFor 只由笔记路径与当前配置决定
func (b *BackupManager) FolderFor(notePath string) string {
	root := b.cfg.Root
	if root == "" {
		root = path.Join(path.Dir(vault.Clean(notePath)), b.cfg.FolderName)
	}
	return vault.Clean(path.Join(root, noteBase(notePath)))
}

// ShadowPath "{folder}/{noteBase}-backup.md"
func (b *BackupManager) ShadowPath(notePath string) string {
	return path.Join(b.FolderFor(notePath), noteBase(notePath)+shadowSuffix)
}

// HasBackupFolder 笔记的备份目录是否已存在
func (b *BackupManager) HasBackupFolder(ctx context.Context, notePath string) bool {
	_, err := b.vault.ListFolder(ctx, b.FolderFor(notePath))
	return err == nil
}

// IsBackupPath reports whether p lives inside a backup tree
// IsBackupPath 判断路径是否位于备份目录中
func (b *BackupManager) IsBackupPath(p string) bool {
	p = vault.Clean(p)
	if b.cfg.Root != "" && (p == b.cfg.Root || strings.HasPrefix(p, b.cfg.Root+"/")) {
		return true
	}
	for _, seg := range strings.Split(path.Dir(p), "/") {
		if seg == b.cfg.FolderName {
			return true
		}
	}
	return false
}

func (b *BackupManager) ensureFolder(ctx context.Context, folder string) error {
	err := b.vault.CreateFolder(ctx, folder)
	if err == nil || errors.Is(err, domain.ErrAlreadyExists) {
		return nil
	}
	return err
}

// BackupImage copies data into the note's backup folder and returns the name used
// An existing name gets "(1)", "(2)" ... appended before the extension
// BackupImage 将图片复制到笔记的备份目录并返回实际文件名，重名时追加 (n)
func (b *BackupManager) BackupImage(ctx context.Context, data []byte, notePath, label string) (string, error) {
	folder := b.FolderFor(notePath)
	if err := b.ensureFolder(ctx, folder); err != nil {
		b.metrics.IncBackup("image", "error")
		return "", apperrors.Backup("createFolder", folder, err)
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(label), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "image.png"
	}

	for n := 0; n < maxDedupTries; n++ {
		candidate := fileurl.DedupName(name, n)
		err := b.vault.CreateBinary(ctx, path.Join(folder, candidate), data)
		if err == nil {
			b.metrics.IncBackup("image", "ok")
			b.logger.Debug("image backed up",
				zap.String(logger.FieldNote, notePath),
				zap.String(logger.FieldPath, path.Join(folder, candidate)))
			return candidate, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			b.metrics.IncBackup("image", "error")
			return "", apperrors.Backup("createBinary", path.Join(folder, candidate), err)
		}
	}
	b.metrics.IncBackup("image", "error")
	return "", apperrors.Backup("createBinary", path.Join(folder, name), errors.New("too many name collisions"))
}

// BackupNote writes the shadow note; text nil means read the live note
// BackupNote 写入影子笔记，text 为 nil 时读取当前笔记内容
func (b *BackupManager) BackupNote(ctx context.Context, notePath string, text *string, uploaded []domain.UploadedImage) error {
	var content string
	if text != nil {
		content = *text
	} else {
		live, err := b.vault.ReadText(ctx, notePath)
		if err != nil {
			b.metrics.IncBackup("note", "error")
			return apperrors.Backup("readNote", notePath, err)
		}
		content = live
	}

	folder := b.FolderFor(notePath)
	if err := b.ensureFolder(ctx, folder); err != nil {
		b.metrics.IncBackup("note", "error")
		return apperrors.Backup("createFolder", folder, err)
	}

	content = replaceUploadedURLs(content, uploaded)
	content = b.replaceRemainingRemote(ctx, folder, content)

	shadow := b.ShadowPath(notePath)
	if err := b.vault.WriteText(ctx, shadow, content); err != nil {
		b.metrics.IncBackup("note", "error")
		return apperrors.Backup("writeShadow", shadow, err)
	}
	b.metrics.IncBackup("note", "ok")
	b.logger.Debug("shadow note written",
		zap.String(logger.FieldNote, notePath),
		zap.String(logger.FieldPath, shadow))
	return nil
}

// replaceUploadedURLs first pass, exact URL then URL with any query string
func replaceUploadedURLs(content string, uploaded []domain.UploadedImage) string {
	for _, up := range uploaded {
		if up.URL == "" || up.BackupName == "" {
			continue
		}
		local := fileurl.EscapeSpaces(up.BackupName)
		content = strings.ReplaceAll(content, up.URL, local)

		base := fileurl.StripQuery(up.URL)
		if base == "" {
			continue
		}
		re := regexp.MustCompile(regexp.QuoteMeta(base) + `(?:[?#][^)\s]*)?`)
		content = re.ReplaceAllLiteralString(content, local)
	}
	return content
}

// replaceRemainingRemote second pass over every remote inline image still in the text
func (b *BackupManager) replaceRemainingRemote(ctx context.Context, folder, content string) string {
	remotes := util.ParseRemoteInlineImages(content)
	if len(remotes) == 0 {
		return content
	}

	files, err := b.vault.ListFolder(ctx, folder)
	if err != nil {
		return content
	}
	var images []domain.File
	for _, f := range files {
		if !strings.EqualFold(f.Ext, ".md") {
			images = append(images, f)
		}
	}
	if len(images) == 0 {
		return content
	}

	for _, r := range remotes {
		name := b.backupNameForURL(ctx, r.URL, images)
		if name == "" {
			continue
		}
		content = strings.ReplaceAll(content, r.RawMatch, util.FormatInlineImage(r.Alt, fileurl.EscapeSpaces(name)))
	}
	return content
}

// backupNameForURL ledger record first, then the name derived from the object key
func (b *BackupManager) backupNameForURL(ctx context.Context, u string, images []domain.File) string {
	if b.ledger != nil {
		rec, err := b.ledger.GetByBaseURL(ctx, fileurl.StripQuery(u))
		if err != nil {
			b.logger.Warn("ledger lookup failed", zap.String(logger.FieldPath, u), zap.Error(err))
		} else if rec != nil && rec.BackupName != "" {
			for _, f := range images {
				if f.Name == rec.BackupName {
					return f.Name
				}
			}
		}
	}

	derived := fileurl.StripTimestampPrefix(fileurl.NameFromURL(u))
	if derived == "" {
		return ""
	}
	derivedStem := strings.TrimSuffix(derived, path.Ext(derived))
	for _, f := range images {
		if fileurl.SameName(f.Name, derived) {
			return f.Name
		}
	}
	for _, f := range images {
		if fileurl.SameName(strings.TrimSuffix(f.Name, f.Ext), derivedStem) {
			return f.Name
		}
	}
	return ""
}

// NotesWithBackup lists every note whose backup folder already exists
// NotesWithBackup 列出已存在备份目录的笔记
func (b *BackupManager) NotesWithBackup(ctx context.Context) ([]string, error) {
	files, err := b.vault.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	var notes []string
	for _, f := range files {
		if !strings.EqualFold(f.Ext, ".md") || b.IsBackupPath(f.Path) {
			continue
		}
		if b.HasBackupFolder(ctx, f.Path) {
			notes = append(notes, f.Path)
		}
	}
	return notes, nil
}

// StartSweep schedules refresh for every backed-up note on the configured cron spec
// StartSweep 按 cron 配置定期刷新所有已备份笔记
func (b *BackupManager) StartSweep(ctx context.Context, refresh func(notePath string)) error {
	if b.cfg.SweepCron == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cron != nil {
		return nil
	}

	c := cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))
	_, err := c.AddFunc(b.cfg.SweepCron, func() {
		notes, err := b.NotesWithBackup(ctx)
		if err != nil {
			b.logger.Warn("backup sweep: list notes failed", zap.Error(err))
			return
		}
		b.logger.Info("backup sweep", zap.Int(logger.FieldCount, len(notes)))
		for _, n := range notes {
			refresh(n)
		}
	})
	if err != nil {
		return apperrors.Configuration("backup.sweep-cron", err)
	}
	c.Start()
	b.cron = c
	return nil
}

// Cleanup releases the periodic sweep, nothing else
// Cleanup 停止定期任务
func (b *BackupManager) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cron != nil {
		b.cron.Stop()
		b.cron = nil
	}
}
