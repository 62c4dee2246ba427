package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/haierkeys/fast-note-image-uploader/internal/metrics"
	"github.com/haierkeys/fast-note-image-uploader/internal/vault"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"
	"github.com/haierkeys/fast-note-image-uploader/pkg/diff"
	apperrors "github.com/haierkeys/fast-note-image-uploader/pkg/errors"
	"github.com/haierkeys/fast-note-image-uploader/pkg/fileurl"
	"github.com/haierkeys/fast-note-image-uploader/pkg/logger"
	"github.com/haierkeys/fast-note-image-uploader/pkg/util"
	"github.com/haierkeys/fast-note-image-uploader/pkg/workerpool"
	"github.com/haierkeys/fast-note-image-uploader/pkg/writequeue"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultRefreshDebounce quiet period before a modified note's shadow is refreshed
// DefaultRefreshDebounce 笔记修改后刷新影子笔记前的静默时间
const DefaultRefreshDebounce = 3 * time.Second

// ErrNoteChanged the note diverged from the scanned text and the edits could not be re-applied
var ErrNoteChanged = errors.New("note changed concurrently")

// IncomingFile dropped or pasted bytes
// IncomingFile 拖放或粘贴的文件
type IncomingFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ScanOptions 批量扫描选项
type ScanOptions struct {
	// TrashLocal moves successfully uploaded local originals to the vault trash
	// TrashLocal 将上传成功的本地原图移入回收站
	TrashLocal bool
}

// FailedImage 单个失败的图片
type FailedImage struct {
	Ref   string `json:"ref"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// ScanReport outcome of one trigger
// ScanReport 一次触发的处理结果
type ScanReport struct {
	NotePath string        `json:"notePath"`
	Found    int           `json:"found"`
	Uploaded int           `json:"uploaded"`
	Failed   int           `json:"failed"`
	Failures []FailedImage `json:"failures,omitempty"`
	Changed  bool          `json:"changed"`
	Message  string        `json:"message"`
}

func (r *ScanReport) fail(ref string, err error) {
	kind := "unknown"
	if appErr := apperrors.GetAppError(err); appErr != nil {
		kind = appErr.Kind.String()
	}
	r.Failed++
	r.Failures = append(r.Failures, FailedImage{Ref: ref, Kind: kind, Error: err.Error()})
}

// uploadedItem one successful upload waiting for its text rewrite and backup
type uploadedItem struct {
	label  string
	source string
	data   []byte
	result *domain.UploadResult
}

// ReconcilerConfig 编排器配置
type ReconcilerConfig struct {
	Debounce time.Duration
}

// Reconciler runs parse, resolve, upload, rewrite and backup for each trigger
// Reconciler 为每次触发执行解析、查找、上传、改写与备份
type Reconciler struct {
	vault    domain.Vault
	resolver *Resolver
	uploader *Uploader
	backup   *BackupManager
	ledger   domain.UploadRecordRepository
	locks    *writequeue.Manager
	pool     *workerpool.Pool
	notifier domain.Notifier
	logger   *zap.Logger
	metrics  metrics.Metrics
	debounce time.Duration

	timerMu sync.Mutex
	timers  map[string]*pendingRefresh

	ctx    context.Context
	cancel context.CancelFunc
}

// ReconcilerDeps collaborators of the orchestrator; Ledger, Notifier, Logger and Metrics may be nil
// ReconcilerDeps 编排器依赖，Ledger、Notifier、Logger、Metrics 可为 nil
type ReconcilerDeps struct {
	Vault    domain.Vault
	Resolver *Resolver
	Uploader *Uploader
	Backup   *BackupManager
	Ledger   domain.UploadRecordRepository
	Locks    *writequeue.Manager
	Pool     *workerpool.Pool
	Notifier domain.Notifier
	Logger   *zap.Logger
	Metrics  metrics.Metrics
}

func NewReconciler(deps ReconcilerDeps, cfg ReconcilerConfig) *Reconciler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	if deps.Notifier == nil {
		deps.Notifier = NewLogNotifier(deps.Logger)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultRefreshDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		vault:    deps.Vault,
		resolver: deps.Resolver,
		uploader: deps.Uploader,
		backup:   deps.Backup,
		ledger:   deps.Ledger,
		locks:    deps.Locks,
		pool:     deps.Pool,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		debounce: cfg.Debounce,
		timers:   make(map[string]*pendingRefresh),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (r *Reconciler) notify(level domain.NoticeLevel, c *code.Code, notePath, file, detail string) {
	r.notifier.Notify(newNotice(level, c, notePath, file, detail))
}

func (r *Reconciler) notifyErr(notePath, file string, err error) {
	level := domain.NoticeError
	if apperrors.IsKind(err, apperrors.KindResolution) || apperrors.IsKind(err, apperrors.KindBackup) {
		level = domain.NoticeWarn
	}
	c := code.ErrorServerInternal
	if appErr := apperrors.GetAppError(err); appErr != nil {
		c = appErr.Kind.Code()
	}
	r.notify(level, c, notePath, file, err.Error())
}

// scanGroup one distinct reference and every raw occurrence of it
type scanGroup struct {
	ref  domain.ImageReference
	raws []string
}

func groupLocalImages(text string) []*scanGroup {
	var groups []*scanGroup
	byRef := make(map[string]*scanGroup)
	for _, ref := range util.LocalImageLinks(text) {
		if !isImageRef(ref.PathOrURL) {
			continue
		}
		g, ok := byRef[ref.PathOrURL]
		if !ok {
			g = &scanGroup{ref: ref}
			byRef[ref.PathOrURL] = g
			groups = append(groups, g)
		}
		if !util.InSlice(g.raws, ref.RawMatch) {
			g.raws = append(g.raws, ref.RawMatch)
		}
	}
	return groups
}

// isImageRef embeds of notes or other attachments are not upload candidates
func isImageRef(p string) bool {
	return util.IsImageFile(fileurl.StripQuery(p))
}

// HandleScan uploads every local image of the note and rewrites the note with one write
// HandleScan 上传笔记中的全部本地图片，并以一次写入改写笔记
func (r *Reconciler) HandleScan(ctx context.Context, notePath string, opts ScanOptions) (*ScanReport, error) {
	notePath = vault.Clean(notePath)
	report := &ScanReport{NotePath: notePath}

	if err := r.uploader.CheckConfig(); err != nil {
		r.notifyErr(notePath, "", err)
		return report, err
	}

	original, err := r.vault.ReadText(ctx, notePath)
	if err != nil {
		r.notify(domain.NoticeError, code.ErrorNoteNotFound, notePath, "", err.Error())
		return report, errors.Wrap(err, "read note")
	}

	groups := groupLocalImages(original)
	report.Found = len(groups)
	if len(groups) == 0 {
		report.Message = code.SuccessNoLocal.Msg()
		r.notify(domain.NoticeInfo, code.SuccessNoLocal, notePath, "", "")
		return report, nil
	}

	updated := original
	var items []uploadedItem
	for _, g := range groups {
		resolved, err := r.resolver.Resolve(ctx, g.ref, notePath)
		if err != nil {
			report.fail(g.ref.PathOrURL, err)
			r.notifyErr(notePath, g.ref.PathOrURL, err)
			continue
		}

		data, err := r.vault.ReadBinary(ctx, resolved.File.Path)
		if err != nil {
			err = apperrors.Resolution("readBinary", resolved.File.Path, err)
			report.fail(g.ref.PathOrURL, err)
			r.notify(domain.NoticeWarn, code.ErrorFileRead, notePath, resolved.File.Path, err.Error())
			continue
		}

		res, err := r.uploader.Upload(ctx, data, resolved.FileName)
		if err != nil {
			report.fail(g.ref.PathOrURL, err)
			r.notifyErr(notePath, resolved.FileName, err)
			continue
		}

		link := util.FormatInlineImage(resolved.FileName, res.SignedURL)
		for _, raw := range g.raws {
			updated = strings.ReplaceAll(updated, raw, link)
		}
		items = append(items, uploadedItem{label: resolved.FileName, source: resolved.File.Path, data: data, result: res})
		report.Uploaded++
	}

	if len(items) == 0 {
		report.Message = fmt.Sprintf("0 uploaded, %d failed", report.Failed)
		r.notify(domain.NoticeWarn, code.SuccessScanDone, notePath, "", report.Message)
		return report, nil
	}

	changed, err := r.commit(ctx, notePath, items, func(current string) (string, error) {
		if current == original {
			return updated, nil
		}
		merged, ok := diff.Rebase(original, updated, current)
		if !ok {
			return "", apperrors.WriteConflict("rebase", notePath, ErrNoteChanged)
		}
		return merged, nil
	})
	report.Changed = changed
	if err != nil {
		report.Message = err.Error()
		return report, err
	}

	if report.Failed == 0 {
		report.Message = code.SuccessLinks.Msg()
		r.notify(domain.NoticeInfo, code.SuccessLinks, notePath, "", fmt.Sprintf("%d uploaded", report.Uploaded))
	} else {
		report.Message = fmt.Sprintf("%d uploaded, %d failed", report.Uploaded, report.Failed)
		r.notify(domain.NoticeWarn, code.SuccessScanDone, notePath, "", report.Message)
	}

	if opts.TrashLocal {
		r.trashOriginals(ctx, notePath, items)
	}
	return report, nil
}

func (r *Reconciler) trashOriginals(ctx context.Context, notePath string, items []uploadedItem) {
	seen := make(map[string]bool)
	for _, it := range items {
		if it.source == "" || seen[it.source] || r.backup.IsBackupPath(it.source) {
			continue
		}
		seen[it.source] = true
		if err := r.vault.Trash(ctx, it.source); err != nil {
			r.logger.Warn("trash original failed", zap.String(logger.FieldPath, it.source), zap.Error(err))
			continue
		}
		r.notify(domain.NoticeInfo, code.SuccessTrashed, notePath, it.source, "")
	}
}

// commit applies edit to the live text under the note lock, writes once, then backs up
// A failed edit still backs up the images and refreshes the shadow from the live note
// commit 在笔记锁内对当前文本执行 edit 并写入一次，然后备份
// edit 失败时仍然备份图片，并用当前笔记内容刷新影子笔记
func (r *Reconciler) commit(ctx context.Context, notePath string, items []uploadedItem, edit func(current string) (string, error)) (bool, error) {
	var changed bool
	var editErr error

	err := r.locks.Execute(ctx, notePath, func() error {
		current, err := r.vault.ReadText(ctx, notePath)
		if err != nil {
			editErr = errors.Wrap(err, "read note")
			r.backupAll(ctx, notePath, items, nil)
			return editErr
		}

		next, err := edit(current)
		if err != nil {
			editErr = err
			r.backupAll(ctx, notePath, items, nil)
			return editErr
		}

		if next != current {
			if err := r.vault.WriteText(ctx, notePath, next); err != nil {
				editErr = errors.Wrap(err, "write note")
				r.backupAll(ctx, notePath, items, nil)
				return editErr
			}
			changed = true
		}
		r.backupAll(ctx, notePath, items, &next)
		return nil
	})
	if err != nil {
		if editErr == nil {
			editErr = err
		}
		c := code.ErrorNoteWrite
		if apperrors.IsKind(editErr, apperrors.KindWriteConflict) {
			c = code.ErrorWriteConflict
		}
		r.notify(domain.NoticeError, c, notePath, "", editErr.Error())
		return changed, editErr
	}
	return changed, nil
}

// backupAll must run under the note lock; failures are reported and never undo the upload
// backupAll 必须在笔记锁内执行，失败只通知，不回滚上传
func (r *Reconciler) backupAll(ctx context.Context, notePath string, items []uploadedItem, text *string) {
	uploaded := make([]domain.UploadedImage, 0, len(items))
	for _, it := range items {
		name, err := r.backup.BackupImage(ctx, it.data, notePath, it.label)
		if err != nil {
			r.notifyErr(notePath, it.label, err)
		}
		uploaded = append(uploaded, domain.UploadedImage{
			URL:        it.result.SignedURL,
			StorageKey: it.result.StorageKey,
			BackupName: name,
		})

		if r.ledger != nil {
			rec := &domain.UploadRecord{
				StorageKey:   it.result.StorageKey,
				BaseURL:      fileurl.StripQuery(it.result.SignedURL),
				NotePath:     notePath,
				OriginalName: it.label,
				BackupName:   name,
				Size:         int64(len(it.data)),
			}
			if err := r.ledger.Save(ctx, rec); err != nil {
				r.logger.Warn("ledger save failed",
					zap.String(logger.FieldFileKey, it.result.StorageKey),
					zap.Error(err))
			}
		}
	}

	if err := r.backup.BackupNote(ctx, notePath, text, uploaded); err != nil {
		r.notifyErr(notePath, r.backup.ShadowPath(notePath), err)
	}
}

// detectContentType trusts the declared type unless it is empty or generic
// detectContentType 声明类型为空或为通用二进制时嗅探内容
func detectContentType(f IncomingFile) string {
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	if ct == "" || strings.HasPrefix(ct, octetStream) {
		ct = mimetype.Detect(f.Data).String()
		if strings.HasPrefix(ct, octetStream) {
			ct = util.ImageContentType(f.Name)
		}
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// insertAt inserts s at a byte offset moved back to a rune boundary; negative or out of range means end
// insertAt 在字节偏移处插入（回退到字符边界），负数或越界表示末尾
func insertAt(text string, cursor int, s string) string {
	if cursor < 0 || cursor > len(text) {
		cursor = len(text)
	}
	for cursor > 0 && cursor < len(text) && !utf8.RuneStart(text[cursor]) {
		cursor--
	}
	return text[:cursor] + s + text[cursor:]
}

// uploadIncoming uploads the image files among in, skipping anything that is not an image
func (r *Reconciler) uploadIncoming(ctx context.Context, notePath string, in []IncomingFile, report *ScanReport) []uploadedItem {
	var items []uploadedItem
	for _, f := range in {
		ct := detectContentType(f)
		if !strings.HasPrefix(ct, "image/") {
			r.logger.Debug("skip non-image file",
				zap.String(logger.FieldNote, notePath),
				zap.String(logger.FieldPath, f.Name),
				zap.String("contentType", ct))
			continue
		}
		report.Found++

		name := fileurl.GetFileNameOrRandom(strings.TrimSpace(f.Name), util.ImageExtByContentType(ct))
		res, err := r.uploader.Upload(ctx, f.Data, name)
		if err != nil {
			report.fail(name, err)
			r.notifyErr(notePath, name, err)
			continue
		}
		items = append(items, uploadedItem{label: name, data: f.Data, result: res})
		report.Uploaded++
	}
	return items
}

func linksFor(items []uploadedItem) string {
	links := make([]string, 0, len(items))
	for _, it := range items {
		links = append(links, util.FormatInlineImage(it.label, it.result.SignedURL))
	}
	return strings.Join(links, "\n")
}

func (r *Reconciler) finishInsert(notePath string, report *ScanReport) {
	if report.Failed == 0 {
		report.Message = code.SuccessUpload.Msg()
		r.notify(domain.NoticeInfo, code.SuccessUpload, notePath, "", fmt.Sprintf("%d uploaded", report.Uploaded))
		return
	}
	report.Message = fmt.Sprintf("%d uploaded, %d failed", report.Uploaded, report.Failed)
	r.notify(domain.NoticeWarn, code.SuccessScanDone, notePath, "", report.Message)
}

// HandleDrop uploads the dropped images and inserts their links at cursor; non-images are skipped silently
// HandleDrop 上传拖入的图片并在光标处插入链接，非图片文件静默跳过
func (r *Reconciler) HandleDrop(ctx context.Context, notePath string, cursor int, files []IncomingFile) (*ScanReport, error) {
	notePath = vault.Clean(notePath)
	report := &ScanReport{NotePath: notePath}

	if err := r.uploader.CheckConfig(); err != nil {
		r.notifyErr(notePath, "", err)
		return report, err
	}

	items := r.uploadIncoming(ctx, notePath, files, report)
	if report.Found == 0 {
		report.Message = code.SuccessNothingUp.Msg()
		r.notify(domain.NoticeInfo, code.SuccessNothingUp, notePath, "", "")
		return report, nil
	}
	if len(items) == 0 {
		report.Message = fmt.Sprintf("0 uploaded, %d failed", report.Failed)
		return report, nil
	}

	block := linksFor(items)
	changed, err := r.commit(ctx, notePath, items, func(current string) (string, error) {
		return insertAt(current, cursor, block), nil
	})
	report.Changed = changed
	if err != nil {
		report.Message = err.Error()
		return report, err
	}
	r.finishInsert(notePath, report)
	return report, nil
}

// HandlePaste uploads a pasted image; with localPath set, the embeds pointing at that
// vault file are replaced by the remote link, otherwise the link goes to the cursor
// HandlePaste 上传粘贴的图片；指定 localPath 时替换指向该文件的本地引用，否则在光标处插入
func (r *Reconciler) HandlePaste(ctx context.Context, notePath string, cursor int, file *IncomingFile, localPath string) (*ScanReport, error) {
	notePath = vault.Clean(notePath)
	report := &ScanReport{NotePath: notePath}

	if err := r.uploader.CheckConfig(); err != nil {
		r.notifyErr(notePath, "", err)
		return report, err
	}

	var items []uploadedItem
	if localPath != "" {
		src, _, err := r.resolver.ResolvePath(ctx, localPath, notePath)
		if err != nil {
			report.Found = 1
			report.fail(localPath, err)
			r.notifyErr(notePath, localPath, err)
			return report, nil
		}
		data, err := r.vault.ReadBinary(ctx, src.Path)
		if err != nil {
			report.Found = 1
			report.fail(localPath, err)
			r.notify(domain.NoticeWarn, code.ErrorFileRead, notePath, src.Path, err.Error())
			return report, nil
		}
		items = r.uploadIncoming(ctx, notePath, []IncomingFile{{Name: src.Name, ContentType: util.ImageContentType(src.Name), Data: data}}, report)
		if len(items) == 1 {
			items[0].source = src.Path
		}
	} else if file != nil {
		items = r.uploadIncoming(ctx, notePath, []IncomingFile{*file}, report)
	}

	if report.Found == 0 {
		report.Message = code.SuccessNothingUp.Msg()
		return report, nil
	}
	if len(items) == 0 {
		report.Message = fmt.Sprintf("0 uploaded, %d failed", report.Failed)
		return report, nil
	}

	it := items[0]
	link := util.FormatInlineImage(it.label, it.result.SignedURL)
	changed, err := r.commit(ctx, notePath, items, func(current string) (string, error) {
		if it.source != "" {
			if replaced, ok := r.replaceLocalEmbeds(ctx, notePath, current, it.source, link); ok {
				return replaced, nil
			}
		}
		return insertAt(current, cursor, link), nil
	})
	report.Changed = changed
	if err != nil {
		report.Message = err.Error()
		return report, err
	}
	r.finishInsert(notePath, report)
	return report, nil
}

// replaceLocalEmbeds swaps every local reference resolving to source for link
func (r *Reconciler) replaceLocalEmbeds(ctx context.Context, notePath, text, source, link string) (string, bool) {
	replaced := false
	for _, g := range groupLocalImages(text) {
		f, _, err := r.resolver.ResolvePath(ctx, g.ref.PathOrURL, notePath)
		if err != nil || f.Path != source {
			continue
		}
		for _, raw := range g.raws {
			text = strings.ReplaceAll(text, raw, link)
		}
		replaced = true
	}
	return text, replaced
}

// RefreshBackup rewrites the shadow note from the live text under the note lock
// RefreshBackup 在笔记锁内根据当前内容重写影子笔记
func (r *Reconciler) RefreshBackup(ctx context.Context, notePath string) error {
	notePath = vault.Clean(notePath)
	return r.locks.Execute(ctx, notePath, func() error {
		return r.backup.BackupNote(ctx, notePath, nil, nil)
	})
}

// NotifyModified schedules a debounced shadow refresh for notes that already have a backup folder
// A newer event for the same note restarts the quiet period
// NotifyModified 为已有备份目录的笔记安排防抖刷新，同一笔记的新事件会重新计时
func (r *Reconciler) NotifyModified(notePath string) {
	notePath = vault.Clean(notePath)
	if r.ctx.Err() != nil || !strings.EqualFold(path.Ext(notePath), ".md") || r.backup.IsBackupPath(notePath) {
		return
	}
	if !r.backup.HasBackupFolder(r.ctx, notePath) {
		return
	}

	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.ctx.Err() != nil {
		return
	}
	r.scheduleLocked(notePath)
}

// pendingRefresh 一个笔记的待执行刷新，map 中的条目只能由它自己的回调删除
type pendingRefresh struct {
	timer *time.Timer
}

// scheduleLocked 调用方必须持有 timerMu
func (r *Reconciler) scheduleLocked(notePath string) {
	if old, ok := r.timers[notePath]; ok {
		old.timer.Stop()
	}
	p := &pendingRefresh{}
	p.timer = time.AfterFunc(r.debounce, func() { r.refreshDue(notePath, p) })
	r.timers[notePath] = p
	r.metrics.SetPendingRefreshes(len(r.timers))
}

// refreshDue runs when a debounce timer expires; a callback whose entry was replaced
// while it waited for the lock does nothing, the replacement owns the refresh
// refreshDue 定时器到期回调；等待锁期间条目已被替换时直接返回
func (r *Reconciler) refreshDue(notePath string, self *pendingRefresh) {
	r.timerMu.Lock()
	if r.timers[notePath] != self {
		r.timerMu.Unlock()
		return
	}
	delete(r.timers, notePath)
	r.metrics.SetPendingRefreshes(len(r.timers))
	r.timerMu.Unlock()

	err := r.pool.SubmitAsync(r.ctx, func(ctx context.Context) error {
		if err := r.RefreshBackup(ctx, notePath); err != nil {
			r.notifyErr(notePath, r.backup.ShadowPath(notePath), err)
			return err
		}
		r.logger.Debug("shadow refreshed", zap.String(logger.FieldNote, notePath))
		return nil
	})
	if err != nil {
		r.logger.Warn("schedule shadow refresh failed", zap.String(logger.FieldNote, notePath), zap.Error(err))
	}
}

// PendingRefreshes 等待中的防抖刷新数
func (r *Reconciler) PendingRefreshes() int {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	return len(r.timers)
}

// Shutdown drops every pending debounce timer; in-flight uploads are not awaited
// Shutdown 清除所有防抖定时器，不等待进行中的上传
func (r *Reconciler) Shutdown() {
	r.cancel()

	r.timerMu.Lock()
	for note, p := range r.timers {
		if p.timer.Stop() {
			r.logger.Debug("pending refresh dropped", zap.String(logger.FieldNote, note))
		}
	}
	r.timers = make(map[string]*pendingRefresh)
	r.timerMu.Unlock()
	r.metrics.SetPendingRefreshes(0)
}
