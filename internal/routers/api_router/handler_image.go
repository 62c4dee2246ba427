package api_router

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/internal/app"
	"github.com/haierkeys/fast-note-image-uploader/internal/dto"
	"github.com/haierkeys/fast-note-image-uploader/internal/service"
	pkgapp "github.com/haierkeys/fast-note-image-uploader/pkg/app"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"
	apperrors "github.com/haierkeys/fast-note-image-uploader/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImageHandler 图片上传与备份接口
type ImageHandler struct {
	*Handler
}

// NewImageHandler 创建 ImageHandler 实例
func NewImageHandler(a *app.App) *ImageHandler {
	return &ImageHandler{Handler: NewHandler(a)}
}

func (h *ImageHandler) invalid(c *gin.Context, method string, errs pkgapp.ValidErrors) {
	h.App.Logger().Error(method+".BindAndValid err", zap.Error(errs))
	pkgapp.NewResponse(c).ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.Errors()...))
}

// Scan 上传笔记中的全部本地图片并改写链接
// @Summary 扫描笔记并上传本地图片
// @Tags 图片
// @Security AuthToken
// @Accept json
// @Produce json
// @Param params body dto.NoteScanRequest true "扫描参数"
// @Success 200 {object} pkgapp.Res{data=service.ScanReport}
// @Router /api/note/scan [post]
func (h *ImageHandler) Scan(c *gin.Context) {
	params := &dto.NoteScanRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.invalid(c, "ImageHandler.Scan", errs)
		return
	}

	ctx := c.Request.Context()
	report, err := h.App.Reconciler.HandleScan(ctx, params.Note, service.ScanOptions{TrashLocal: params.TrashLocal})
	if err != nil {
		h.logError(ctx, "ImageHandler.Scan", err)
		pkgapp.NewResponse(c).ToResponse(apperrors.ToCode(err).WithData(report))
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.SuccessScanDone.Clone().WithData(report))
}

// Backup 立即刷新笔记的影子副本
// @Summary 刷新备份
// @Tags 图片
// @Security AuthToken
// @Accept json
// @Produce json
// @Param params body dto.NoteBackupRequest true "备份参数"
// @Success 200 {object} pkgapp.Res
// @Router /api/note/backup [post]
func (h *ImageHandler) Backup(c *gin.Context) {
	params := &dto.NoteBackupRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.invalid(c, "ImageHandler.Backup", errs)
		return
	}

	ctx := c.Request.Context()
	if err := h.App.Reconciler.RefreshBackup(ctx, params.Note); err != nil {
		h.logError(ctx, "ImageHandler.Backup", err)
		pkgapp.NewResponse(c).ToResponse(apperrors.ToCode(err))
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.SuccessBackup)
}

// Drop 上传拖放到笔记中的图片并在光标处插入链接
// @Summary 拖放图片
// @Tags 图片
// @Security AuthToken
// @Accept multipart/form-data
// @Produce json
// @Param note formData string true "笔记路径"
// @Param cursor formData int false "插入位置，-1 表示末尾"
// @Param files formData file true "图片文件，可多个"
// @Success 200 {object} pkgapp.Res{data=service.ScanReport}
// @Router /api/note/drop [post]
func (h *ImageHandler) Drop(c *gin.Context) {
	params := &dto.ImageInsertRequest{}
	files, ok := h.bindMultipart(c, "ImageHandler.Drop", params)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	report, err := h.App.Reconciler.HandleDrop(ctx, params.Note, params.Cursor, files)
	if err != nil {
		h.logError(ctx, "ImageHandler.Drop", err)
		pkgapp.NewResponse(c).ToResponse(apperrors.ToCode(err).WithData(report))
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.SuccessUpload.Clone().WithData(report))
}

// Paste 上传粘贴的图片
// 提供 localPath 时上传编辑器已在 vault 中创建的文件并替换其嵌入，否则在光标处插入链接
// @Summary 粘贴图片
// @Tags 图片
// @Security AuthToken
// @Accept multipart/form-data
// @Produce json
// @Param note formData string true "笔记路径"
// @Param cursor formData int false "插入位置，-1 表示末尾"
// @Param localPath formData string false "编辑器创建的图片路径"
// @Param file formData file false "图片文件"
// @Success 200 {object} pkgapp.Res{data=service.ScanReport}
// @Router /api/note/paste [post]
func (h *ImageHandler) Paste(c *gin.Context) {
	params := &dto.ImageInsertRequest{}
	files, ok := h.bindMultipart(c, "ImageHandler.Paste", params)
	if !ok {
		return
	}

	var file *service.IncomingFile
	if len(files) > 0 {
		file = &files[0]
	}
	if file == nil && params.LocalPath == "" {
		pkgapp.NewResponse(c).ToResponse(code.ErrorInvalidParams.Clone().WithDetails("file or localPath is required"))
		return
	}

	ctx := c.Request.Context()
	report, err := h.App.Reconciler.HandlePaste(ctx, params.Note, params.Cursor, file, params.LocalPath)
	if err != nil {
		h.logError(ctx, "ImageHandler.Paste", err)
		pkgapp.NewResponse(c).ToResponse(apperrors.ToCode(err).WithData(report))
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.SuccessUpload.Clone().WithData(report))
}

// Records 列出笔记的上传记录
// @Summary 上传记录
// @Tags 图片
// @Security AuthToken
// @Produce json
// @Param params query dto.UploadRecordRequest true "查询参数"
// @Success 200 {object} pkgapp.Res{data=[]dto.UploadRecordDTO}
// @Router /api/note/records [get]
func (h *ImageHandler) Records(c *gin.Context) {
	params := &dto.UploadRecordRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.invalid(c, "ImageHandler.Records", errs)
		return
	}
	if h.App.Ledger == nil {
		pkgapp.NewResponse(c).ToResponse(code.Success.Clone().WithData([]dto.UploadRecordDTO{}))
		return
	}

	ctx := c.Request.Context()
	records, err := h.App.Ledger.ListByNote(ctx, params.Note)
	if err != nil {
		h.logError(ctx, "ImageHandler.Records", err)
		pkgapp.NewResponse(c).ToResponse(code.ErrorServerInternal.Clone().WithDetails(err.Error()))
		return
	}
	out := make([]dto.UploadRecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, dto.UploadRecordDTO{
			StorageKey:   r.StorageKey,
			URL:          r.BaseURL,
			NotePath:     r.NotePath,
			OriginalName: r.OriginalName,
			BackupName:   r.BackupName,
			Size:         r.Size,
			CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		})
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.Clone().WithData(out))
}

// bindMultipart 校验表单字段并读取所有上传的文件
func (h *ImageHandler) bindMultipart(c *gin.Context, method string, params *dto.ImageInsertRequest) ([]service.IncomingFile, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.App.Config().GetMaxUploadSize())

	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.invalid(c, method, errs)
		return nil, false
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.logError(c.Request.Context(), method+".MultipartForm", err)
		pkgapp.NewResponse(c).ToResponse(code.ErrorInvalidParams.Clone().WithDetails(err.Error()))
		return nil, false
	}

	var headers []*multipart.FileHeader
	for _, field := range []string{"files", "file"} {
		headers = append(headers, form.File[field]...)
	}

	files := make([]service.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			h.logError(c.Request.Context(), method+".readFormFile", err)
			pkgapp.NewResponse(c).ToResponse(code.ErrorFileRead.Clone().WithDetails(fh.Filename))
			return nil, false
		}
		files = append(files, service.IncomingFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, true
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
