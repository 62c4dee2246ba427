// Package websocket_router 提供 WebSocket 路由处理器
package websocket_router

import (
	"github.com/haierkeys/fast-note-image-uploader/internal/app"
	"github.com/haierkeys/fast-note-image-uploader/internal/dto"
	"github.com/haierkeys/fast-note-image-uploader/internal/service"
	pkgapp "github.com/haierkeys/fast-note-image-uploader/pkg/app"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"
	apperrors "github.com/haierkeys/fast-note-image-uploader/pkg/errors"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// 客户端可发送的消息类型
const (
	MessageImageScan     = "ImageScan"
	MessageBackupRefresh = "BackupRefresh"
	MessageNoteModified  = "NoteModified"
)

// ImageWSHandler WebSocket 图片处理器
type ImageWSHandler struct {
	App *app.App
}

// NewImageWSHandler 创建 WebSocket 图片处理器
func NewImageWSHandler(a *app.App) *ImageWSHandler {
	return &ImageWSHandler{App: a}
}

// Register 在 WebSocket 服务上注册全部消息处理函数
func (h *ImageWSHandler) Register(wss *pkgapp.WebsocketServer) {
	wss.Use(MessageImageScan, h.ImageScan)
	wss.Use(MessageBackupRefresh, h.BackupRefresh)
	wss.Use(MessageNoteModified, h.NoteModified)
}

func (h *ImageWSHandler) logError(c *pkgapp.WebsocketClient, method string, err error) {
	h.App.Logger().Error(method,
		zap.Error(err),
		zap.String("traceId", c.TraceID),
	)
}

// ImageScan "ImageScan|{"note":"a.md","trashLocal":false}"
func (h *ImageWSHandler) ImageScan(c *pkgapp.WebsocketClient, data string) {
	params := &dto.NoteScanRequest{}
	if err := sonic.UnmarshalString(data, params); err != nil || params.Note == "" {
		c.Reply(MessageImageScan, code.ErrorInvalidParams)
		return
	}

	report, err := h.App.Reconciler.HandleScan(c.Context(), params.Note, service.ScanOptions{TrashLocal: params.TrashLocal})
	if err != nil {
		h.logError(c, "ImageWSHandler.ImageScan", err)
		c.Reply(MessageImageScan, apperrors.ToCode(err).WithData(report))
		return
	}
	c.Reply(MessageImageScan, code.SuccessScanDone.Clone().WithData(report))
}

// BackupRefresh "BackupRefresh|{"note":"a.md"}"
func (h *ImageWSHandler) BackupRefresh(c *pkgapp.WebsocketClient, data string) {
	params := &dto.NoteBackupRequest{}
	if err := sonic.UnmarshalString(data, params); err != nil || params.Note == "" {
		c.Reply(MessageBackupRefresh, code.ErrorInvalidParams)
		return
	}
	if err := h.App.Reconciler.RefreshBackup(c.Context(), params.Note); err != nil {
		h.logError(c, "ImageWSHandler.BackupRefresh", err)
		c.Reply(MessageBackupRefresh, apperrors.ToCode(err))
		return
	}
	c.Reply(MessageBackupRefresh, code.SuccessBackup)
}

// NoteModified "NoteModified|a.md"，编辑器保存笔记后通知，备份在静默期后刷新
func (h *ImageWSHandler) NoteModified(c *pkgapp.WebsocketClient, data string) {
	if data == "" {
		return
	}
	h.App.Reconciler.NotifyModified(data)
}
