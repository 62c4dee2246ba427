package api_router

import (
	"github.com/haierkeys/fast-note-image-uploader/internal/app"
	"github.com/haierkeys/fast-note-image-uploader/internal/dto"
	pkgapp "github.com/haierkeys/fast-note-image-uploader/pkg/app"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"
	apperrors "github.com/haierkeys/fast-note-image-uploader/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StorageHandler 对象存储管理接口
type StorageHandler struct {
	*Handler
}

// NewStorageHandler 创建 StorageHandler 实例
func NewStorageHandler(a *app.App) *StorageHandler {
	return &StorageHandler{Handler: NewHandler(a)}
}

// List 分页列举对象
// @Summary 列举存储对象
// @Tags 存储
// @Security AuthToken
// @Produce json
// @Param params query dto.ObjectListRequest true "查询参数"
// @Success 200 {object} pkgapp.Res{data=domain.ListResult}
// @Router /api/objects [get]
func (h *StorageHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ObjectListRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.App.Logger().Error("StorageHandler.List.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.Errors()...))
		return
	}

	client, err := h.App.Uploader.Client()
	if err != nil {
		response.ToResponse(apperrors.ToCode(err))
		return
	}

	ctx := c.Request.Context()
	res, err := client.ListObjects(ctx, params.Prefix, params.Marker, params.MaxKeys)
	if err != nil {
		h.logError(ctx, "StorageHandler.List", err)
		response.ToResponse(code.ErrorStorageList.Clone().WithDetails(err.Error()))
		return
	}
	response.ToResponse(code.SuccessListed.Clone().WithData(res))
}

// Delete 批量删除对象
// @Summary 删除存储对象
// @Tags 存储
// @Security AuthToken
// @Accept json
// @Produce json
// @Param params body dto.ObjectDeleteRequest true "删除参数"
// @Success 200 {object} pkgapp.Res{data=domain.DeleteResult}
// @Router /api/objects [delete]
func (h *StorageHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ObjectDeleteRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.App.Logger().Error("StorageHandler.Delete.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.Errors()...))
		return
	}

	client, err := h.App.Uploader.Client()
	if err != nil {
		response.ToResponse(apperrors.ToCode(err))
		return
	}

	ctx := c.Request.Context()
	res, err := client.DeleteObjects(ctx, params.Keys)
	if err != nil {
		h.logError(ctx, "StorageHandler.Delete", err)
		response.ToResponse(code.ErrorStorageDelete.Clone().WithDetails(err.Error()))
		return
	}
	if len(res.Errors) > 0 {
		response.ToResponse(code.ErrorStorageDelete.Clone().WithData(res))
		return
	}
	response.ToResponse(code.SuccessDeleted.Clone().WithData(res))
}
