// Package errors 定义图片上传与备份流程的错误分类
package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/pkg/code"
)

// Kind 错误类别
type Kind int

const (
	// KindConfiguration 凭据、bucket 或 region 缺失，发生在任何 I/O 之前
	KindConfiguration Kind = iota + 1
	// KindResolution 引用无法映射到 vault 文件（软错误）
	KindResolution
	// KindUpload 网络、鉴权或存储错误
	KindUpload
	// KindBackup 备份目录或文件写入失败（软错误）
	KindBackup
	// KindWriteConflict 目标已存在或笔记在写回前被并发修改
	KindWriteConflict
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindResolution:
		return "resolution"
	case KindUpload:
		return "upload"
	case KindBackup:
		return "backup"
	case KindWriteConflict:
		return "write_conflict"
	}
	return "unknown"
}

// Code 返回该类别对应的响应码
func (k Kind) Code() *code.Code {
	switch k {
	case KindConfiguration:
		return code.ErrorConfiguration
	case KindResolution:
		return code.ErrorResolution
	case KindUpload:
		return code.ErrorUpload
	case KindBackup:
		return code.ErrorBackup
	case KindWriteConflict:
		return code.ErrorWriteConflict
	}
	return code.ErrorServerInternal
}

// AppError 统一应用错误结构体
type AppError struct {
	// Kind 错误类别
	Kind Kind
	// Op 出错的操作，例如 "upload" "backupImage"
	Op string
	// Subject 相关文件名、路径或 key
	Subject string
	// Cause 原始错误
	Cause error
	// Timestamp 错误发生时间
	Timestamp time.Time
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Subject != "" {
		msg += fmt.Sprintf(" [%s]", e.Subject)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 支持 errors.Is / errors.As 错误链
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New 创建 AppError
func New(kind Kind, op, subject string, cause error) *AppError {
	return &AppError{
		Kind:      kind,
		Op:        op,
		Subject:   subject,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

func Configuration(op string, cause error) *AppError {
	return New(KindConfiguration, op, "", cause)
}

func Resolution(op, subject string, cause error) *AppError {
	return New(KindResolution, op, subject, cause)
}

func Upload(op, subject string, cause error) *AppError {
	return New(KindUpload, op, subject, cause)
}

func Backup(op, subject string, cause error) *AppError {
	return New(KindBackup, op, subject, cause)
}

func WriteConflict(op, subject string, cause error) *AppError {
	return New(KindWriteConflict, op, subject, cause)
}

// IsKind 判断错误链中是否存在指定类别的 AppError
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// GetAppError 从错误链中获取 AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// ToCode 将任意错误转换为响应码，附带错误详情
func ToCode(err error) *code.Code {
	if err == nil {
		return code.Success.Clone()
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Kind.Code().Clone().WithDetails(appErr.Error())
	}
	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		return codeErr
	}
	return code.ErrorServerInternal.Clone().WithDetails(err.Error())
}
