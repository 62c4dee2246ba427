package service

import (
	"time"

	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"
	"github.com/haierkeys/fast-note-image-uploader/pkg/logger"
	"go.uber.org/zap"
)

// LogNotifier writes notices to the process log
// LogNotifier 将通知写入日志
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &LogNotifier{logger: lg}
}

func (n *LogNotifier) Notify(notice domain.Notice) {
	fields := []zap.Field{
		zap.Int("code", notice.Code),
		zap.String(logger.FieldNote, notice.NotePath),
	}
	if notice.File != "" {
		fields = append(fields, zap.String(logger.FieldPath, notice.File))
	}
	switch notice.Level {
	case domain.NoticeError:
		n.logger.Error(notice.Message, fields...)
	case domain.NoticeWarn:
		n.logger.Warn(notice.Message, fields...)
	default:
		n.logger.Info(notice.Message, fields...)
	}
}

// MultiNotifier fans a notice out to every registered notifier
// MultiNotifier 将通知分发给所有已注册的通知出口
type MultiNotifier struct {
	notifiers []domain.Notifier
}

func NewMultiNotifier(ns ...domain.Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: ns}
}

func (m *MultiNotifier) Notify(notice domain.Notice) {
	for _, n := range m.notifiers {
		n.Notify(notice)
	}
}

// newNotice builds a notice whose message is the code text plus optional detail
// newNotice 由响应码文本与可选详情构造通知
func newNotice(level domain.NoticeLevel, c *code.Code, notePath, file, detail string) domain.Notice {
	msg := c.Msg()
	if detail != "" {
		msg += ": " + detail
	}
	return domain.Notice{
		Level:    level,
		Code:     c.Code(),
		Message:  msg,
		NotePath: notePath,
		File:     file,
		Time:     time.Now(),
	}
}
