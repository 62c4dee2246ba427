package errors

import (
	"fmt"
	"testing"

	"github.com/haierkeys/fast-note-image-uploader/pkg/code"
	"github.com/stretchr/testify/assert"
)

func TestAppError_Message(t *testing.T) {
	err := Upload("putObject", "cat.png", fmt.Errorf("403 forbidden"))
	assert.Equal(t, "putObject: upload [cat.png]: 403 forbidden", err.Error())

	err = Configuration("storage", nil)
	assert.Equal(t, "storage: configuration", err.Error())
}

func TestIsKind_ThroughWrapping(t *testing.T) {
	base := Backup("createBinary", "备份/n/a.png", fmt.Errorf("disk full"))
	wrapped := fmt.Errorf("backup note: %w", base)

	assert.True(t, IsKind(wrapped, KindBackup))
	assert.False(t, IsKind(wrapped, KindUpload))
	assert.Same(t, base, GetAppError(wrapped))
	assert.Nil(t, GetAppError(fmt.Errorf("plain")))
}

func TestToCode(t *testing.T) {
	assert.Equal(t, code.Success.Code(), ToCode(nil).Code())

	c := ToCode(WriteConflict("commit", "n.md", nil))
	assert.Equal(t, code.ErrorWriteConflict.Code(), c.Code())
	assert.True(t, c.HaveDetails())
	// 全局响应码不被修改
	assert.False(t, code.ErrorWriteConflict.HaveDetails())

	assert.Equal(t, code.ErrorNotFound.Code(), ToCode(fmt.Errorf("wrap: %w", code.ErrorNotFound)).Code())
	assert.Equal(t, code.ErrorServerInternal.Code(), ToCode(fmt.Errorf("boom")).Code())
}

func TestKindCode(t *testing.T) {
	assert.Equal(t, code.ErrorConfiguration, KindConfiguration.Code())
	assert.Equal(t, code.ErrorResolution, KindResolution.Code())
	assert.Equal(t, code.ErrorServerInternal, Kind(99).Code())
	assert.Equal(t, "unknown", Kind(99).String())
}
