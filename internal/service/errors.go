package service

import (
	"errors"
	"fmt"

	"vida-vod/internal/model"
)

var (
	ErrVideoNotFound     = errors.New("视频不存在")
	ErrVideoNoPermission = errors.New("没有权限操作该视频")
	ErrVideoNotReady     = errors.New("视频尚未就绪")
	ErrVideoNotFailed    = errors.New("只能清理处理失败的视频")
	ErrVideoBusy         = errors.New("视频正在转码，暂时不能删除")
	ErrInvalidTitle      = errors.New("标题不能为空")
	ErrMissingFile       = errors.New("请上传视频文件")
	ErrOwnerNotFound     = errors.New("上传者不存在")
	ErrStorage           = errors.New("对象存储不可用")
)

// NotReadyError 播放信息请求命中未就绪的视频，携带当前状态供客户端继续轮询
type NotReadyError struct {
	Status model.VideoStatus
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrVideoNotReady, e.Status)
}

func (e *NotReadyError) Is(target error) bool { return target == ErrVideoNotReady }
