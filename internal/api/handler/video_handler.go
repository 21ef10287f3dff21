package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"vida-vod/internal/api/dto"
	"vida-vod/internal/api/middleware"
	"vida-vod/internal/api/response"
	"vida-vod/internal/service"
	"vida-vod/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart 表单除文件外的字段和边界开销
const multipartOverhead = 1 << 20

var allowedFormats = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true,
	".webm": true, ".flv": true, ".m4v": true,
}

type VideoHandler struct {
	videoService *service.VideoService
	maxBytes     int64
}

func NewVideoHandler(videoService *service.VideoService, maxBytes int64) *VideoHandler {
	return &VideoHandler{videoService: videoService, maxBytes: maxBytes}
}

func currentCaller(c *gin.Context) service.Caller {
	userID, _ := middleware.GetCurrentUserID(c)
	return service.Caller{UserID: userID, Role: middleware.GetCurrentRole(c)}
}

// Upload 上传视频
// @Summary 上传视频
// @Description 上传源文件并创建 PENDING 记录，转码在后台进行
// @Tags 视频
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "视频文件"
// @Param title formData string true "标题"
// @Param description formData string false "描述"
// @Success 201 {object} response.Response{data=dto.VideoInfo} "上传成功"
// @Failure 400 {object} response.ErrorResponse "请求参数无效"
// @Failure 413 {object} response.ErrorResponse "文件过大"
// @Router /videos/upload [post]
func (h *VideoHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			response.RequestEntityTooLarge(c, "文件过大")
			return
		}
		response.BadRequest(c, service.ErrMissingFile.Error())
		return
	}

	var req dto.VideoUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedFormats[ext] {
		response.BadRequest(c, "不支持的文件格式，支持: mp4, mov, mkv, avi, webm, flv, m4v")
		return
	}
	if file.Size == 0 {
		response.BadRequest(c, service.ErrMissingFile.Error())
		return
	}
	if file.Size > h.maxBytes {
		response.RequestEntityTooLarge(c, "文件过大")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.InternalError(c, "打开上传文件失败")
		return
	}
	defer f.Close()

	info, err := h.videoService.Upload(c.Request.Context(), currentCaller(c), &service.UploadInput{
		Title:       req.Title,
		Description: req.Description,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        f,
	})
	if err != nil {
		handleVideoError(c, err)
		return
	}

	response.Created(c, "视频上传成功，转码任务已提交", info)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// ListMine 我的视频
// @Summary 我的视频
// @Description 当前用户已就绪的视频
// @Tags 视频
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]dto.VideoInfo}
// @Router /videos/user [get]
func (h *VideoHandler) ListMine(c *gin.Context) {
	items, err := h.videoService.ListMine(c.Request.Context(), currentCaller(c))
	if err != nil {
		handleVideoError(c, err)
		return
	}
	response.OK(c, "获取我的视频列表成功", items)
}

// ListReady 全部已就绪视频
// @Summary 视频列表
// @Description 全部已就绪的视频及上传者信息
// @Tags 视频
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]dto.VideoInfo}
// @Router /videos [get]
func (h *VideoHandler) ListReady(c *gin.Context) {
	items, err := h.videoService.ListReady(c.Request.Context())
	if err != nil {
		handleVideoError(c, err)
		return
	}
	response.OK(c, "获取视频列表成功", items)
}

// ListPending 未就绪视频（运维）
// @Summary 未就绪视频
// @Description 运维视图：PENDING / PROCESSING / ERROR 视频、上传者与切片数
// @Tags 视频
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]dto.VideoInfo}
// @Failure 403 {object} response.ErrorResponse "需要管理员权限"
// @Router /videos/pending [get]
func (h *VideoHandler) ListPending(c *gin.Context) {
	items, err := h.videoService.ListPending(c.Request.Context())
	if err != nil {
		handleVideoError(c, err)
		return
	}
	response.OK(c, "获取待处理视频列表成功", items)
}

// PlayInfo 播放信息
// @Summary 播放信息
// @Description 视频就绪后返回播放列表地址；未就绪返回 400 并携带当前状态
// @Tags 视频
// @Produce json
// @Security BearerAuth
// @Param id path string true "视频ID"
// @Success 200 {object} response.Response{data=dto.PlayInfo}
// @Failure 400 {object} response.ErrorResponse "视频尚未就绪"
// @Failure 404 {object} response.ErrorResponse "视频不存在"
// @Router /videos/{id}/play [get]
func (h *VideoHandler) PlayInfo(c *gin.Context) {
	info, err := h.videoService.PlayInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleVideoError(c, err)
		return
	}
	response.OK(c, "获取播放信息成功", info)
}

// UpdateVideo 更新视频
// @Summary 更新视频
// @Description 更新标题和描述（仅上传者本人）
// @Tags 视频
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "视频ID"
// @Param body body dto.VideoUpdateRequest true "更新内容"
// @Success 200 {object} response.Response{data=dto.VideoInfo}
// @Failure 400 {object} response.ErrorResponse "标题不能为空"
// @Failure 403 {object} response.ErrorResponse "没有权限"
// @Router /videos/{id} [put]
func (h *VideoHandler) UpdateVideo(c *gin.Context) {
	var req dto.VideoUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	info, err := h.videoService.Update(c.Request.Context(), currentCaller(c), c.Param("id"), &req)
	if err != nil {
		handleVideoError(c, err)
		return
	}

	response.OK(c, "更新视频成功", info)
}

// DeleteVideo 删除视频
// @Summary 删除视频
// @Description 删除视频及其切片和对象（仅上传者本人，转码中不可删除）
// @Tags 视频
// @Produce json
// @Security BearerAuth
// @Param id path string true "视频ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "没有权限"
// @Failure 404 {object} response.ErrorResponse "视频不存在"
// @Failure 409 {object} response.ErrorResponse "视频正在转码"
// @Router /videos/{id} [delete]
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	if err := h.videoService.Delete(c.Request.Context(), currentCaller(c), c.Param("id")); err != nil {
		handleVideoError(c, err)
		return
	}

	response.OK(c, "删除视频成功", nil)
}

// DeleteFailed 清理失败视频
// @Summary 清理失败视频
// @Description 删除状态为 ERROR 的视频（运维或上传者本人）
// @Tags 视频
// @Produce json
// @Security BearerAuth
// @Param id path string true "视频ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "只能清理处理失败的视频"
// @Failure 403 {object} response.ErrorResponse "没有权限"
// @Router /videos/{id}/failed [delete]
func (h *VideoHandler) DeleteFailed(c *gin.Context) {
	if err := h.videoService.DeleteFailed(c.Request.Context(), currentCaller(c), c.Param("id")); err != nil {
		handleVideoError(c, err)
		return
	}

	response.OK(c, "清理失败视频成功", nil)
}

func handleVideoError(c *gin.Context, err error) {
	var notReady *service.NotReadyError
	switch {
	case errors.As(err, &notReady):
		response.NotReady(c, service.ErrVideoNotReady.Error(), string(notReady.Status))
	case errors.Is(err, service.ErrVideoNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrVideoNoPermission):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrVideoBusy):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidTitle),
		errors.Is(err, service.ErrMissingFile),
		errors.Is(err, service.ErrOwnerNotFound),
		errors.Is(err, service.ErrVideoNotFailed):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrStorage):
		logger.Error("Blob store operation failed", zap.Error(err))
		response.InternalError(c, "存储服务不可用，请稍后重试")
	default:
		logger.Error("Video operation failed", zap.Error(err))
		response.InternalError(c, "操作失败，请稍后重试")
	}
}
