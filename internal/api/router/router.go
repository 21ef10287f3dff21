package router

import (
	"vida-vod/internal/api/handler"
	"vida-vod/internal/api/middleware"
	"vida-vod/internal/config"

	"github.com/gin-gonic/gin"
)

// Setup 注册所有业务路由
func Setup(
	r *gin.Engine,
	jwtCfg *config.JWTConfig,
	videoHandler *handler.VideoHandler,
	searchHandler *handler.SearchHandler,
) {
	v1 := r.Group("/api/v1")

	// --- 视频模块（全部需要登录）---
	videos := v1.Group("/videos", middleware.AuthRequired(jwtCfg))
	{
		videos.POST("/upload", videoHandler.Upload)
		videos.GET("/user", videoHandler.ListMine)
		videos.GET("", videoHandler.ListReady)
		videos.GET("/search", searchHandler.SearchVideos)
		videos.GET("/:id/play", videoHandler.PlayInfo)
		videos.PUT("/:id", videoHandler.UpdateVideo)
		videos.DELETE("/:id", videoHandler.DeleteVideo)
		// 运维或上传者本人，权限在服务层判断
		videos.DELETE("/:id/failed", videoHandler.DeleteFailed)

		// 运维接口
		ops := videos.Group("", middleware.OperatorRequired())
		{
			ops.GET("/pending", videoHandler.ListPending)
		}
	}
}
