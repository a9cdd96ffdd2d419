package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/novel-engine/pkg/response"
)

// DashboardStats 管理后台概览
// @Summary 后台统计
// @Tags 管理
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.DashboardStats}
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/dashboard/stats [get]
func (h *Handler) DashboardStats(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	stats, err := h.adminService.DashboardStats(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// ReconcileCounters 按实际记录修正计数列
// @Summary 修正计数
// @Tags 管理
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/reconcile [post]
func (h *Handler) ReconcileCounters(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	drifts, err := h.adminService.ReconcileCounters(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"repaired": len(drifts), "drifts": drifts})
}
