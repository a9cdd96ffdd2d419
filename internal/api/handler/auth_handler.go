package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/response"
)

// Signup 注册
// @Summary 注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "注册信息"
// @Success 201 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/auth/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req service.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u)
}

// Login 登录，返回 access token
// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "登录信息"
// @Success 200 {object} response.Response{data=service.TokenPair}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	pair, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pair)
}

// GetProfile 当前用户资料
// @Summary 我的资料
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/v1/user/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	u, err := h.userService.GetProfile(c.Request.Context(), caller.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

// UpdateProfile 修改昵称
// @Summary 修改资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.UpdateProfileInput true "资料"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Router /api/v1/user/profile [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req service.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.userService.UpdateProfile(c.Request.Context(), caller.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}
