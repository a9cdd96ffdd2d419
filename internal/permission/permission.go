// Package permission 写权限判定，纯函数，不做任何 I/O。
package permission

import "github.com/d60-Lab/novel-engine/internal/model"

// CanMutate 资源创建者本人或管理员可修改/删除
func CanMutate(ownerID, callerID uint, role model.Role) bool {
	return callerID == ownerID || role == model.RoleAdmin
}

// CanCreate 编辑与管理员可创建小说和章节
func CanCreate(role model.Role) bool {
	return role == model.RoleEditor || role == model.RoleAdmin
}

// CanAdminister 后台统计、计数修复等
func CanAdminister(role model.Role) bool {
	return role == model.RoleAdmin
}
