package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：调用方可修正的错误（校验、认证、权限、资源缺失、关系状态冲突）
// - 5xxx：系统错误
const (
	OK                   = 0
	ValidationFailed     = 4000
	AuthenticationFailed = 4010
	PermissionDenied     = 4030
	ResourceMissing      = 4004
	RelationConflict     = 4090
	RateLimited          = 4290
	SystemError          = 5000
)
