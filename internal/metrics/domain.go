package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relationChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipebox",
			Subsystem: "relation",
			Name:      "changes_total",
			Help:      "点赞与收藏的变更次数。",
		},
		[]string{"kind", "outcome"},
	)

	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipebox",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "登录尝试次数，按结果区分。",
		},
		[]string{"result"},
	)

	avatarUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipebox",
			Subsystem: "avatar",
			Name:      "uploads_total",
			Help:      "头像上传次数，按结果区分。",
		},
		[]string{"result"},
	)
)

// ObserveRelationChange 记录一次关系变更，outcome 为 added 或 removed。
func ObserveRelationChange(kind, outcome string) {
	relationChanges.WithLabelValues(kind, outcome).Inc()
}

// ObserveLogin 记录一次登录尝试：success、invalid 或 rate_limited。
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// ObserveAvatarUpload 记录一次头像上传：stored、rejected 或 failed。
func ObserveAvatarUpload(result string) {
	avatarUploads.WithLabelValues(result).Inc()
}
