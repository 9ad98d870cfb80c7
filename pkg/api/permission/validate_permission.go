package permission

import (
	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/auth"
)

type Permission string

const (
	PermissionReadData Permission = "read-data"
)

const (
	PermissionIngestSession   Permission = "ingest-session"
	PermissionIngestTelemetry Permission = "ingest-telemetry"
	PermissionManageAnalysis  Permission = "manage-analysis"
)

// collection of admin specific permissions
const (
	PermissionDeleteSession Permission = "delete-session"
)

type PermissionEvaluator interface {
	HasPermission(auth auth.Authentication, perm Permission) bool
}

func NewPermissionEvaluator() PermissionEvaluator {
	if ret, err := NewOpaPermissionEvaluator(); err != nil {
		log.Default().Error("failed to create permission evaluator", log.ErrorField(err))
		return nil
	} else {
		return ret
	}
}
