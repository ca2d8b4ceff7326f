package websocket

import (
	"context"

	"github.com/medibook/medibook/internal/platform/auth"
)

// CanSubscribe reports whether the caller in ctx may receive topic. Admins
// may watch any topic, a doctor only their own doctor topic and a patient
// only their own patient topic.
func CanSubscribe(ctx context.Context, topic string) bool {
	if auth.IsAdmin(ctx) {
		return true
	}
	if own := auth.DoctorIDFromContext(ctx); own != "" && auth.HasRole(ctx, auth.RoleDoctor) && topic == DoctorTopic(own) {
		return true
	}
	if uid := auth.UserIDFromContext(ctx); uid != "" && auth.HasRole(ctx, auth.RolePatient) && topic == PatientTopic(uid) {
		return true
	}
	return false
}
