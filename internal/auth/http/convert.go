package http

import (
	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/pkg/authsdk"
)

func toUserResponse(a domain.Account) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:             a.ID,
		Username:       a.Identifier,
		Email:          a.Email,
		EmailVerified:  a.EmailVerified,
		FullName:       a.FullName,
		Phone:          a.Phone,
		Age:            a.Age,
		Gender:         a.Gender,
		Role:           a.Role.String(),
		Enabled:        a.Enabled,
		Locked:         a.Locked,
		LockedAt:       a.LockedAt,
		FailedAttempts: a.FailedAttempts,
		MFAEnabled:     a.MFAEnabled(),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		LastLoginAt:    a.LastLoginAt,
	}
}

func toLogResponse(e domain.OperationLogEntry) authsdk.OperationLogResponse {
	return authsdk.OperationLogResponse{
		ID:            e.ID,
		ActorID:       e.ActorID,
		ActorUsername: e.ActorIdentifier,
		Action:        string(e.Action),
		TargetType:    string(e.TargetType),
		TargetID:      e.TargetID,
		TargetLabel:   e.TargetLabel,
		Success:       e.Outcome == domain.OutcomeSuccess,
		Detail:        e.Detail,
		OriginAddress: e.OriginAddress,
		OccurredAt:    e.OccurredAt,
	}
}

func toProfileUpdate(req authsdk.UpdateProfileRequest) service.ProfileUpdate {
	return service.ProfileUpdate{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Age:      req.Age,
		Gender:   req.Gender,
	}
}
