package handler

import (
	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
)

func toUserResponse(acc *domain.Account) userResponse {
	return userResponse{
		ID:        acc.ID,
		Email:     acc.Email,
		IsAdmin:   acc.IsAdmin(),
		CreatedAt: acc.CreatedAt,
	}
}

func toUserResponses(accounts []*domain.Account) []userResponse {
	out := make([]userResponse, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, toUserResponse(acc))
	}
	return out
}

func toAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{
		User:      toUserResponse(res.Account),
		Token:     res.Token,
		ExpiresAt: res.Session.ExpiresAt,
	}
}

func toStatsResponse(st *ports.Stats) statsResponse {
	return statsResponse{
		TotalUsers:   st.Total,
		AdminUsers:   st.Admins,
		RegularUsers: st.Regular,
		UsersToday:   st.Today,
		UsersWeek:    st.ThisWeek,
		UsersMonth:   st.ThisMonth,
		RecentUsers:  toUserResponses(st.RecentUsers),
		GeneratedAt:  st.GeneratedAt,
	}
}

func toHistoryEntry(e *domain.AuditEntry) historyEntryResponse {
	return historyEntryResponse{
		ID:         e.ID,
		ActorID:    e.ActorID,
		UserEmail:  e.ActorEmail,
		Action:     string(e.Action),
		SubjectID:  e.SubjectID,
		OccurredAt: e.OccurredAt,
		Payload:    e.Payload,
	}
}

func toHistoryResponse(entries []*domain.AuditEntry) historyResponse {
	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryEntry(e))
	}
	return historyResponse{History: out}
}
