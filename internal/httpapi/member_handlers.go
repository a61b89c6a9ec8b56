package httpapi

import (
	"net/http"

	"scentshop.org/internal/audit"
	"scentshop.org/internal/auth"
)

// updateMemberRequest has no admin field; decodeJSON rejects unknown fields,
// so a body carrying "isAdmin" fails with 400.
type updateMemberRequest struct {
	Name   *string `json:"name"`
	YOB    *int    `json:"YOB"`
	Gender *bool   `json:"gender"`
	Avatar *string `json:"avatar"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	m, err := currentMember(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := a.linker.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if members == nil {
		members = []auth.Member{}
	}
	writeData(w, http.StatusOK, members)
}

func (a *API) handleGetMember(w http.ResponseWriter, r *http.Request) {
	target, ok := a.selfOrAdmin(w, r)
	if !ok {
		return
	}
	m, err := a.linker.Get(r.Context(), target)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (a *API) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	target, ok := a.selfOrAdmin(w, r)
	if !ok {
		return
	}
	var req updateMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	m, err := a.linker.UpdateProfile(r.Context(), target, auth.ProfileUpdate{
		Name:        req.Name,
		YearOfBirth: req.YOB,
		Gender:      req.Gender,
		Avatar:      req.Avatar,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventMemberProfileUpdated, map[string]any{
		"target_id": target,
	})
	writeData(w, http.StatusOK, m)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	target, ok := a.selfOrAdmin(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.linker.ChangePassword(r.Context(), target, req.CurrentPassword, req.NewPassword); err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventMemberPasswordChanged, map[string]any{
		"target_id": target,
	})
	writeData(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// selfOrAdmin resolves the {memberID} path parameter and writes the denial
// itself when the caller may not act on it.
func (a *API) selfOrAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	m, err := currentMember(r)
	if err != nil {
		writeDomainError(w, r, err)
		return "", false
	}
	target, ok := pathID(w, r, "memberID", auth.ErrNotFound)
	if !ok {
		return "", false
	}
	if d := auth.RequireSelfOrAdmin(&m, target); !d.Allowed {
		writeDomainError(w, r, d.Err())
		return "", false
	}
	return target, true
}
