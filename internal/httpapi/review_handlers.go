package httpapi

import (
	"net/http"

	"scentshop.org/internal/audit"
	"scentshop.org/internal/review"
)

type perfumeRequest struct {
	Name  string `json:"name"`
	Brand string `json:"brand"`
}

type commentRequest struct {
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

func (a *API) handleCreatePerfume(w http.ResponseWriter, r *http.Request) {
	var req perfumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.catalog.Create(r.Context(), req.Name, req.Brand)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventPerfumeCreated, map[string]any{
		"perfume_id": p.ID,
	})
	writeData(w, http.StatusCreated, p)
}

func (a *API) handleListComments(w http.ResponseWriter, r *http.Request) {
	perfumeID, ok := pathID(w, r, "perfumeID", review.ErrPerfumeNotFound)
	if !ok {
		return
	}
	reviews, err := a.reviews.List(r.Context(), perfumeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	writeData(w, http.StatusOK, reviews)
}

func (a *API) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	m, err := currentMember(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	perfumeID, ok := pathID(w, r, "perfumeID", review.ErrPerfumeNotFound)
	if !ok {
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rv, err := a.reviews.Create(r.Context(), m, perfumeID, review.Input{Rating: req.Rating, Content: req.Content})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventReviewCreated, map[string]any{
		"perfume_id": perfumeID,
		"review_id":  rv.ID,
		"rating":     rv.Rating,
	})
	writeData(w, http.StatusCreated, rv)
}

func (a *API) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	m, err := currentMember(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	perfumeID, reviewID, ok := commentPath(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rv, err := a.reviews.Update(r.Context(), m, perfumeID, reviewID, review.Input{Rating: req.Rating, Content: req.Content})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventReviewUpdated, map[string]any{
		"perfume_id": perfumeID,
		"review_id":  reviewID,
		"rating":     rv.Rating,
	})
	writeData(w, http.StatusOK, rv)
}

func (a *API) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	m, err := currentMember(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	perfumeID, reviewID, ok := commentPath(w, r)
	if !ok {
		return
	}
	if err := a.reviews.Delete(r.Context(), m, perfumeID, reviewID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventReviewDeleted, map[string]any{
		"perfume_id": perfumeID,
		"review_id":  reviewID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func commentPath(w http.ResponseWriter, r *http.Request) (perfumeID, reviewID string, ok bool) {
	if perfumeID, ok = pathID(w, r, "perfumeID", review.ErrPerfumeNotFound); !ok {
		return "", "", false
	}
	if reviewID, ok = pathID(w, r, "commentID", review.ErrNotFound); !ok {
		return "", "", false
	}
	return perfumeID, reviewID, true
}
