package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang_saga/api"
	"golang_saga/log"
	"golang_saga/txmanager"
)

func (s *Server) handleVersion(rw http.ResponseWriter, r *http.Request) {
	WriteJSON(rw, http.StatusOK, &api.Version{
		Name:    "coordinator",
		Version: s.opts.Version,
	})
}

func (s *Server) handleCreate(rw http.ResponseWriter, r *http.Request) {
	req := &txmanager.TransactionRequest{}
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, s.opts.MaxBodyBytes))
	if err := dec.Decode(req); err != nil {
		SendError(rw, http.StatusBadRequest, "invalid transaction: "+err.Error())
		return
	}

	id, err := s.coordinator.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, txmanager.ErrBadParams) {
			SendError(rw, http.StatusBadRequest, err.Error())
			return
		}
		log.ErrorContextf(r.Context(), "create transaction failed: %v", err)
		SendError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(rw, http.StatusCreated, &api.Response{
		Status: api.StatusCreated,
		ID:     id,
	})
}

func (s *Server) handleStatus(rw http.ResponseWriter, r *http.Request) {
	tx, err := s.coordinator.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, txmanager.ErrNotFound) {
			SendError(rw, http.StatusNotFound, err.Error())
			return
		}
		SendError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	resp := &api.Transaction{
		ID:           tx.TXID,
		ExternalUUID: tx.ExternalUUID,
		Status:       tx.Status.String(),
		CreatedAt:    tx.CreatedAt,
		Substates:    make([]api.Substate, 0, len(tx.Substates)),
	}
	for _, sub := range tx.Substates {
		resp.Substates = append(resp.Substates, api.Substate{
			Service:   sub.Service,
			SubStatus: sub.SubStatus.String(),
		})
	}
	WriteJSON(rw, http.StatusOK, resp)
}

func (s *Server) handleConfirm(rw http.ResponseWriter, r *http.Request) {
	err := s.coordinator.Confirm(r.Context(), r.PathValue("id"), r.PathValue("service"))
	if err == nil {
		WriteJSON(rw, http.StatusOK, &api.Response{Status: api.StatusConfirmed})
		return
	}
	writeOutcome(rw, confirmCode(err), err)
}

func (s *Server) handleAbort(rw http.ResponseWriter, r *http.Request) {
	err := s.coordinator.Abort(r.Context(), r.PathValue("id"), r.PathValue("service"))
	if err == nil {
		WriteJSON(rw, http.StatusOK, &api.Response{Status: api.StatusAborted})
		return
	}
	writeOutcome(rw, abortCode(err), err)
}

func writeOutcome(rw http.ResponseWriter, code int, err error) {
	if errors.Is(err, txmanager.ErrRepeated) {
		WriteJSON(rw, code, &api.Response{Status: api.StatusRepeated, Message: err.Error()})
		return
	}
	SendError(rw, code, err.Error())
}

func confirmCode(err error) int {
	switch {
	case errors.Is(err, txmanager.ErrRepeated):
		return http.StatusOK
	case errors.Is(err, txmanager.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, txmanager.ErrAborted), errors.Is(err, txmanager.ErrExpired):
		return http.StatusFailedDependency
	case errors.Is(err, txmanager.ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, txmanager.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, txmanager.ErrBadParams):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortCode(err error) int {
	switch {
	case errors.Is(err, txmanager.ErrRepeated), errors.Is(err, txmanager.ErrAborted):
		return http.StatusOK
	case errors.Is(err, txmanager.ErrExpired), errors.Is(err, txmanager.ErrBadParams):
		return http.StatusBadRequest
	case errors.Is(err, txmanager.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, txmanager.ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, txmanager.ErrTimeout):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}
