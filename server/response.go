package server

import (
	"encoding/json"
	"net/http"

	"golang_saga/api"
)

func WriteJSON(rw http.ResponseWriter, code int, v interface{}) {
	rw.Header().Set("Content-Type", api.CTJSON)
	rw.WriteHeader(code)
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	_, _ = rw.Write(b)
}

func SendError(rw http.ResponseWriter, code int, message string) {
	WriteJSON(rw, code, &api.Response{
		Status:  api.StatusFailure,
		Message: message,
	})
}
