package handler

import (
	"encoding/json"
	"internship-auth/internal/util"
	"log"
	"net/http"
)

const maxBodySize = 1 << 16

func sendErrorResponse(w http.ResponseWriter, code int, message string) {
	util.HandleError(w, message, code)
}

func sendJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Println("ошибка кодирования ответа:", err)
	}
}

// decodeJSON читает тело запроса; при ошибке сам отвечает 400
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "некорректный JSON")
		return err
	}
	return nil
}
