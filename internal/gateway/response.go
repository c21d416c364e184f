package gateway

import (
	"encoding/json"
	"log"
	"net/http"
)

// APIResponse 统一响应格式
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// sendJSON 发送JSON响应
func sendJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("编码响应失败: %v", err)
	}
}

// sendSuccess 发送成功响应
func sendSuccess(w http.ResponseWriter, message string, data interface{}) {
	sendJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// sendError 发送错误响应
func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, APIResponse{
		Success: false,
		Message: message,
	})
}
