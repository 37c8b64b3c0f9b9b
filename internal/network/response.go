// ABOUTME: Response framing for the control surface
// ABOUTME: Status line, JSON content type, connection close, one JSON line
package network

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is a status code plus a JSON-encodable body
type Response struct {
	Code int
	Body any
}

type messageBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusBody struct {
	Status        string `json:"status"`
	WifiConnected bool   `json:"wifi_connected"`
	ServerRunning bool   `json:"server_running"`
	IPAddress     string `json:"ip_address"`
}

func success(format string, args ...any) Response {
	return Response{Code: http.StatusOK, Body: messageBody{Status: statusSuccess, Message: fmt.Sprintf(format, args...)}}
}

func failure(code int, format string, args ...any) Response {
	return Response{Code: code, Body: messageBody{Status: statusError, Message: fmt.Sprintf(format, args...)}}
}

// WriteTo frames the response
func (r Response) WriteTo(w io.Writer) (int64, error) {
	body, err := json.Marshal(r.Body)
	if err != nil {
		return 0, fmt.Errorf("encode body: %w", err)
	}

	header := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: application/json\r\nConnection: close\r\n\r\n",
		r.Code, http.StatusText(r.Code))

	msg := make([]byte, 0, len(header)+len(body)+1)
	msg = append(msg, header...)
	msg = append(msg, body...)
	msg = append(msg, '\n')

	n, err := w.Write(msg)
	return int64(n), err
}

// internalError is sent when the connection itself failed
const internalError = "HTTP/1.1 500 Internal Server Error\r\n\r\n"
