package types

type SuccessEnvelope struct {
	Data any           `json:"data"`
	Meta *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta tells the renderer which session state produced a response.
type ResponseMeta struct {
	Mode       string `json:"mode"`
	Generation uint64 `json:"generation"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
