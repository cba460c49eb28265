package provider

import (
	"bytes"
	"encoding/json"
	"strings"
)

type authenticateRequest struct {
	TenancyName            string `json:"tenancyName"`
	UserNameOrEmailAddress string `json:"userNameOrEmailAddress"`
	Password               string `json:"password"`
}

type apiError struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

type authenticateResponse struct {
	Success bool      `json:"success"`
	Error   *apiError `json:"error"`
	Result  *struct {
		AccessToken string `json:"accessToken"`
	} `json:"result"`
}

type catalogResponse struct {
	Result struct {
		TotalCount int           `json:"totalCount"`
		Items      []catalogItem `json:"items"`
	} `json:"result"`
}

type catalogItem struct {
	Deneme struct {
		ID   flexID `json:"id"`
		Name string `json:"denemeAdi"`
	} `json:"deneme"`
	ExamType string `json:"sinavTuruName"`
	Period   string `json:"donemDonemAdi"`
}

type documentResponse struct {
	Success bool      `json:"success"`
	Error   *apiError `json:"error"`
	Result  *struct {
		FileToken string `json:"fileToken"`
	} `json:"result"`
}

// flexID accepts ids sent either as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (e *apiError) String() string {
	if e == nil {
		return "unknown error"
	}
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
