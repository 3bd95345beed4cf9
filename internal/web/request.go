// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/apierror"
	"github.com/holomush/authd/internal/auth"
)

// maxBodyBytes caps credential request bodies.
const maxBodyBytes = 64 << 10

// Validation messages.
const (
	msgInvalidJSON      = "Request body must be valid JSON"
	msgBodyTooLarge     = "Request body is too large"
	msgUsernameTooShort = "Username must be at least 5 characters long"
	msgPasswordTooShort = "Password must be at least 6 characters long"
	msgUsernameRequired = "Username is required"
	msgPasswordRequired = "Password is required"
	msgIsBannedType     = "isBanned must be a boolean"
)

// requestFields fixes the order field messages are reported in.
var requestFields = []string{"username", "password", "isBanned"}

type signUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsBanned *bool  `json:"isBanned"`
}

func (req *signUpRequest) normalize() {
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)
}

// Validate implements validation.Validatable.
func (req signUpRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Username,
			validation.Required.Error(msgUsernameTooShort),
			validation.RuneLength(auth.MinUsernameLength, 0).Error(msgUsernameTooShort),
		),
		validation.Field(&req.Password,
			validation.Required.Error(msgPasswordTooShort),
			validation.RuneLength(auth.MinPasswordLength, 0).Error(msgPasswordTooShort),
		),
	)
}

func (req signUpRequest) input() auth.SignUpInput {
	return auth.SignUpInput{
		Username: req.Username,
		Password: req.Password,
		IsBanned: req.IsBanned != nil && *req.IsBanned,
	}
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req *signInRequest) normalize() {
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)
}

// Validate implements validation.Validatable.
func (req signInRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.Required.Error(msgUsernameRequired)),
		validation.Field(&req.Password, validation.Required.Error(msgPasswordRequired)),
	)
}

// credentialRequest is a decoded body that can be trimmed and validated.
type credentialRequest interface {
	validation.Validatable
	normalize()
}

// decodeRequest reads a JSON body into req, trims it and validates it.
// An empty body decodes as an empty object. Fields of the wrong JSON type
// are reported alongside rule failures.
func decodeRequest(w http.ResponseWriter, r *http.Request, req credentialRequest) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	fieldErrs := map[string]string{}
	if err := render.DecodeJSON(body, req); err != nil && !errors.Is(err, io.EOF) {
		var (
			typeErr *json.UnmarshalTypeError
			sizeErr *http.MaxBytesError
		)
		switch {
		case errors.As(err, &sizeErr):
			return apierror.BadRequest(msgBodyTooLarge).WithCause(err)
		case errors.As(err, &typeErr) && typeErr.Field != "":
			fieldErrs[typeErr.Field] = typeMessage(typeErr.Field)
		default:
			return apierror.Validation(apierror.Message{Msg: msgInvalidJSON}).WithCause(err)
		}
	}

	req.normalize()
	if err := req.Validate(); err != nil {
		var ruleErrs validation.Errors
		if !errors.As(err, &ruleErrs) {
			return oops.Code("REQUEST_VALIDATE_FAILED").Wrap(err)
		}
		for field, ferr := range ruleErrs {
			if _, seen := fieldErrs[field]; !seen {
				fieldErrs[field] = ferr.Error()
			}
		}
	}
	if len(fieldErrs) == 0 {
		return nil
	}
	return apierror.Validation(fieldMessages(fieldErrs)...)
}

func typeMessage(field string) string {
	if field == "isBanned" {
		return msgIsBannedType
	}
	return field + " must be a string"
}

func fieldMessages(fieldErrs map[string]string) []apierror.Message {
	msgs := make([]apierror.Message, 0, len(fieldErrs))
	for _, field := range requestFields {
		if msg, ok := fieldErrs[field]; ok {
			msgs = append(msgs, apierror.Message{Msg: msg, Field: field})
		}
	}
	return msgs
}
