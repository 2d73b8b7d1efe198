// Package response writes the HTTP envelope named in spec.md §6:
// {success, data} on the happy path, {success: false, error: {code,
// message}} otherwise, with the status code taken from the error's
// apperr.Kind.
package response

import (
	"net/http"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes a 201 success envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

// Fail maps err to a status code via apperr.Kind and writes the error
// envelope. Any error that isn't an *apperr.Error is reported as
// INTERNAL without leaking its message to the response body.
func Fail(c *gin.Context, err error) {
	var appErr *apperr.Error
	if asErr, ok := err.(*apperr.Error); ok {
		appErr = asErr
	} else {
		appErr = apperr.Wrap(apperr.Internal, "internal error", err)
	}

	code := string(appErr.Kind)
	message := appErr.Message
	if appErr.Tag != "" {
		code = appErr.Tag
	}
	if appErr.Kind == apperr.Internal {
		message = "internal error"
	}

	c.JSON(appErr.Kind.HTTPStatus(), envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: message},
	})
}
