package echoapi

import (
	"github.com/allii5/TextInsight/core"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	EnrollRequest struct {
		StudentID string `json:"student_id" validate:"required"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (r LoginRequest) Validate() error  { return core.Validate.Struct(r) }
func (r EnrollRequest) Validate() error { return core.Validate.Struct(r) }
