// Package errclass maps failed operations to the user-facing message shown
// for them. Nothing here retries; callers classify and report.
package errclass

import (
	"errors"
	"net/http"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
)

// Op names the operation that failed.
type Op string

const (
	OpLogin  Op = "login"
	OpOAuth  Op = "oauth"
	OpSignup Op = "signup"
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mutating reports whether op changes a record.
func (o Op) Mutating() bool {
	return o == OpCreate || o == OpUpdate || o == OpDelete
}

type Category int

const (
	Generic Category = iota
	AuthFailure
	Forbidden
	Validation
	Invalid
)

func (c Category) String() string {
	switch c {
	case AuthFailure:
		return "auth_failure"
	case Forbidden:
		return "forbidden"
	case Validation:
		return "validation"
	case Invalid:
		return "invalid"
	}
	return "generic"
}

const (
	MsgLoginFailed      = "登入失敗，請檢查帳號或密碼"
	MsgForbidden        = "未授權進行此操作"
	MsgInvalidEmail     = "Email不合法，或已被使用"
	MsgPasswordLength   = "密碼長度必須在 8 到 72 個字符之間"
	MsgPasswordMismatch = "密碼確認不一致"
	MsgGeneric          = "系統繁忙中，請稍後在試"
)

// Failure is a classified error.
type Failure struct {
	Category Category
	Field    string
	Message  string
	Err      error
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Err }

// Classify returns the failure for err raised by op. A nil err yields nil.
func Classify(op Op, err error) *Failure {
	if err == nil {
		return nil
	}
	var classified *Failure
	if errors.As(err, &classified) {
		return classified
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return &Failure{Category: Invalid, Field: ve.Field, Message: ve.Message, Err: err}
	}

	var be *backend.Error
	if !errors.As(err, &be) {
		return generic(err)
	}

	switch {
	case (op == OpLogin || op == OpOAuth) && be.Status == http.StatusBadRequest:
		return &Failure{Category: AuthFailure, Message: MsgLoginFailed, Err: err}
	case op.Mutating() && (be.Status == http.StatusNotFound || be.Status == http.StatusForbidden):
		return &Failure{Category: Forbidden, Message: MsgForbidden, Err: err}
	case op == OpSignup && be.Status == http.StatusBadRequest:
		if f := signupField(be); f != nil {
			f.Err = err
			return f
		}
	}
	return generic(err)
}

// signupField checks fields in form order so the first visible problem wins.
func signupField(be *backend.Error) *Failure {
	if _, ok := be.Field("email"); ok {
		return &Failure{Category: Validation, Field: "email", Message: MsgInvalidEmail}
	}
	if fe, ok := be.Field("password"); ok && fe.Code == backend.CodeLengthOutRange {
		return &Failure{Category: Validation, Field: "password", Message: MsgPasswordLength}
	}
	if _, ok := be.Field("passwordConfirm"); ok {
		return &Failure{Category: Validation, Field: "passwordConfirm", Message: MsgPasswordMismatch}
	}
	return nil
}

func generic(err error) *Failure {
	return &Failure{Category: Generic, Message: MsgGeneric, Err: err}
}

// Message is shorthand for Classify(op, err).Message, or "" for nil.
func Message(op Op, err error) string {
	if f := Classify(op, err); f != nil {
		return f.Message
	}
	return ""
}
