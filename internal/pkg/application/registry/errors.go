package registry

import (
	"fmt"
)

type AlreadyExistsError struct {
	msg string
}

func NewAlreadyExistsError(msg string) AlreadyExistsError {
	return AlreadyExistsError{msg: msg}
}

func (aee AlreadyExistsError) Error() string {
	return aee.msg
}

type BadRequestDataError struct {
	msg string
}

func NewBadRequestDataError(msg string) BadRequestDataError {
	return BadRequestDataError{msg: msg}
}

func (brd BadRequestDataError) Error() string {
	return brd.msg
}

type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) NotFoundError {
	return NotFoundError{msg: msg}
}

func (nfe NotFoundError) Error() string {
	return nfe.msg
}

type UnknownTenantError struct {
	tenant string
}

func NewUnknownTenantError(tenant string) UnknownTenantError {
	return UnknownTenantError{tenant: tenant}
}

func (ute UnknownTenantError) Error() string {
	return fmt.Sprintf("unknown tenant \"%s\"", ute.tenant)
}
