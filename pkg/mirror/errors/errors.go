package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

var ErrInvalidKey = fmt.Errorf("invalid key")
var ErrUnresolvedReference = fmt.Errorf("unresolved reference")
var ErrNotPersisted = fmt.Errorf("not persisted")
var ErrCyclicDependency = fmt.Errorf("cyclic dependency")
var ErrRemote = fmt.Errorf("remote error")
var ErrUsageAfterDelete = fmt.Errorf("usage after delete")
var ErrNotFound = fmt.Errorf("not found")
var ErrAlreadyExists = fmt.Errorf("already exists")
var ErrInternal = fmt.Errorf("internal error")

type storeError struct {
	msg    string
	target error
}

func (s storeError) Error() string        { return s.msg }
func (s storeError) Is(target error) bool { return target == s.target }

func NewInvalidKeyError(msg string) error {
	return &storeError{msg: msg, target: ErrInvalidKey}
}

func NewUnresolvedReferenceError(msg string) error {
	return &storeError{msg: msg, target: ErrUnresolvedReference}
}

func NewNotPersistedError(msg string) error {
	return &storeError{msg: msg, target: ErrNotPersisted}
}

func NewCyclicDependencyError(msg string) error {
	return &storeError{msg: msg, target: ErrCyclicDependency}
}

func NewUsageAfterDeleteError(kind string) error {
	return &storeError{
		msg:    fmt.Sprintf("entity of kind %s has been deleted", kind),
		target: ErrUsageAfterDelete,
	}
}

func NewNotFoundError(msg string) error {
	return &storeError{msg: msg, target: ErrNotFound}
}

func NewAlreadyExistsError(msg string) error {
	return &storeError{msg: msg, target: ErrAlreadyExists}
}

type remoteError struct {
	msg   string
	cause error
}

func (r remoteError) Error() string        { return r.msg }
func (r remoteError) Is(target error) bool { return target == ErrRemote }
func (r remoteError) Unwrap() error        { return r.cause }

// NewRemoteError wraps a network or service failure. The opaque cause is
// preserved and reachable via errors.Unwrap.
func NewRemoteError(msg string, cause error) error {
	return &remoteError{msg: msg, cause: cause}
}

const (
	problemTypeAlreadyExists  string = "urn:diwise:datastore:errors:AlreadyExists"
	problemTypeBadRequestData string = "urn:diwise:datastore:errors:BadRequestData"
	problemTypeInternalError  string = "urn:diwise:datastore:errors:InternalError"
	problemTypeNotFound       string = "urn:diwise:datastore:errors:RecordNotFound"
	problemTypeUnauthorized   string = "urn:diwise:datastore:errors:UnauthorizedRequest"
	problemTypeUnknownTenant  string = "urn:diwise:datastore:errors:NonexistentTenant"
)

// NewErrorFromProblemReport translates an RFC7807 problem report received
// from the record store into one of the error kinds above.
func NewErrorFromProblemReport(code int, contentType string, body []byte) error {
	report := &struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}{}

	err := json.Unmarshal(body, report)
	if err != nil {
		return NewRemoteError(
			fmt.Sprintf("failed to process problem report from record store: %s", err.Error()),
			err,
		)
	}

	if code == http.StatusNotFound || report.Type == problemTypeNotFound {
		return NewNotFoundError(report.Detail)
	}

	if report.Type == problemTypeAlreadyExists {
		return NewAlreadyExistsError(report.Detail)
	}

	if report.Type == problemTypeBadRequestData {
		return NewInvalidKeyError(report.Detail)
	}

	return NewRemoteError(
		fmt.Sprintf("[code: %d] problem report of type \"%s\" with detail \"%s\" received",
			code, report.Type, report.Detail,
		),
		nil,
	)
}

// ProblemDetails stores details about a certain problem according to RFC7807
// See https://tools.ietf.org/html/rfc7807
type ProblemDetails interface {
	ContentType() string
	MarshalJSON() ([]byte, error)
	WriteResponse(w http.ResponseWriter)
}

type ProblemDetailsImpl struct {
	typ     string
	title   string
	detail  string
	code    int
	traceID string
}

const (
	// ProblemReportContentType as required by https://tools.ietf.org/html/rfc7807
	ProblemReportContentType string = "application/problem+json"
)

// AlreadyExists reports that the request tries to create an already existing record
type AlreadyExists struct {
	ProblemDetailsImpl
}

func NewAlreadyExists(detail, traceID string) *AlreadyExists {
	return &AlreadyExists{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     problemTypeAlreadyExists,
			title:   "Already Exists",
			detail:  detail,
			code:    http.StatusConflict,
			traceID: traceID,
		},
	}
}

// ReportNewAlreadyExistsError creates an AlreadyExists instance and sends it to the supplied http.ResponseWriter
func ReportNewAlreadyExistsError(w http.ResponseWriter, detail, traceID string) {
	ae := NewAlreadyExists(detail, traceID)
	ae.WriteResponse(w)
}

// BadRequestData reports that the request includes input data which does not meet the requirements of the operation
type BadRequestData struct {
	ProblemDetailsImpl
}

func NewBadRequestData(detail, traceID string) *BadRequestData {
	return &BadRequestData{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     problemTypeBadRequestData,
			title:   "Bad Request Data",
			detail:  detail,
			code:    http.StatusBadRequest,
			traceID: traceID,
		},
	}
}

// ReportNewBadRequestData creates a BadRequestData instance and sends it to the supplied http.ResponseWriter
func ReportNewBadRequestData(w http.ResponseWriter, detail, traceID string) {
	brd := NewBadRequestData(detail, traceID)
	brd.WriteResponse(w)
}

// InternalError reports that there has been an error during the operation execution
type InternalError struct {
	ProblemDetailsImpl
}

func (ie InternalError) Error() string {
	return ie.detail
}

func NewInternalError(detail, traceID string) *InternalError {
	return &InternalError{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     problemTypeInternalError,
			title:   "Internal Error",
			detail:  detail,
			code:    http.StatusInternalServerError,
			traceID: traceID,
		},
	}
}

// ReportNewInternalError creates an InternalError instance and sends it to the supplied http.ResponseWriter
func ReportNewInternalError(w http.ResponseWriter, detail, traceID string) {
	ie := NewInternalError(detail, traceID)
	ie.WriteResponse(w)
}

// NotFound reports that the request failed with a not found error of some kind
type NotFound struct {
	ProblemDetailsImpl
}

func NewNotFound(detail, traceID string) *NotFound {
	return &NotFound{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     problemTypeNotFound,
			title:   "Not Found",
			detail:  detail,
			code:    http.StatusNotFound,
			traceID: traceID,
		},
	}
}

// ReportNotFoundError creates a NotFound instance and sends it to the supplied http.ResponseWriter
func ReportNotFoundError(w http.ResponseWriter, detail, traceID string) {
	nf := NewNotFound(detail, traceID)
	nf.WriteResponse(w)
}

type UnauthorizedRequest struct {
	ProblemDetailsImpl
}

func NewUnauthorizedRequest(detail, traceID string) *UnauthorizedRequest {
	return &UnauthorizedRequest{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     problemTypeUnauthorized,
			title:   "Unauthorized Request",
			detail:  detail,
			code:    http.StatusUnauthorized,
			traceID: traceID,
		},
	}
}

func ReportUnauthorizedRequest(w http.ResponseWriter, detail, traceID string) {
	ur := NewUnauthorizedRequest(detail, traceID)
	ur.WriteResponse(w)
}

// UnknownTenant reports that the request tries to interact with an unknown tenant
type UnknownTenant struct {
	ProblemDetailsImpl
}

func NewUnknownTenant(detail, traceID string) *UnknownTenant {
	return &UnknownTenant{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     problemTypeUnknownTenant,
			title:   "Non Existent Tenant",
			detail:  detail,
			code:    http.StatusNotFound,
			traceID: traceID,
		},
	}
}

// ReportUnknownTenantError creates an UnknownTenant instance and sends it to the supplied http.ResponseWriter
func ReportUnknownTenantError(w http.ResponseWriter, detail, traceID string) {
	ut := NewUnknownTenant(detail, traceID)
	ut.WriteResponse(w)
}

// ContentType returns the ContentType to be used when returning this problem
func (p *ProblemDetailsImpl) ContentType() string {
	return ProblemReportContentType
}

// MarshalJSON is called when a ProblemDetailsImpl instance should be serialized to JSON
func (p *ProblemDetailsImpl) MarshalJSON() ([]byte, error) {
	var traceID *string

	if p.traceID != "" {
		traceID = &p.traceID
	}

	j, err := json.Marshal(struct {
		Type    string  `json:"type"`
		Title   string  `json:"title"`
		Detail  string  `json:"detail"`
		TraceID *string `json:"traceID,omitempty"`
	}{
		Type:    p.typ,
		Title:   p.title,
		Detail:  p.detail,
		TraceID: traceID,
	})
	if err != nil {
		return nil, err
	}

	return j, nil
}

// ResponseCode returns the HTTP response code to be used when returning a specific problem
func (p *ProblemDetailsImpl) ResponseCode() int {
	if p.code != 0 {
		return p.code
	}

	return http.StatusBadRequest
}

// WriteResponse writes the contents of this instance to a http.ResponseWriter
func (p *ProblemDetailsImpl) WriteResponse(w http.ResponseWriter) {
	w.Header().Add("Content-Type", p.ContentType())
	w.Header().Add("Content-Language", "en")
	w.WriteHeader(p.ResponseCode())

	pdbytes, err := json.MarshalIndent(p, "", "  ")
	if err == nil {
		w.Write(pdbytes)
	}
}
