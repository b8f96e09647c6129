package bizerror

import (
	"fmt"
	"net/http"

	"atlas/common"
)

type bizError struct {
	status  int
	code    string
	message string
}

func (e *bizError) Error() string {
	return e.message
}
func (e *bizError) Respond() *common.BizErrorDetail {
	return &common.BizErrorDetail{Status: e.status, Code: e.code, Message: e.message}
}

var (
	ErrEmptyDateRange = &bizError{http.StatusUnprocessableEntity, "project.date_range.empty",
		"date_range field is an empty object"}
	ErrIncompleteDateRange = &bizError{http.StatusUnprocessableEntity, "project.date_range.incomplete",
		"date_range field has to contain both 'lower' and 'upper' fields"}
	ErrInvertedDateRange = &bizError{http.StatusUnprocessableEntity, "project.date_range.inverted",
		"the lower bound cannot be higher than the upper bound"}
	ErrNoFieldsToUpdate = &bizError{http.StatusUnprocessableEntity, "project.update.no_fields",
		"no fields to update"}
)

// ErrMissingField reports a required create field that the caller left out.
type ErrMissingField struct {
	Field string
}

func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("the field %s is required", e.Field)
}
func (e *ErrMissingField) Respond() *common.BizErrorDetail {
	return &common.BizErrorDetail{Status: http.StatusUnprocessableEntity, Code: "project.missing_field",
		Message: e.Error(), Data: e.Field}
}

// ErrFieldViolation reports a supplied field value that breaks one of its
// declared constraints.
type ErrFieldViolation struct {
	Field string
	Rule  string
}

func (e *ErrFieldViolation) Error() string {
	return fmt.Sprintf("the field %s violates the %s constraint", e.Field, e.Rule)
}
func (e *ErrFieldViolation) Respond() *common.BizErrorDetail {
	return &common.BizErrorDetail{Status: http.StatusUnprocessableEntity, Code: "project.field.invalid",
		Message: e.Error(), Data: e.Field}
}

type ErrDateFormatType struct {
	Field string
}

func (e *ErrDateFormatType) Error() string {
	return fmt.Sprintf("a string following YYYY-MM-DD format is required for %s", e.Field)
}
func (e *ErrDateFormatType) Respond() *common.BizErrorDetail {
	return &common.BizErrorDetail{Status: http.StatusUnprocessableEntity, Code: "project.date_range.bad_type",
		Message: e.Error(), Data: e.Field}
}

type ErrDateFormatValue struct {
	Field string
}

func (e *ErrDateFormatValue) Error() string {
	return fmt.Sprintf("the field %s does not follow YYYY-MM-DD format", e.Field)
}
func (e *ErrDateFormatValue) Respond() *common.BizErrorDetail {
	return &common.BizErrorDetail{Status: http.StatusUnprocessableEntity, Code: "project.date_range.bad_format",
		Message: e.Error(), Data: e.Field}
}

type ErrInvalidAOIStructure struct {
	Cause error
}

func (e *ErrInvalidAOIStructure) Unwrap() error {
	return e.Cause
}
func (e *ErrInvalidAOIStructure) Error() string {
	return "area_of_interest has invalid structure"
}
func (e *ErrInvalidAOIStructure) Respond() *common.BizErrorDetail {
	detail := &common.BizErrorDetail{Status: http.StatusUnprocessableEntity,
		Code: "project.area_of_interest.invalid_structure", Message: e.Error(), Cause: e.Cause}
	if e.Cause != nil {
		detail.Data = e.Cause.Error()
	}
	return detail
}

type ErrInvalidAOIGeometry struct {
	Cause error
}

func (e *ErrInvalidAOIGeometry) Unwrap() error {
	return e.Cause
}
func (e *ErrInvalidAOIGeometry) Error() string {
	return "area_of_interest has invalid geometry"
}
func (e *ErrInvalidAOIGeometry) Respond() *common.BizErrorDetail {
	detail := &common.BizErrorDetail{Status: http.StatusUnprocessableEntity,
		Code: "project.area_of_interest.invalid_geometry", Message: e.Error(), Cause: e.Cause}
	if e.Cause != nil {
		detail.Data = e.Cause.Error()
	}
	return detail
}

// ErrGeometryEncoding reports an atomic fragment that validated as a whole
// payload but could not be encoded into the storage geometry type.
type ErrGeometryEncoding struct {
	Cause error
}

func (e *ErrGeometryEncoding) Unwrap() error {
	return e.Cause
}
func (e *ErrGeometryEncoding) Error() string {
	return "area_of_interest fragment could not be encoded"
}
func (e *ErrGeometryEncoding) Respond() *common.BizErrorDetail {
	detail := &common.BizErrorDetail{Status: http.StatusUnprocessableEntity,
		Code: "project.area_of_interest.encoding", Message: e.Error(), Cause: e.Cause}
	if e.Cause != nil {
		detail.Data = e.Cause.Error()
	}
	return detail
}

type ErrMalformedProjectID struct {
	ID string
}

func (e *ErrMalformedProjectID) Error() string {
	return "the project id path parameter should follow UUID convention"
}
func (e *ErrMalformedProjectID) Respond() *common.BizErrorDetail {
	return &common.BizErrorDetail{Status: http.StatusBadRequest, Code: "project.id.malformed",
		Message: e.Error(), Data: e.ID}
}

type ErrProjectNotFound struct {
	ID string
}

func (e *ErrProjectNotFound) Error() string {
	return "project not found"
}
func (e *ErrProjectNotFound) Respond() *common.BizErrorDetail {
	return &common.BizErrorDetail{Status: http.StatusNotFound, Code: "project.not_found",
		Message: e.Error(), Data: e.ID}
}
