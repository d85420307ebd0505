package cmi

import (
	"strconv"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// Code is a SCORM run-time error code.
type Code int

// SCORM 2004 error codes.
const (
	NoError                   Code = 0
	GeneralException          Code = 101
	GeneralInitFailure        Code = 102
	AlreadyInitialized        Code = 103
	ContentTerminated         Code = 104
	GeneralTerminationFailure Code = 111
	TerminationBeforeInit     Code = 112
	TerminationAfterTerm      Code = 113
	RetrieveBeforeInit        Code = 122
	RetrieveAfterTerm         Code = 123
	StoreBeforeInit           Code = 132
	StoreAfterTerm            Code = 133
	CommitBeforeInit          Code = 142
	CommitAfterTerm           Code = 143
	GeneralArgumentError      Code = 201
	GeneralGetFailure         Code = 301
	GeneralSetFailure         Code = 351
	GeneralCommitFailure      Code = 391
	UndefinedElement          Code = 401
	UnimplementedElement      Code = 402
	ValueNotInitialized       Code = 403
	ElementReadOnly           Code = 404
	ElementWriteOnly          Code = 405
	TypeMismatch              Code = 406
	ValueOutOfRange           Code = 407
	DependencyNotEstablished  Code = 408
)

// SCORM 1.2 error codes. Several share values with 2004 codes but carry a
// different meaning.
const (
	Err12InvalidArgument  Code = 201
	Err12NoChildren       Code = 202
	Err12NoCount          Code = 203
	Err12NotInitialized   Code = 301
	Err12NotImplemented   Code = 401
	Err12KeywordSet       Code = 402
	Err12ReadOnly         Code = 403
	Err12WriteOnly        Code = 404
	Err12IncorrectType    Code = 405
	Err12GeneralException Code = 101
)

var messages2004 = map[Code]string{
	NoError:                   "No Error",
	GeneralException:          "General Exception",
	GeneralInitFailure:        "General Initialization Failure",
	AlreadyInitialized:        "Already Initialized",
	ContentTerminated:         "Content Instance Terminated",
	GeneralTerminationFailure: "General Termination Failure",
	TerminationBeforeInit:     "Termination Before Initialization",
	TerminationAfterTerm:      "Termination After Termination",
	RetrieveBeforeInit:        "Retrieve Data Before Initialization",
	RetrieveAfterTerm:         "Retrieve Data After Termination",
	StoreBeforeInit:           "Store Data Before Initialization",
	StoreAfterTerm:            "Store Data After Termination",
	CommitBeforeInit:          "Commit Before Initialization",
	CommitAfterTerm:           "Commit After Termination",
	GeneralArgumentError:      "General Argument Error",
	GeneralGetFailure:         "General Get Failure",
	GeneralSetFailure:         "General Set Failure",
	GeneralCommitFailure:      "General Commit Failure",
	UndefinedElement:          "Undefined Data Model Element",
	UnimplementedElement:      "Unimplemented Data Model Element",
	ValueNotInitialized:       "Data Model Element Value Not Initialized",
	ElementReadOnly:           "Data Model Element Is Read Only",
	ElementWriteOnly:          "Data Model Element Is Write Only",
	TypeMismatch:              "Data Model Element Type Mismatch",
	ValueOutOfRange:           "Data Model Element Value Out Of Range",
	DependencyNotEstablished:  "Data Model Dependency Not Established",
}

var messages12 = map[Code]string{
	NoError:               "No error",
	Err12GeneralException: "General Exception",
	Err12InvalidArgument:  "Invalid argument error",
	Err12NoChildren:       "Element cannot have children",
	Err12NoCount:          "Element not an array - cannot have count",
	Err12NotInitialized:   "Not initialized",
	Err12NotImplemented:   "Not implemented error",
	Err12KeywordSet:       "Invalid set value, element is a keyword",
	Err12ReadOnly:         "Element is read only",
	Err12WriteOnly:        "Element is write only",
	Err12IncorrectType:    "Incorrect Data Type",
}

// Message returns the standard description of c for version v, or an
// empty string for unknown codes.
func Message(v scorm.Version, c Code) string {
	if v == scorm.V12 {
		return messages12[c]
	}
	return messages2004[c]
}

// String renders the code as the API returns it.
func (c Code) String() string {
	return strconv.Itoa(int(c))
}

// failure is an internal error result: a version-neutral kind mapped to a
// concrete code per version.
type failure int

const (
	fNone failure = iota
	fUndefined
	fReadOnly
	fWriteOnly
	fType
	fRange
	fKeyword
	fNotInit
	fDependency
	fIndex
	fNoChildren
	fNoCount
)

func (f failure) code(v scorm.Version) Code {
	if v == scorm.V12 {
		switch f {
		case fNone:
			return NoError
		case fUndefined:
			return Err12NotImplemented
		case fReadOnly:
			return Err12ReadOnly
		case fWriteOnly:
			return Err12WriteOnly
		case fType, fRange:
			return Err12IncorrectType
		case fKeyword:
			return Err12KeywordSet
		case fNoChildren:
			return Err12NoChildren
		case fNoCount:
			return Err12NoCount
		case fNotInit:
			return NoError
		}
		return Err12InvalidArgument
	}
	switch f {
	case fNone:
		return NoError
	case fUndefined, fNoChildren, fNoCount:
		return UndefinedElement
	case fReadOnly, fKeyword:
		return ElementReadOnly
	case fWriteOnly:
		return ElementWriteOnly
	case fType:
		return TypeMismatch
	case fRange:
		return ValueOutOfRange
	case fNotInit:
		return ValueNotInitialized
	case fDependency:
		return DependencyNotEstablished
	}
	return GeneralSetFailure
}
