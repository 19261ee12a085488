// Package errors contains the error handling used by the harvester. Errors
// carry the operation that failed, a Kind used to decide whether a failure
// degrades to a partial result or is reported, and the event being handled.
package errors

import (
	"bytes"
	"fmt"
	"log"
	"runtime"

	"github.com/findrandomevents/harvest"
)

// Error is a harvester error. Any of its fields may be left unset.
type Error struct {
	// Op is the operation being performed, usually the name of the
	// method being invoked.
	Op Op
	// EventID is the event being fetched, if any.
	EventID harvest.EventID
	// URL is the resource being fetched, if any.
	URL URL
	// Kind is the class of error, such as permission failure, or "Other"
	// if its class is unknown or irrelevant.
	Kind Kind
	// The underlying error that triggered this one, if any.
	Err error

	// Stack information; used only when the 'debug' build tag is set.
	stack
}

func (e *Error) isZero() bool {
	return e.EventID == "" && e.URL == "" && e.Op == "" && e.Kind == 0 && e.Err == nil
}

// E builds an error value from its arguments.
// There must be at least one argument or E panics.
// The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
//
// If the error is printed, only those items that have been
// set to non-zero values will appear in the result.
//
// If Kind is not specified or Other, we set it to the Kind of
// the underlying error.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("call to errors.E with no arguments")
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case harvest.EventID:
			e.EventID = arg
		case URL:
			e.URL = arg
		case Op:
			e.Op = arg
		case string:
			e.Err = Str(arg)
		case Kind:
			e.Kind = arg
		case *Error:
			// Make a copy
			copy := *arg
			e.Err = &copy
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Printf("errors.E: bad call from %s:%d: %v", file, line, args)
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}

	// Populate stack information (only in debug mode).
	e.populateStack()

	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	// The previous error was also one of ours. Don't repeat the event,
	// url or kind in the nested message.
	if prev.EventID == e.EventID {
		prev.EventID = ""
	}
	if prev.URL == e.URL {
		prev.URL = ""
	}
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	// If this error has Kind unset or Other, pull up the inner one.
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

// pad appends str to the buffer if the buffer already has some data.
func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	e.printStack(b)
	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(string(e.Op))
	}
	if e.EventID != "" {
		pad(b, ", ")
		b.WriteString("event ")
		b.WriteString(string(e.EventID))
	}
	if e.URL != "" {
		pad(b, ", ")
		b.WriteString(string(e.URL))
	}
	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		if prevErr, ok := e.Err.(*Error); ok {
			if !prevErr.isZero() {
				pad(b, ":\n\t")
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Unwrap returns the underlying error so the standard library's errors.Is and
// errors.As can see through an *Error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Op describes an operation. eg, "Client.ReadPage"
type Op string

// URL is the address of the resource an operation was working on.
type URL string

// Kind classifies an error. Harvest tasks use it to decide how a failure
// degrades, the REST API uses it to pick a status code.
type Kind int

const (
	Other          Kind = iota // Unclassified error. This value is not printed in the error message.
	Invalid                    // Bad request
	NotLoggedIn                // Unauthorized.
	Permission                 // Permission denied.
	NotExist                   // Item does not exist.
	Exist                      // Item already exists.
	Internal                   // Internal error or inconsistency.
	FetchFailed                // An HTTP fetch ran out of retries.
	CaptureAborted             // The browser never issued a data-fetch request.
	DecodeMiss                 // An expected key was missing from a payload.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case NotExist:
		return "item does not exist"
	case Exist:
		return "item already exists"
	case Permission:
		return "permission denied"
	case NotLoggedIn:
		return "not logged in"
	case Invalid:
		return "invalid request"
	case Internal:
		return "internal error"
	case FetchFailed:
		return "fetch failed"
	case CaptureAborted:
		return "capture aborted"
	case DecodeMiss:
		return "decode miss"
	}
	return "unknown error kind"
}

// Str returns an error that formats as the given text. It is intended to
// be used as the error-typed argument to the E function.
func Str(text string) error {
	return &errorString{text}
}

// errorString is a trivial implementation of error.
type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf, but allows clients to import only this
// package for all error handling.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given Kind.
// If err is nil then Is returns false.
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// Match compares its two error arguments. It can be used to check
// for expected errors in tests. Both arguments must have underlying
// type *Error or Match will return false. Otherwise it returns true
// iff every non-zero element of the first error is equal to the
// corresponding element of the second.
// If the Err field is a *Error, Match recurs on that field;
// otherwise it compares the strings returned by the Error methods.
// Elements that are in the second argument but not present in
// the first are ignored.
func Match(err1, err2 error) bool {
	e1, ok := err1.(*Error)
	if !ok {
		return false
	}
	e2, ok := err2.(*Error)
	if !ok {
		return false
	}
	if e1.EventID != "" && e2.EventID != e1.EventID {
		return false
	}
	if e1.URL != "" && e2.URL != e1.URL {
		return false
	}
	if e1.Op != "" && e2.Op != e1.Op {
		return false
	}
	if e1.Kind != Other && e2.Kind != e1.Kind {
		return false
	}
	if e1.Err != nil {
		if _, ok := e1.Err.(*Error); ok {
			return Match(e1.Err, e2.Err)
		}
		if e2.Err == nil || e2.Err.Error() != e1.Err.Error() {
			return false
		}
	}
	return true
}
