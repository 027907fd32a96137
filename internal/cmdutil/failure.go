package cmdutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/martinsuchenak/nsotctl/internal/client"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
)

// Failure ties an error to the resource type a command was working on
type Failure struct {
	Type model.ResourceType
	Err  error
}

func (f *Failure) Error() string {
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Fail wraps err with the resource type. A nil err stays nil.
func Fail(rt model.ResourceType, err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Type: rt, Err: err}
}

// FailureMessage renders err as the one-line "[FAILURE] <message>" shown
// to users. API uniqueness violations become "<Type> object already exists.".
func FailureMessage(err error) string {
	msg := err.Error()

	var terr *client.TransportError
	if errors.As(err, &terr) {
		log.Debug("Request failed", "detail", terr.DetailedError())
		msg = terr.Message
		if strings.Contains(msg, "UNIQUE constraint failed") {
			var f *Failure
			if errors.As(err, &f) {
				msg = fmt.Sprintf("%s object already exists.", f.Type)
			} else {
				msg = "Object already exists."
			}
		}
		if msg == "" {
			msg = terr.Error()
		}
	}

	return "[FAILURE] " + msg
}
