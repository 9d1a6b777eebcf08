package cli

import "fmt"

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type badKeyError struct {
	arg string
}

func (e badKeyError) Error() string {
	return fmt.Sprintf("unknown key %q (want e.g. tab, shift+tab, alt+up, ctrl+down, enter, esc, type:<text>, focus:<line-id>)", e.arg)
}
