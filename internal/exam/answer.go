package exam

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Answer is either a single string or a list of strings. List remembers which
// shape was submitted so a one-element list never compares equal to a scalar.
type Answer struct {
	Text   string
	Values []string
	List   bool
}

// Text builds a scalar answer.
func Text(s string) Answer { return Answer{Text: s} }

// Choices builds a list answer. The values are copied.
func Choices(vs ...string) Answer {
	out := make([]string, len(vs))
	copy(out, vs)
	return Answer{Values: out, List: true}
}

func (a Answer) clone() Answer {
	if !a.List {
		return a
	}
	return Choices(a.Values...)
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.List {
		if a.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Values)
	}
	return json.Marshal(a.Text)
}

var errAnswerShape = errors.New("answer must be a string or an array of strings")

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return errAnswerShape
	}
	if b[0] == '[' {
		var vs []string
		if err := json.Unmarshal(b, &vs); err != nil {
			return errAnswerShape
		}
		if vs == nil {
			vs = []string{}
		}
		*a = Answer{Values: vs, List: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errAnswerShape
	}
	*a = Answer{Text: s}
	return nil
}
