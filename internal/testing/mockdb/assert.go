package mockdb

import (
	"strings"
	"unicode"

	"github.com/stretchr/testify/assert"
)

// CommandAssert checks the captured text and parameters of one command
type CommandAssert struct {
	t   assert.TestingT
	cmd *CommandData
}

// AssertCommand starts assertions on cmd
func AssertCommand(t assert.TestingT, cmd *CommandData) *CommandAssert {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	assert.NotNil(t, cmd, "command")
	if cmd == nil {
		cmd = &CommandData{}
	}
	return &CommandAssert{t: t, cmd: cmd}
}

// HasField asserts that name appears as an identifier in the command text
func (a *CommandAssert) HasField(name string) *CommandAssert {
	assert.True(a.t, hasIdentifier(a.cmd.Text, name), "expected field %q in %q", name, a.cmd.Text)
	return a
}

// HasNoField asserts that name does not appear as an identifier in the command text
func (a *CommandAssert) HasNoField(name string) *CommandAssert {
	assert.False(a.t, hasIdentifier(a.cmd.Text, name), "unexpected field %q in %q", name, a.cmd.Text)
	return a
}

// HasTable asserts that the command text names the table
func (a *CommandAssert) HasTable(name string) *CommandAssert {
	assert.True(a.t, hasIdentifier(a.cmd.Text, name), "expected table %q in %q", name, a.cmd.Text)
	return a
}

// ParamCount asserts the number of captured parameters
func (a *CommandAssert) ParamCount(n int) *CommandAssert {
	assert.Len(a.t, a.cmd.Parameters, n, "parameters of %q", a.cmd.Text)
	return a
}

// hasIdentifier reports whether text contains name as a whole identifier,
// ignoring case and quoting
func hasIdentifier(text, name string) bool {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	for _, tok := range tokens {
		if strings.EqualFold(tok, name) {
			return true
		}
	}
	return false
}
