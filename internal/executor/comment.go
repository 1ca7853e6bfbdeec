package executor

import (
	"regexp"
	"strings"
)

// userNameSanitizer strips everything but letters, digits and spaces so a
// display name cannot terminate the comment and smuggle SQL.
var userNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9 ]`)

// Comment carries diagnostic metadata appended to every executed
// statement as a trailing SQL comment. The fields are opaque identifiers
// and never interpreted as SQL.
type Comment struct {
	UserID   string
	UserName string
	QueryID  string
}

// String renders the comment body:
// blazer[,user_id:<id>][,user_name:<sanitized>][,query_id:<id>]
func (c Comment) String() string {
	var b strings.Builder
	b.WriteString("blazer")
	if c.UserID != "" {
		b.WriteString(",user_id:")
		b.WriteString(c.UserID)
	}
	if c.UserName != "" {
		b.WriteString(",user_name:")
		b.WriteString(userNameSanitizer.ReplaceAllString(c.UserName, ""))
	}
	if c.QueryID != "" {
		b.WriteString(",query_id:")
		b.WriteString(c.QueryID)
	}
	return b.String()
}

// Annotate appends the comment to a statement.
func (c Comment) Annotate(statement string) string {
	return statement + " /*" + c.String() + "*/"
}
