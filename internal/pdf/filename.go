package pdf

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"medorder/backend/internal/domain"
)

const maxIdentifierLen = 20

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	underscores = regexp.MustCompile(`__+`)
)

// Sanitize makes s safe for a file name: disallowed characters become
// underscores, runs collapse, edges are trimmed and the result is capped.
func Sanitize(s string) string {
	out := unsafeChars.ReplaceAllString(s, "_")
	out = underscores.ReplaceAllString(out, "_")
	out = strings.Trim(out, "_")
	if len(out) > maxIdentifierLen {
		out = strings.TrimRight(out[:maxIdentifierLen], "_")
	}
	return out
}

// Filename is order-statement_{identifier}_{start}_to_{end}.pdf. The
// identifier is the company name, else first_last, else the user id prefix.
func Filename(data *domain.OrderStatementData) string {
	id := Sanitize(data.UserInfo.CompanyName)
	if id == "" {
		id = Sanitize(strings.TrimSpace(data.UserInfo.FirstName + "_" + data.UserInfo.LastName))
	}
	if id == "" {
		id = data.UserID
		if len(id) > 8 {
			id = id[:8]
		}
		id = Sanitize(id)
	}
	if id == "" {
		id = "customer"
	}
	return fmt.Sprintf("order-statement_%s_%s_to_%s.pdf",
		id, data.StartDate.Format(time.DateOnly), data.EndDate.Format(time.DateOnly))
}
