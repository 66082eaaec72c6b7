package download

import "strings"

var friendlyMessages = []struct {
	needles []string
	message string
}{
	{[]string{"not supported", "unsupported"}, "PDF download is not supported here. Please try a different browser or device."},
	{[]string{"login", "unauthorized", "authentication", "not authenticated"}, "Please log in again to download your statement."},
	{[]string{"no data", "no orders", "is required"}, "No statement data is available for the selected period."},
	{[]string{"generat", "empty or invalid", "render"}, "We couldn't generate the PDF. Please try again."},
	{[]string{"network", "connection", "fetch"}, "A network error occurred. Check your connection and try again."},
	{[]string{"timeout", "deadline exceeded", "timed out"}, "The download timed out. Please try again."},
	{[]string{"failed after", "retry attempts"}, "The download failed after several attempts. Please try again later."},
}

const fallbackMessage = "Something went wrong while downloading your statement. Please try again."

// FriendlyMessage translates a download error into text for end users.
// Rules are checked in order and the first match wins.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	text := strings.ToLower(err.Error())
	for _, rule := range friendlyMessages {
		for _, needle := range rule.needles {
			if strings.Contains(text, needle) {
				return rule.message
			}
		}
	}
	return fallbackMessage
}
