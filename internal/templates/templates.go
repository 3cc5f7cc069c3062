// Package templates renders the transactional emails.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed *.html
var files embed.FS

var parsed = template.Must(template.ParseFS(files, "*.html"))

const (
	VerifyEmail   = "verify-email.html"
	ResetPassword = "reset-password.html"
)

type LinkData struct {
	Name      string
	Link      string
	ExpiresIn string
	Resend    bool
}

func Render(name string, data LinkData) (string, error) {
	var buf bytes.Buffer
	if err := parsed.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// HumanDuration formats d the way the emails phrase it: "24 jam", "1 jam",
// "30 menit".
func HumanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d jam", int(d/time.Hour))
	}
	return fmt.Sprintf("%d menit", int(d.Round(time.Minute)/time.Minute))
}
