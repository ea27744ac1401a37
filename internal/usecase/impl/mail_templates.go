package impl

import (
	"bytes"
	"html/template"
	"time"

	"bidhub/internal/domain/entity"
	"bidhub/internal/errors"
	"bidhub/internal/usecase"
)

var (
	otpMailTemplate = template.Must(template.New("otp").Parse(`<h2>{{.Heading}}</h2>
<p>Your one-time code is:</p>
<p style="font-size:24px;letter-spacing:4px"><b>{{.Code}}</b></p>
<p>The code expires in {{.ValidMinutes}} minutes. If you did not request it, you can ignore this email.</p>
`))

	deviceAlertMailTemplate = template.Must(template.New("device-alert").Parse(`<h3>{{.Heading}}</h3>
<p><b>Time:</b> {{.Time}}</p>
<p><b>IP Address:</b> {{.IP}}</p>
<p><b>Device:</b> {{.UserAgent}}</p>
<p>If this was you, no action is needed. If not, please secure your account or contact our support team immediately.</p>
`))
)

type otpMailData struct {
	Heading      string
	Code         string
	ValidMinutes int
}

type deviceAlertMailData struct {
	Heading   string
	Time      string
	IP        string
	UserAgent string
}

func otpSubject(purpose entity.OTPPurpose) (subject, heading string) {
	if purpose == entity.OTPPurposeForgot {
		return "Password Reset OTP", "Reset your password"
	}

	return "Verify your email", "Confirm your email address"
}

func renderOTPMail(purpose entity.OTPPurpose, code string, ttl time.Duration) (subject, html string, err error) {
	subject, heading := otpSubject(purpose)

	var buf bytes.Buffer
	if err := otpMailTemplate.Execute(&buf, otpMailData{
		Heading:      heading,
		Code:         code,
		ValidMinutes: int(ttl.Minutes()),
	}); err != nil {
		return "", "", errors.Wrap(err, "render otp mail")
	}

	return subject, buf.String(), nil
}

func deviceAlertSubject(alert usecase.DeviceAlert) (subject, heading string) {
	switch alert {
	case usecase.AlertPasswordReset:
		return "Password Reset Detected", "Your password was reset from a new device"
	case usecase.AlertEmailChange:
		return "Email Change Detected", "Your account email was changed from a new device"
	default:
		return "New Login Detected", "New login to your account"
	}
}

func renderDeviceAlertMail(alert usecase.DeviceAlert, meta entity.RequestMeta, at time.Time) (subject, html string, err error) {
	subject, heading := deviceAlertSubject(alert)

	var buf bytes.Buffer
	if err := deviceAlertMailTemplate.Execute(&buf, deviceAlertMailData{
		Heading:   heading,
		Time:      at.UTC().Format(time.RFC1123),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		return "", "", errors.Wrap(err, "render device alert mail")
	}

	return subject, buf.String(), nil
}
