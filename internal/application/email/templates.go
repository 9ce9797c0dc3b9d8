package email

import "html/template"

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="font-family: Helvetica, Arial, sans-serif; background-color: #f3f4f6; margin: 0; padding: 0;">
  <div style="max-width: 500px; margin: 40px auto; background-color: #ffffff; border-radius: 16px; overflow: hidden;">
    <div style="background: #2563EB; padding: 30px 20px; text-align: center;">
      <h1 style="color: #ffffff; margin: 0; font-size: 24px;">{{.Product}}</h1>
    </div>
    <div style="padding: 40px 30px; text-align: center; color: #374151;">
      <p style="font-size: 18px; color: #111827;">Hello {{if .FullName}}{{.FullName}}{{else}}there{{end}},</p>
      <p>Use the verification code below to continue.</p>
      <div style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #2563EB; margin: 24px 0;">{{.OTP}}</div>
      <p>This code will expire in <strong>{{.Validity}}</strong>.</p>
      <p style="font-size: 13px; color: #6b7280;">If you didn't request this code, you can safely ignore this email.</p>
    </div>
  </div>
</body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="font-family: Helvetica, Arial, sans-serif; background-color: #f3f4f6; margin: 0; padding: 0;">
  <div style="max-width: 500px; margin: 40px auto; background-color: #ffffff; border-radius: 16px; overflow: hidden;">
    <div style="background: #2563EB; padding: 30px 20px; text-align: center;">
      <h1 style="color: #ffffff; margin: 0; font-size: 24px;">{{.Product}}</h1>
    </div>
    <div style="padding: 40px 30px; text-align: center; color: #374151;">
      <p style="font-size: 18px; color: #111827;">Hello {{if .FullName}}{{.FullName}}{{else}}there{{end}},</p>
      <p>We received a request to reset your password.</p>
      <p><a href="{{.ResetURL}}" style="display: inline-block; background: #2563EB; color: #ffffff; padding: 12px 28px; border-radius: 8px; text-decoration: none; font-weight: 600;">Reset Password</a></p>
      <p>This link will expire in <strong>{{.Validity}}</strong>.</p>
      <p style="font-size: 13px; color: #6b7280;">If you didn't request a password reset, you can safely ignore this email.</p>
    </div>
  </div>
</body>
</html>`))

type otpView struct {
	Product  string
	FullName string
	OTP      string
	Validity string
}

type resetView struct {
	Product  string
	FullName string
	ResetURL template.URL
	Validity string
}
