package templates

import (
	"fmt"
	"html"
)

// RenderPasswordResetEmail generates the HTML for the password reset email.
// The link is HTML-escaped before interpolation.
func RenderPasswordResetEmail(resetLink string) string {
	safeLink := html.EscapeString(resetLink)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>RoomLoft Password Reset</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f3f4f6; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background-color: #4f46e5; padding: 36px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; font-weight: 700; }
    .content { padding: 36px 30px; color: #374151; line-height: 1.6; }
    .cta-button { display: inline-block; background-color: #4f46e5; color: #fff; padding: 14px 28px; border-radius: 8px; text-decoration: none; font-weight: 700; margin: 20px 0; }
    .footer { padding: 24px; text-align: center; color: #9ca3af; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Reset your password</h1>
    </div>
    <div class="content">
      <p>We received a request to reset your RoomLoft password. Click the button below to choose a new one. The link expires in one hour.</p>
      <p style="text-align: center;"><a class="cta-button" href="%s">Reset Password</a></p>
      <p>If you did not request this, you can safely ignore this email.</p>
    </div>
    <div class="footer">
      <p>RoomLoft &middot; Find your next PG home</p>
    </div>
  </div>
</body>
</html>`, safeLink)
}
