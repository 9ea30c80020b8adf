package templates

import (
	"fmt"
	"html"
)

// RenderListingStatusEmail generates the HTML sent to an owner when a listing
// changes status. status should be one of accepted, rejected or pending.
func RenderListingStatusEmail(ownerName, listingName, status string) string {
	safeOwner := html.EscapeString(ownerName)
	safeListing := html.EscapeString(listingName)

	var headline, body, accent string
	switch status {
	case "accepted":
		headline = "🎉 Your listing is live!"
		body = fmt.Sprintf("Great news! Your listing <strong>%s</strong> has been verified and is now visible to seekers on RoomLoft.", safeListing)
		accent = "#16a34a"
	case "rejected":
		headline = "Listing needs changes"
		body = fmt.Sprintf("Unfortunately your listing <strong>%s</strong> did not pass verification. You can update the details from your dashboard and it will be reviewed again.", safeListing)
		accent = "#dc2626"
	default:
		headline = "Listing back in review"
		body = fmt.Sprintf("Your listing <strong>%s</strong> has been moved back to the review queue. We will email you once verification completes.", safeListing)
		accent = "#f59e0b"
	}

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>RoomLoft Listing Update</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f3f4f6; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background-color: %s; padding: 36px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; font-weight: 700; }
    .content { padding: 36px 30px; color: #374151; line-height: 1.6; }
    .content h2 { color: #111827; margin-top: 0; }
    .footer { padding: 24px; text-align: center; color: #9ca3af; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      <h2>Hi %s,</h2>
      <p>%s</p>
      <p>Thanks for listing with RoomLoft.</p>
    </div>
    <div class="footer">
      <p>RoomLoft &middot; Find your next PG home</p>
    </div>
  </div>
</body>
</html>`, accent, headline, safeOwner, body)
}

// RenderStalePendingReminderEmail nudges an owner whose listing has been
// sitting in the review queue for longer than expected.
func RenderStalePendingReminderEmail(ownerName, listingName string, daysPending int) string {
	safeOwner := html.EscapeString(ownerName)
	safeListing := html.EscapeString(listingName)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <title>RoomLoft Listing Reminder</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f3f4f6; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background-color: #f59e0b; padding: 36px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; font-weight: 700; }
    .content { padding: 36px 30px; color: #374151; line-height: 1.6; }
    .footer { padding: 24px; text-align: center; color: #9ca3af; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Still in review</h1>
    </div>
    <div class="content">
      <h2>Hi %s,</h2>
      <p>Your listing <strong>%s</strong> has been waiting in the review queue for %d days. Our team is working through it and no action is needed from you right now.</p>
      <p>If any details have changed since you submitted, updating them from your dashboard can help speed things along.</p>
    </div>
    <div class="footer">
      <p>RoomLoft &middot; Find your next PG home</p>
    </div>
  </div>
</body>
</html>`, safeOwner, safeListing, daysPending)
}
